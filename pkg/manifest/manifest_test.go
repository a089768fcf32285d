package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtnitsch/llm-page-context/models"
)

func sampleResults() []Result {
	return []Result{
		{
			Target: "https://example.com/a",
			Method: "readability",
			Tokens: 42,
			Chunks: 2,
			Content: &models.ProcessedContent{
				Metadata: models.ContentMetadata{Title: "Goats", Language: "en", WordCount: 9},
				Blocks:   []models.ContentBlock{{ID: "block-0"}, {ID: "block-1"}},
				RawText:  "goats goats goats eat hay in the barn barn",
			},
		},
		{Target: "https://example.com/b", ErrorType: "fetch_error", Error: "status 404"},
	}
}

func TestGenerate(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := Generate(sampleResults(), at, 2)

	assert.Equal(t, "2026-03-01T12:00:00Z", m.GeneratedAt)
	assert.Equal(t, 2, m.TotalTargets)
	assert.Equal(t, 1, m.Successful)
	assert.Equal(t, 1, m.Failed)
	assert.Equal(t, []string{"goats:3", "barn:2"}, m.AggregateKeywords)

	require.Len(t, m.Results, 2)
	ok := m.Results[0]
	assert.Equal(t, "success", ok.Status)
	assert.Equal(t, "Goats", ok.Title)
	assert.Equal(t, 2, ok.Blocks)
	assert.Equal(t, 42, ok.EstimatedTokens)
	assert.Equal(t, 2, ok.Chunks)

	bad := m.Results[1]
	assert.Equal(t, "error", bad.Status)
	assert.Equal(t, "fetch_error", bad.ErrorType)
	assert.Equal(t, "status 404", bad.ErrorMessage)
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	m := Generate(sampleResults(), time.Now(), 5)

	jsonPath := filepath.Join(dir, "runs", "summary.json")
	require.NoError(t, Write(jsonPath, m))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var back SummaryManifest
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, m.Successful, back.Successful)

	yamlPath := filepath.Join(dir, "summary.yaml")
	require.NoError(t, Write(yamlPath, m))
	data, err = os.ReadFile(yamlPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "total_targets: 2")
}
