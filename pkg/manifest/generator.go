package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dtnitsch/llm-page-context/models"
	"github.com/dtnitsch/llm-page-context/pkg/mapreduce"
)

// Result is the outcome of extracting one target.
type Result struct {
	Target    string
	Content   *models.ProcessedContent
	Method    string
	ErrorType string
	Error     string
	Tokens    int
	Chunks    int
}

// Generate builds the manifest. Keywords are counted over each page's raw
// text and aggregated across successful targets.
func Generate(results []Result, generatedAt time.Time, keywords int) SummaryManifest {
	m := SummaryManifest{
		GeneratedAt:  generatedAt.Format(time.RFC3339),
		TotalTargets: len(results),
		Results:      make([]TargetSummary, 0, len(results)),
	}

	var counts []map[string]int
	for _, r := range results {
		summary := TargetSummary{Target: r.Target, Method: r.Method}
		if r.Error != "" || r.Content == nil {
			m.Failed++
			summary.Status = "error"
			summary.ErrorType = r.ErrorType
			summary.ErrorMessage = r.Error
			m.Results = append(m.Results, summary)
			continue
		}

		m.Successful++
		summary.Status = "success"
		summary.Title = r.Content.Metadata.Title
		summary.Language = r.Content.Metadata.Language
		summary.WordCount = r.Content.Metadata.WordCount
		summary.Blocks = len(r.Content.Blocks)
		summary.EstimatedTokens = r.Tokens
		summary.Chunks = r.Chunks

		wc := mapreduce.Map(r.Content.RawText)
		counts = append(counts, wc)
		summary.TopKeywords = mapreduce.TopKeywords(wc, keywords)
		m.Results = append(m.Results, summary)
	}
	m.AggregateKeywords = mapreduce.TopKeywords(mapreduce.Reduce(counts), keywords)
	return m
}

// Write saves the manifest as YAML when path ends in .yaml or .yml, else JSON.
func Write(path string, m SummaryManifest) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(m)
	default:
		data, err = json.MarshalIndent(m, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("error marshalling manifest: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("error creating manifest directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error saving manifest: %w", err)
	}
	return nil
}
