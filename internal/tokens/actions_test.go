package tokens

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tokpkg "github.com/dtnitsch/llm-page-context/pkg/tokens"
)

type stubCounter struct {
	n   int
	err error
}

func (s stubCounter) Count(string, string) (int, error) { return s.n, s.err }

func TestEstimate(t *testing.T) {
	e := tokpkg.Default()
	text := strings.Repeat("word ", 40)

	est, err := estimate(e, nil, text, "gpt-4o", 10)
	require.NoError(t, err)
	assert.Equal(t, 200, est.Chars)
	assert.Equal(t, e.EstimateTokens(text, "gpt-4o"), est.Estimated)
	assert.Equal(t, 10, est.Budget)
	assert.False(t, est.Fits)
	assert.Nil(t, est.Exact)

	est, err = estimate(e, stubCounter{n: 8}, text, "gpt-4o", 10)
	require.NoError(t, err)
	require.NotNil(t, est.Exact)
	assert.Equal(t, 8, *est.Exact)
	assert.True(t, est.Fits)

	_, err = estimate(e, stubCounter{err: errors.New("no encoding")}, text, "gpt-4o", 10)
	assert.Error(t, err)
}

func TestEstimateDefaultBudget(t *testing.T) {
	e := tokpkg.Default()
	est, err := estimate(e, nil, "hello", "unknown-model", 0)
	require.NoError(t, err)
	assert.Equal(t, tokpkg.DefaultRule.InputBudget(), est.Budget)
	assert.True(t, est.Fits)
}

func TestWriteChunks(t *testing.T) {
	chunks := []tokpkg.Chunk{{Text: "one", Tokens: 1}, {Text: "two", Tokens: 1}}

	var buf bytes.Buffer
	require.NoError(t, writeChunks(&buf, "text", chunks))
	assert.Equal(t, "--- chunk 1/2 (1 tokens) ---\none\n\n--- chunk 2/2 (1 tokens) ---\ntwo\n", buf.String())

	buf.Reset()
	require.NoError(t, writeChunks(&buf, "json", nil))
	var got []tokpkg.Chunk
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Empty(t, got)
}
