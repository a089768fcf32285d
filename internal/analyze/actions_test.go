package analyze

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dtnitsch/llm-page-context/pkg/detector"
)

func TestContentText(t *testing.T) {
	assert.Equal(t, "plain words", contentText([]byte("plain words")))
	assert.Equal(t, "inner", contentText([]byte(`{"rawText":"inner","blocks":[]}`)))
	assert.Equal(t, "nested", contentText([]byte(`{"target":"x","success":true,"content":{"rawText":"nested"}}`)))
	assert.Equal(t, `{"other":1}`, contentText([]byte(`{"other":1}`)))
}

func TestAnalyze(t *testing.T) {
	text := strings.Repeat("The farmer feeds the goats and the goats eat hay. ", 5)
	r := analyze(text, detector.CJKGuesser{}, "gpt-4o", 2)

	assert.Equal(t, 50, r.Words)
	assert.Equal(t, "en", r.Language)
	assert.Equal(t, []string{"goats", "eat"}, r.TopKeywords)
	assert.False(t, r.CodeLike)
	assert.Zero(t, r.CJKRatio)
	assert.Greater(t, r.Tokens, 0)
}

func TestAnalyzeCJK(t *testing.T) {
	r := analyze("今天天气很好我们去公园散步吧", detector.CJKGuesser{}, "gpt-4o", 3)
	assert.Equal(t, "zh", r.Language)
	assert.Greater(t, r.CJKRatio, 0.9)
	assert.Greater(t, r.Multiplier, 1.0)
}
