package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWordCount(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"one two  three\nfour", 4},
		{"hello, world!", 2},
		{"你好世界", 4},
		{"Go 语言 rocks", 4},
		{"--- ***", 0},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, WordCount(tt.text))
		})
	}
}

func TestTopKeywords(t *testing.T) {
	text := "Parsing HTML is fun. Parsing, parsing! The parser parses HTML. Click here."
	got := TopKeywords(text, 3)

	assert.Equal(t, []WordScore{{"parsing", 3}, {"html", 2}, {"fun", 1}}, got)
	assert.Equal(t, []string{"parsing", "html", "fun"}, Words(got))
	assert.Nil(t, TopKeywords(text, 0))
}

func TestWordFrequencySkipsNoise(t *testing.T) {
	freq := WordFrequency("The a I click x Über über")
	assert.Equal(t, map[string]int{"über": 2}, freq)
	assert.True(t, IsStopword("The"))
	assert.False(t, IsStopword("golang"))
}
