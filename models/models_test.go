package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func content() *ProcessedContent {
	return &ProcessedContent{Blocks: []ContentBlock{
		{Type: BlockHeading, Content: "Title", Level: 2},
		{Type: BlockParagraph, Content: "Body text."},
		{Type: BlockList, Content: "one\ntwo"},
		{Type: BlockCode, Content: "x := 1", Language: "go"},
		{Type: BlockQuote, Content: "said\nthis"},
		{Type: BlockTable, Content: "a | b"},
	}}
}

func TestToPromptText(t *testing.T) {
	want := "## Title\n\n" +
		"Body text.\n\n" +
		"- one\n- two\n\n" +
		"```go\nx := 1\n```\n\n" +
		"> said\n> this\n\n" +
		"a | b"
	assert.Equal(t, want, content().ToPromptText())
}

func TestToPromptTextClampsLevel(t *testing.T) {
	p := &ProcessedContent{Blocks: []ContentBlock{{Type: BlockHeading, Content: "H", Level: 9}}}
	assert.Equal(t, "# H", p.ToPromptText())
}

func TestToPlainText(t *testing.T) {
	assert.Equal(t, "Title\nBody text.\none\ntwo\nx := 1\nsaid\nthis\na | b\n", content().ToPlainText())
	assert.Empty(t, (&ProcessedContent{}).ToPlainText())
}

func TestReadabilityOptionsOverlay(t *testing.T) {
	low, high := 100, 900
	yes := true
	base := ReadabilityOptions{CharThreshold: &low}
	got := base.Overlay(ReadabilityOptions{CharThreshold: &high, KeepClasses: &yes})

	assert.Equal(t, 900, got.Threshold())
	assert.True(t, got.KeepClassesEnabled())
	assert.True(t, got.PreserveLinksEnabled())
	assert.Equal(t, DefaultMaxElemsToDivide, got.MaxElems())
	assert.Equal(t, 100, base.Threshold())

	var zero ReadabilityOptions
	assert.True(t, zero.IsZero())
	assert.Equal(t, DefaultCharThreshold, zero.Threshold())
}

func TestExtractionModeValid(t *testing.T) {
	assert.True(t, ModeReadability.Valid())
	assert.True(t, ModeText.Valid())
	assert.False(t, ExtractionMode("reader").Valid())
	assert.False(t, ExtractionMode("").Valid())
}
