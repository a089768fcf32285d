package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtnitsch/llm-page-context/models"
)

var blocks = []models.ContentBlock{
	{ID: "block-0", Type: models.BlockHeading, Content: "Install", Level: 2, Position: 0},
	{ID: "block-1", Type: models.BlockParagraph, Content: "Run the installer and follow the prompts.", Position: 1},
	{ID: "block-2", Type: models.BlockCode, Content: "go install ./...", Position: 2},
	{ID: "block-3", Type: models.BlockList, Content: "one\ntwo", Position: 3},
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = ParseStrategy("type:heading|Code, len:>=5, has:Install")
	require.NoError(t, err)
	assert.Equal(t, 5, s.MinLength)
	assert.Equal(t, "install", s.Contains)
	assert.Len(t, s.BlockTypes, 2)

	for _, bad := range []string{"type", "type:video", "len:5", "len:>=x", "conf:>=0.5"} {
		_, err := ParseStrategy(bad)
		assert.Error(t, err, bad)
	}
}

func TestFilterBlocks(t *testing.T) {
	tests := []struct {
		strategy string
		want     []string
	}{
		{"type:heading|code", []string{"block-0", "block-2"}},
		{"len:>=10", []string{"block-1", "block-2"}},
		{"has:install", []string{"block-0", "block-1", "block-2"}},
		{"type:code,has:install", []string{"block-2"}},
		{"type:table", nil},
	}
	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			s, err := ParseStrategy(tt.strategy)
			require.NoError(t, err)
			var ids []string
			for _, b := range FilterBlocks(blocks, s) {
				ids = append(ids, b.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestFilterContentKeepsOriginal(t *testing.T) {
	content := &models.ProcessedContent{Blocks: blocks, RawText: "raw"}
	s, err := ParseStrategy("type:list")
	require.NoError(t, err)

	out := FilterContent(content, s)
	require.Len(t, out.Blocks, 1)
	assert.Equal(t, 3, out.Blocks[0].Position)
	assert.Equal(t, "raw", out.RawText)
	assert.Len(t, content.Blocks, 4)
	assert.Same(t, content, FilterContent(content, nil))
}
