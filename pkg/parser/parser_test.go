package parser

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtnitsch/llm-page-context/models"
)

func TestSegmentScenario(t *testing.T) {
	blocks := Segment("# Title\n\nSome text.\n\n- item1\n- item2")
	require.Len(t, blocks, 3)

	assert.Equal(t, models.ContentBlock{ID: "block-0", Type: models.BlockHeading, Content: "Title", Level: 1, Position: 0}, blocks[0])
	assert.Equal(t, models.ContentBlock{ID: "block-1", Type: models.BlockParagraph, Content: "Some text.", Position: 1}, blocks[1])
	assert.Equal(t, models.ContentBlock{ID: "block-2", Type: models.BlockList, Content: "item1\nitem2", Position: 2}, blocks[2])
}

func TestSegmentClassification(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		types []models.BlockType
	}{
		{"type change closes block", "Intro line\n- a\n- b\nOutro", []models.BlockType{models.BlockParagraph, models.BlockList, models.BlockParagraph}},
		{"numbered and bullet lists join", "1. one\n2. two\n* three\n• four", []models.BlockType{models.BlockList}},
		{"quote", "> quoted\n> more", []models.BlockType{models.BlockQuote}},
		{"indented code", "    x := 1\n    y := 2", []models.BlockType{models.BlockCode}},
		{"indented bullet is a list", "    - nested", []models.BlockType{models.BlockList}},
		{"heading beats list", "## - not a list", []models.BlockType{models.BlockHeading}},
		{"seven hashes is a paragraph", "####### deep", []models.BlockType{models.BlockParagraph}},
		{"headings of different level split", "# A\n## B", []models.BlockType{models.BlockHeading, models.BlockHeading}},
		{"blank lines only", "\n\n  \n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := Segment(tt.text)
			var got []models.BlockType
			for i, b := range blocks {
				got = append(got, b.Type)
				assert.Equal(t, i, b.Position)
			}
			assert.Equal(t, tt.types, got)
		})
	}
}

func TestSegmentParagraphJoinAndBlankLineSplit(t *testing.T) {
	blocks := Segment("line one\nline two\n\nline three")
	require.Len(t, blocks, 2)
	assert.Equal(t, "line one\nline two", blocks[0].Content)
	assert.Equal(t, "line three", blocks[1].Content)
}

func TestSegmentFencedCode(t *testing.T) {
	blocks := Segment("Before\n```go\nfunc main() {\n\n\t# not a heading\n}\n```\nAfter")
	require.Len(t, blocks, 3)
	assert.Equal(t, models.BlockCode, blocks[1].Type)
	assert.Equal(t, "go", blocks[1].Language)
	assert.Equal(t, "func main() {\n\n\t# not a heading\n}", blocks[1].Content)
	assert.Equal(t, "After", blocks[2].Content)
}

func TestSegmentQuoteStripsMarker(t *testing.T) {
	blocks := Segment("> first\n> second")
	require.Len(t, blocks, 1)
	assert.Equal(t, "first\nsecond", blocks[0].Content)
}

func TestFlattenRoundTripsTypes(t *testing.T) {
	blocks := Segment("# T\n\npara\n\n- a")
	assert.Equal(t, "T\n\npara\n\na", Flatten(blocks))
}

func TestBlocksFromHTML(t *testing.T) {
	html := `<h2>Intro</h2>
<p>First   paragraph
 spans lines.</p>
<ul><li>one</li><li>two <p>inner</p></li></ul>
<pre><code class="hljs language-go">fmt.Println("hi")</code></pre>
<blockquote><p>Quoted text</p></blockquote>
<table><tr><th>Name</th><th>Age</th></tr><tr><td>Ann</td><td>30</td></tr></table>`

	blocks, err := BlocksFromHTML(html)
	require.NoError(t, err)
	require.Len(t, blocks, 6)

	assert.Equal(t, models.BlockHeading, blocks[0].Type)
	assert.Equal(t, 2, blocks[0].Level)
	assert.Equal(t, "First paragraph spans lines.", blocks[1].Content)
	assert.Equal(t, "one\ntwo inner", blocks[2].Content)
	assert.Equal(t, models.BlockCode, blocks[3].Type)
	assert.Equal(t, "go", blocks[3].Language)
	assert.Equal(t, `fmt.Println("hi")`, blocks[3].Content)
	assert.Equal(t, "Quoted text", blocks[4].Content)
	assert.Equal(t, "Name | Age\nAnn | 30", blocks[5].Content)

	for i, b := range blocks {
		assert.Equal(t, i, b.Position)
	}
}

func TestJoinRenumbers(t *testing.T) {
	blocks := Join(Segment("Author: A"), Segment("# T\n\nbody"), nil)
	require.Len(t, blocks, 3)
	for i, b := range blocks {
		assert.Equal(t, i, b.Position)
		assert.Equal(t, fmt.Sprintf("block-%d", i), b.ID)
	}
	assert.Equal(t, models.BlockHeading, blocks[1].Type)
	assert.Nil(t, Join())
}
