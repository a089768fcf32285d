package pipeline

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"

	"github.com/dtnitsch/llm-page-context/models"
	"github.com/dtnitsch/llm-page-context/pkg/parser"
	"github.com/dtnitsch/llm-page-context/pkg/readable"
)

// structureBlocks turns isolated content into blocks. The metadata preamble,
// when present, becomes the leading blocks. Under StructureText the HTML is
// converted to markdown first so headings, lists, code and quotes survive as
// line markers; plain is segmented when conversion fails or yields nothing.
func (p *Processor) structureBlocks(html, plain, metaText, pageURL string) ([]models.ContentBlock, error) {
	preamble := parser.Segment(strings.TrimSpace(metaText))

	if p.structure == StructureHTML {
		blocks, err := parser.BlocksFromHTML(html)
		if err != nil {
			return nil, err
		}
		if len(blocks) == 0 {
			blocks = parser.Segment(plain)
		}
		return parser.Join(preamble, blocks), nil
	}

	if md := p.toMarkdown(html, pageURL); md != "" {
		if blocks := parser.Segment(md); len(blocks) > 0 {
			return parser.Join(preamble, blocks), nil
		}
	}
	return parser.Join(preamble, parser.Segment(plain)), nil
}

func (p *Processor) toMarkdown(html, pageURL string) string {
	if p.markdown == nil || strings.TrimSpace(html) == "" {
		return ""
	}
	var md string
	var err error
	if pageURL != "" {
		md, err = p.markdown.ConvertString(html, converter.WithDomain(pageURL))
	} else {
		md, err = p.markdown.ConvertString(html)
	}
	if err != nil {
		p.logger.Warn().Err(err).Msg("markdown conversion failed, segmenting plain text")
		return ""
	}
	return strings.TrimSpace(md)
}

// stripPreamble removes the metadata preamble the isolator prepends.
func stripPreamble(s, metaText string) string {
	metaText = strings.TrimSpace(metaText)
	if metaText == "" {
		return s
	}
	return strings.TrimPrefix(s, metaText+readable.MetadataDelimiter)
}
