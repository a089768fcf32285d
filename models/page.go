package models

import (
	"strings"
	"time"
)

// ExtractedContent is the main-content isolator's output.
type ExtractedContent struct {
	Title         string     `json:"title"`
	Content       string     `json:"content"`     // HTML
	TextContent   string     `json:"textContent"` // plain text
	Length        int        `json:"length"`
	Excerpt       string     `json:"excerpt"`
	SiteName      string     `json:"siteName,omitempty"`
	Lang          string     `json:"lang,omitempty"`
	Byline        string     `json:"byline,omitempty"`
	PublishedTime *time.Time `json:"publishedTime,omitempty"`
}

// BlockType classifies a ContentBlock.
type BlockType string

const (
	BlockHeading   BlockType = "heading"
	BlockParagraph BlockType = "paragraph"
	BlockList      BlockType = "list"
	BlockCode      BlockType = "code"
	BlockQuote     BlockType = "quote"
	BlockTable     BlockType = "table"
)

// ContentBlock represents a typed structural unit of extracted text.
type ContentBlock struct {
	ID       string    `json:"id"`
	Type     BlockType `json:"type"`
	Content  string    `json:"content"`
	Level    int       `json:"level,omitempty"`    // headings only, 1-6
	Language string    `json:"language,omitempty"` // code only, from the fence info or class
	Position int       `json:"position"`
}

// ContentMetadata describes the page a ProcessedContent came from.
type ContentMetadata struct {
	URL           string     `json:"url"`
	Title         string     `json:"title"`
	Author        string     `json:"author,omitempty"`
	PublishedTime *time.Time `json:"publishedTime,omitempty"`
	CapturedAt    time.Time  `json:"capturedAt"`
	Language      string     `json:"language"`
	WordCount     int        `json:"wordCount"`
	SiteName      string     `json:"siteName,omitempty"`
	ContentHash   string     `json:"contentHash,omitempty"`
	Method        string     `json:"method,omitempty"` // readability | text | pdf
	PageCount     int        `json:"pageCount,omitempty"`
}

// ProcessedContent is the final artifact handed to the prompt builder.
type ProcessedContent struct {
	Metadata    ContentMetadata `json:"metadata"`
	Blocks      []ContentBlock  `json:"blocks"`
	RawText     string          `json:"rawText"`
	HTMLContent string          `json:"htmlContent,omitempty"`
	Excerpt     string          `json:"excerpt"`
}

// PDFPage is the text layer of one PDF page, 1-indexed.
type PDFPage struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// ToPlainText concatenates readable text from all content blocks.
func (p *ProcessedContent) ToPlainText() string {
	var sb strings.Builder
	for _, block := range p.Blocks {
		sb.WriteString(block.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

// ToPromptText renders the blocks as light markdown for an LLM prompt.
func (p *ProcessedContent) ToPromptText() string {
	var sb strings.Builder
	for i, block := range p.Blocks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		switch block.Type {
		case BlockHeading:
			level := block.Level
			if level < 1 || level > 6 {
				level = 1
			}
			sb.WriteString(strings.Repeat("#", level))
			sb.WriteString(" ")
			sb.WriteString(block.Content)
		case BlockList:
			for j, item := range strings.Split(block.Content, "\n") {
				if j > 0 {
					sb.WriteString("\n")
				}
				sb.WriteString("- ")
				sb.WriteString(item)
			}
		case BlockCode:
			sb.WriteString("```")
			sb.WriteString(block.Language)
			sb.WriteString("\n")
			sb.WriteString(block.Content)
			sb.WriteString("\n```")
		case BlockQuote:
			for j, line := range strings.Split(block.Content, "\n") {
				if j > 0 {
					sb.WriteString("\n")
				}
				sb.WriteString("> ")
				sb.WriteString(line)
			}
		default:
			sb.WriteString(block.Content)
		}
	}
	return sb.String()
}
