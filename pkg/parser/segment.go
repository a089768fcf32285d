package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dtnitsch/llm-page-context/models"
)

// Line patterns, checked in this order. The first match decides the line's type.
var (
	headingLine  = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	bulletLine   = regexp.MustCompile(`^\s*[-*+•]\s+(.*)$`)
	numberedLine = regexp.MustCompile(`^\s*\d+\.\s+(.*)$`)
	quoteLine    = regexp.MustCompile(`^>\s?(.*)$`)
	quoteStart   = regexp.MustCompile(`^>\s`)
)

const codeFence = "```"

type segmenter struct {
	blocks []models.ContentBlock

	open     models.BlockType
	level    int
	language string
	lines    []string
	inFence  bool
}

// Segment splits line-structured text into typed blocks. A blank line closes
// the open block, as does a line of a different type; lines of the same type
// join with "\n". Markdown markers (#, list bullets, "> ", code fences and
// 4-space indents) are stripped from block content. Lines between an opening
// and closing ``` fence belong to one code block, blank lines included.
func Segment(text string) []models.ContentBlock {
	s := &segmenter{}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, line := range strings.Split(text, "\n") {
		s.line(line)
	}
	s.flush()
	return s.blocks
}

func (s *segmenter) line(line string) {
	if s.inFence {
		if strings.HasPrefix(strings.TrimSpace(line), codeFence) {
			s.inFence = false
			s.flush()
			return
		}
		s.lines = append(s.lines, line)
		return
	}

	if strings.TrimSpace(line) == "" {
		s.flush()
		return
	}

	switch {
	case headingLine.MatchString(line):
		m := headingLine.FindStringSubmatch(line)
		level := len(m[1])
		if s.open != models.BlockHeading || s.level != level {
			s.flush()
		}
		s.open = models.BlockHeading
		s.level = level
		s.lines = append(s.lines, strings.TrimSpace(strings.TrimRight(m[2], "#")))

	case bulletLine.MatchString(line):
		s.switchTo(models.BlockList)
		s.lines = append(s.lines, strings.TrimSpace(bulletLine.FindStringSubmatch(line)[1]))

	case numberedLine.MatchString(line):
		s.switchTo(models.BlockList)
		s.lines = append(s.lines, strings.TrimSpace(numberedLine.FindStringSubmatch(line)[1]))

	case strings.HasPrefix(line, codeFence):
		s.flush()
		s.open = models.BlockCode
		s.language = strings.TrimSpace(strings.TrimPrefix(line, codeFence))
		s.inFence = true

	case strings.HasPrefix(line, "    "):
		s.switchTo(models.BlockCode)
		s.lines = append(s.lines, strings.TrimPrefix(line, "    "))

	case quoteStart.MatchString(line):
		s.switchTo(models.BlockQuote)
		s.lines = append(s.lines, quoteLine.FindStringSubmatch(line)[1])

	default:
		s.switchTo(models.BlockParagraph)
		s.lines = append(s.lines, strings.TrimSpace(line))
	}
}

// switchTo closes the open block when its type differs from t.
func (s *segmenter) switchTo(t models.BlockType) {
	if s.open != t {
		s.flush()
	}
	s.open = t
}

func (s *segmenter) flush() {
	defer s.reset()
	if s.open == "" {
		return
	}
	content := strings.Join(s.lines, "\n")
	if s.open != models.BlockCode {
		content = strings.TrimSpace(content)
	} else {
		content = strings.Trim(content, "\n")
	}
	if content == "" {
		return
	}
	pos := len(s.blocks)
	block := models.ContentBlock{
		ID:       fmt.Sprintf("block-%d", pos),
		Type:     s.open,
		Content:  content,
		Position: pos,
	}
	switch s.open {
	case models.BlockHeading:
		block.Level = s.level
	case models.BlockCode:
		block.Language = s.language
	}
	s.blocks = append(s.blocks, block)
}

func (s *segmenter) reset() {
	s.open = ""
	s.level = 0
	s.language = ""
	s.lines = nil
}

// Flatten joins block contents with blank lines, the inverse shape Segment reads.
func Flatten(blocks []models.ContentBlock) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, b.Content)
	}
	return strings.Join(parts, "\n\n")
}

// Join concatenates block lists and renumbers ids and positions from zero.
func Join(lists ...[]models.ContentBlock) []models.ContentBlock {
	var out []models.ContentBlock
	for _, l := range lists {
		for _, b := range l {
			b.Position = len(out)
			b.ID = fmt.Sprintf("block-%d", b.Position)
			out = append(out, b)
		}
	}
	return out
}
