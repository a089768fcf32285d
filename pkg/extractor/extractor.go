// Package extractor selects a subset of content blocks by a small filter
// language, e.g. "type:heading|code,len:>=40".
package extractor

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dtnitsch/llm-page-context/models"
)

type Strategy struct {
	MinLength  int
	BlockTypes map[models.BlockType]struct{}
	Contains   string
}

func ParseStrategy(strategyStr string) (*Strategy, error) {
	if strings.TrimSpace(strategyStr) == "" {
		return nil, nil // No-op strategy
	}

	strategy := &Strategy{}
	for _, part := range strings.Split(strategyStr, ",") {
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid strategy part: %s", part)
		}
		key := strings.TrimSpace(kv[0])
		value := strings.TrimSpace(kv[1])

		switch key {
		case "len":
			if !strings.HasPrefix(value, ">=") {
				return nil, fmt.Errorf("unsupported length operator in: %s", value)
			}
			n, err := strconv.Atoi(strings.TrimSpace(value[2:]))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid length value: %s", value)
			}
			strategy.MinLength = n
		case "type":
			if strategy.BlockTypes == nil {
				strategy.BlockTypes = make(map[models.BlockType]struct{})
			}
			for _, t := range strings.Split(value, "|") {
				bt := models.BlockType(strings.ToLower(strings.TrimSpace(t)))
				if !validType(bt) {
					return nil, fmt.Errorf("unknown block type: %s", t)
				}
				strategy.BlockTypes[bt] = struct{}{}
			}
		case "has":
			strategy.Contains = strings.ToLower(value)
		default:
			return nil, fmt.Errorf("unknown strategy key: %s", key)
		}
	}
	return strategy, nil
}

func validType(t models.BlockType) bool {
	switch t {
	case models.BlockHeading, models.BlockParagraph, models.BlockList,
		models.BlockCode, models.BlockQuote, models.BlockTable:
		return true
	}
	return false
}

// Match reports whether block passes every condition of the strategy.
func (s *Strategy) Match(block models.ContentBlock) bool {
	if s == nil {
		return true
	}
	if utf8.RuneCountInString(block.Content) < s.MinLength {
		return false
	}
	if len(s.BlockTypes) > 0 {
		if _, ok := s.BlockTypes[block.Type]; !ok {
			return false
		}
	}
	if s.Contains != "" && !strings.Contains(strings.ToLower(block.Content), s.Contains) {
		return false
	}
	return true
}

// FilterBlocks keeps matching blocks in order. IDs and positions are left as
// they were so a kept block can still be located in the full result.
func FilterBlocks(blocks []models.ContentBlock, strategy *Strategy) []models.ContentBlock {
	if strategy == nil {
		return blocks
	}
	out := make([]models.ContentBlock, 0, len(blocks))
	for _, b := range blocks {
		if strategy.Match(b) {
			out = append(out, b)
		}
	}
	return out
}

// FilterContent returns a copy of content with only the matching blocks.
func FilterContent(content *models.ProcessedContent, strategy *Strategy) *models.ProcessedContent {
	if content == nil || strategy == nil {
		return content
	}
	filtered := *content
	filtered.Blocks = FilterBlocks(content.Blocks, strategy)
	return &filtered
}
