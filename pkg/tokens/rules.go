// Package tokens estimates token counts per model family and fits text into a
// model's budget by truncating or chunking at sentence boundaries.
package tokens

import (
	"sort"
	"strings"
)

// ModelRule sizes one model family.
type ModelRule struct {
	AverageCharsPerToken float64 `yaml:"average_chars_per_token" json:"averageCharsPerToken"`
	MaxTokens            int     `yaml:"max_tokens" json:"maxTokens"`
	ReservedTokens       int     `yaml:"reserved_tokens" json:"reservedTokens"`
}

// InputBudget is the context left for input after the reserved response tokens.
func (r ModelRule) InputBudget() int {
	if b := r.MaxTokens - r.ReservedTokens; b > 0 {
		return b
	}
	return r.MaxTokens
}

// DefaultRule applies to models the table does not know.
var DefaultRule = ModelRule{AverageCharsPerToken: 4, MaxTokens: 8192, ReservedTokens: 1024}

// defaultRules is matched by exact name first, then by substring with the
// longest key winning.
var defaultRules = map[string]ModelRule{
	"gpt-4o":            {AverageCharsPerToken: 4, MaxTokens: 128000, ReservedTokens: 4096},
	"gpt-4o-mini":       {AverageCharsPerToken: 4, MaxTokens: 128000, ReservedTokens: 4096},
	"gpt-4-turbo":       {AverageCharsPerToken: 4, MaxTokens: 128000, ReservedTokens: 4096},
	"gpt-4.1":           {AverageCharsPerToken: 4, MaxTokens: 1047576, ReservedTokens: 32768},
	"gpt-4":             {AverageCharsPerToken: 4, MaxTokens: 8192, ReservedTokens: 1024},
	"gpt-3.5-turbo":     {AverageCharsPerToken: 4, MaxTokens: 16385, ReservedTokens: 1024},
	"o1":                {AverageCharsPerToken: 4, MaxTokens: 200000, ReservedTokens: 32768},
	"o3":                {AverageCharsPerToken: 4, MaxTokens: 200000, ReservedTokens: 32768},
	"claude-3-5-sonnet": {AverageCharsPerToken: 3.5, MaxTokens: 200000, ReservedTokens: 8192},
	"claude-3-opus":     {AverageCharsPerToken: 3.5, MaxTokens: 200000, ReservedTokens: 4096},
	"claude-3-haiku":    {AverageCharsPerToken: 3.5, MaxTokens: 200000, ReservedTokens: 4096},
	"claude":            {AverageCharsPerToken: 3.5, MaxTokens: 200000, ReservedTokens: 8192},
	"gemini-1.5-pro":    {AverageCharsPerToken: 4, MaxTokens: 2000000, ReservedTokens: 8192},
	"gemini-1.5-flash":  {AverageCharsPerToken: 4, MaxTokens: 1000000, ReservedTokens: 8192},
	"gemini":            {AverageCharsPerToken: 4, MaxTokens: 1000000, ReservedTokens: 8192},
	"llama":             {AverageCharsPerToken: 3.8, MaxTokens: 8192, ReservedTokens: 1024},
	"mistral":           {AverageCharsPerToken: 3.8, MaxTokens: 32768, ReservedTokens: 2048},
	"deepseek":          {AverageCharsPerToken: 3.5, MaxTokens: 64000, ReservedTokens: 4096},
	"qwen":              {AverageCharsPerToken: 3.2, MaxTokens: 32768, ReservedTokens: 2048},
}

// ruleTable is an immutable lookup table.
type ruleTable struct {
	rules map[string]ModelRule
	keys  []string // longest first, ties broken alphabetically
}

func newRuleTable(overrides map[string]ModelRule) *ruleTable {
	t := &ruleTable{rules: make(map[string]ModelRule, len(defaultRules)+len(overrides))}
	for k, r := range defaultRules {
		t.rules[k] = r
	}
	for k, r := range overrides {
		if r.AverageCharsPerToken <= 0 || r.MaxTokens <= 0 {
			continue
		}
		t.rules[strings.ToLower(k)] = r
	}
	for k := range t.rules {
		t.keys = append(t.keys, k)
	}
	sort.Slice(t.keys, func(i, j int) bool {
		if len(t.keys[i]) != len(t.keys[j]) {
			return len(t.keys[i]) > len(t.keys[j])
		}
		return t.keys[i] < t.keys[j]
	})
	return t
}

func (t *ruleTable) lookup(model string) ModelRule {
	m := strings.ToLower(strings.TrimSpace(model))
	if m == "" {
		return DefaultRule
	}
	if r, ok := t.rules[m]; ok {
		return r
	}
	for _, k := range t.keys {
		if strings.Contains(m, k) {
			return t.rules[k]
		}
	}
	return DefaultRule
}
