package tokens

import (
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dtnitsch/llm-page-context/internal/common"
)

// Adjustment thresholds and multipliers. They compose multiplicatively.
const (
	CJKRatioThreshold    = 0.30
	CJKMultiplier        = 1.2
	CodeDensityThreshold = 0.10
	CodeMultiplier       = 1.15
	SymbolRatioThreshold = 0.10
	SymbolMultiplier     = 1.1
)

// Ellipsis marks a hard cut.
const Ellipsis = "..."

var codeTokenPattern = regexp.MustCompile(`\b(?:function|class|const|let|var|def|func|return|import|public|private|static|void|struct)\b|[{};]|=>|==|!=|\(\)`)

// Estimator is a pure, re-entrant token estimator over a static rule table.
type Estimator struct {
	table *ruleTable
}

// NewEstimator builds an estimator. overrides add or replace model rules.
func NewEstimator(overrides map[string]ModelRule) *Estimator {
	return &Estimator{table: newRuleTable(overrides)}
}

var defaultEstimator = NewEstimator(nil)

// Default returns the estimator backed by the built-in rule table.
func Default() *Estimator { return defaultEstimator }

// Rule returns the rule for model: exact match, then the longest key
// contained in the name, then DefaultRule.
func (e *Estimator) Rule(model string) ModelRule {
	return e.table.lookup(model)
}

// EstimateTokens is 0 for empty text and at least 1 otherwise. The content
// multiplier scales the rune count before rounding, so a single rune is
// always one token.
func (e *Estimator) EstimateTokens(text, model string) int {
	if text == "" {
		return 0
	}
	rule := e.Rule(model)
	runes := float64(utf8.RuneCountInString(text))

	tokens := int(math.Ceil(runes * Multiplier(text) / rule.AverageCharsPerToken))
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// Count implements Counter.
func (e *Estimator) Count(text, model string) (int, error) {
	return e.EstimateTokens(text, model), nil
}

// Multiplier is the combined content adjustment applied to the base estimate.
func Multiplier(text string) float64 {
	st := common.Stats(text)
	m := 1.0
	if st.CJKRatio() > CJKRatioThreshold {
		m *= CJKMultiplier
	}
	if IsCodeLike(text) {
		m *= CodeMultiplier
	}
	if st.SymbolRatio() > SymbolRatioThreshold {
		m *= SymbolMultiplier
	}
	return m
}

// IsCodeLike reports whether code tokens (keywords, braces, semicolons,
// arrows) make up more than CodeDensityThreshold of the words in text.
func IsCodeLike(text string) bool {
	words := len(strings.Fields(text))
	if words == 0 {
		return false
	}
	hits := len(codeTokenPattern.FindAllStringIndex(text, -1))
	return float64(hits)/float64(words) > CodeDensityThreshold
}

// FitsBudget reports whether text fits in maxTokens; maxTokens <= 0 means the
// model's input budget.
func (e *Estimator) FitsBudget(text string, maxTokens int, model string) bool {
	return e.EstimateTokens(text, model) <= e.budget(maxTokens, model)
}

func (e *Estimator) budget(maxTokens int, model string) int {
	if maxTokens > 0 {
		return maxTokens
	}
	return e.Rule(model).InputBudget()
}

// charsPerToken is the effective ratio for text after adjustments.
func (e *Estimator) charsPerToken(text, model string) float64 {
	n := utf8.RuneCountInString(text)
	t := e.EstimateTokens(text, model)
	if n == 0 || t == 0 {
		return e.Rule(model).AverageCharsPerToken
	}
	return float64(n) / float64(t)
}

// TruncateToTokenLimit returns text unchanged when it fits. Otherwise it
// aims 10% under the budget and cuts after the last sentence end past 70% of
// that target, or hard-cuts and appends Ellipsis. Budgets too small for the
// marker get a bare prefix, never an empty string.
func (e *Estimator) TruncateToTokenLimit(text string, maxTokens int, model string) string {
	limit := e.budget(maxTokens, model)
	if e.EstimateTokens(text, model) <= limit {
		return text
	}

	runes := []rune(text)
	target := int(float64(limit) * e.charsPerToken(text, model) * 0.9)
	for attempt := 0; target > 0; attempt++ {
		if target > len(runes) {
			target = len(runes)
		}
		out := cutAtSentence(runes[:target])
		if e.EstimateTokens(out, model) <= limit {
			return out
		}
		// Adjustments can make a prefix denser than the whole; shrink and retry.
		target = int(float64(target) * 0.9)
		if attempt > 50 {
			break
		}
	}
	// Not even the marker fits; keep the longest prefix that does.
	n := longestFit(runes, limit, func(s string) int { return e.EstimateTokens(s, model) })
	return string(runes[:n])
}

func cutAtSentence(window []rune) string {
	floor := int(float64(len(window)) * 0.7)
	for i := len(window) - 1; i >= floor && i >= 0; i-- {
		if isSentenceEnd(window[i]) {
			return string(window[:i+1])
		}
	}
	return strings.TrimRightFunc(string(window), unicode.IsSpace) + Ellipsis
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？', '…':
		return true
	}
	return false
}

// Counter counts tokens for a model.
type Counter interface {
	Count(text, model string) (int, error)
}
