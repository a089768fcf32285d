// Package mapreduce aggregates keyword counts across the pages of a batch run.
package mapreduce

import (
	"fmt"
	"strings"

	"github.com/dtnitsch/llm-page-context/pkg/analytics"
)

// Map generates a word frequency map for a single document's content.
func Map(content string) map[string]int {
	return analytics.WordFrequency(content)
}

// Reduce aggregates a slice of word frequency maps into a single map.
func Reduce(intermediate []map[string]int) map[string]int {
	finalResults := make(map[string]int)

	for _, counts := range intermediate {
		for word, count := range counts {
			finalResults[word] += count
		}
	}

	return finalResults
}

// isValidKeyword drops obviously broken tokens: a trailing ":" or "=", an
// unmatched opening bracket or an odd number of quotes.
func isValidKeyword(word string) bool {
	if strings.HasSuffix(word, ":") || strings.HasSuffix(word, "=") {
		return false
	}
	for _, pair := range [][2]string{{"(", ")"}, {"[", "]"}, {"{", "}"}} {
		if strings.Contains(word, pair[0]) && !strings.Contains(word, pair[1]) {
			return false
		}
	}
	return strings.Count(word, "\"")%2 == 0 && strings.Count(word, "'")%2 == 0
}

// Top ranks the valid keywords of wordCounts.
func Top(wordCounts map[string]int, n int) []analytics.WordScore {
	valid := make(map[string]int, len(wordCounts))
	for k, v := range wordCounts {
		if isValidKeyword(k) {
			valid[k] = v
		}
	}
	return analytics.Rank(valid, n)
}

// TopKeywords formats Top as "word:count" strings (e.g. "learning:1153").
func TopKeywords(wordCounts map[string]int, n int) []string {
	top := Top(wordCounts, n)
	keywords := make([]string, len(top))
	for i, s := range top {
		keywords[i] = fmt.Sprintf("%s:%d", s.Word, s.Count)
	}
	return keywords
}
