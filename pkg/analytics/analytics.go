// Package analytics computes word statistics over extracted text.
package analytics

import (
	"sort"
	"strings"
	"unicode"

	"github.com/dtnitsch/llm-page-context/internal/common"
)

// stopwords are skipped by keyword ranking. Page chrome words are included
// because they survive noise filtering on many sites.
var stopwords = toSet(
	"a", "about", "above", "after", "again", "against", "all", "also", "am", "an",
	"and", "any", "are", "as", "at", "be", "because", "been", "before", "being",
	"below", "between", "both", "but", "by", "can", "cannot", "could", "did", "do",
	"does", "doing", "done", "down", "during", "each", "either", "else", "even",
	"ever", "every", "few", "for", "from", "further", "had", "has", "have", "having",
	"he", "her", "here", "hers", "him", "his", "how", "however", "i", "if", "in",
	"into", "is", "it", "its", "itself", "just", "last", "less", "let", "like",
	"made", "make", "many", "may", "me", "might", "more", "most", "much", "must",
	"my", "neither", "never", "next", "no", "nor", "not", "nothing", "now", "of",
	"off", "often", "on", "once", "one", "only", "onto", "or", "other", "our",
	"out", "over", "own", "per", "perhaps", "rather", "same", "see", "she",
	"should", "since", "so", "some", "still", "such", "than", "that", "the",
	"their", "them", "then", "there", "these", "they", "this", "those", "through",
	"thus", "to", "too", "toward", "under", "until", "up", "upon", "us", "use",
	"very", "via", "was", "we", "well", "were", "what", "when", "where", "whether",
	"which", "while", "who", "whom", "whose", "why", "will", "with", "within",
	"without", "would", "yet", "you", "your", "yours",
	"aren't", "can't", "couldn't", "didn't", "doesn't", "don't", "hasn't",
	"haven't", "i'm", "isn't", "it's", "let's", "that's", "there's", "wasn't",
	"weren't", "won't", "wouldn't", "you're",
	"click", "button", "link", "menu", "page", "pages", "website", "site",
	"home", "homepage", "search", "loading", "load", "share", "subscribe",
)

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// IsStopword checks if a word is a common stopword that should be filtered out.
func IsStopword(word string) bool {
	_, ok := stopwords[strings.ToLower(word)]
	return ok
}

// WordCount counts whitespace-delimited words, with each CJK character
// counted as a word of its own.
func WordCount(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		switch {
		case common.IsCJK(r):
			count++
			inWord = false
		case unicode.IsSpace(r):
			inWord = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if !inWord {
				count++
				inWord = true
			}
		}
	}
	return count
}

// WordFrequency counts lowercase words with surrounding punctuation removed,
// skipping stopwords and single letters. CJK runs are not segmented.
func WordFrequency(text string) map[string]int {
	freq := make(map[string]int)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len([]rune(word)) < 2 {
			continue
		}
		if _, skip := stopwords[word]; skip {
			continue
		}
		freq[word]++
	}
	return freq
}

type WordScore struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// TopKeywords returns the n most frequent non-stopwords, ties broken alphabetically.
func TopKeywords(text string, n int) []WordScore {
	return Rank(WordFrequency(text), n)
}

// Rank orders a frequency map by count, ties broken alphabetically, and keeps
// the first n entries.
func Rank(freq map[string]int, n int) []WordScore {
	if n <= 0 {
		return nil
	}
	scores := make([]WordScore, 0, len(freq))
	for w, c := range freq {
		scores = append(scores, WordScore{Word: w, Count: c})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Count != scores[j].Count {
			return scores[i].Count > scores[j].Count
		}
		return scores[i].Word < scores[j].Word
	})
	if len(scores) > n {
		scores = scores[:n]
	}
	return scores
}

// Words returns just the keyword strings of TopKeywords.
func Words(scores []WordScore) []string {
	out := make([]string, len(scores))
	for i, s := range scores {
		out[i] = s.Word
	}
	return out
}
