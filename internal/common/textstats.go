package common

import "unicode"

// IsCJK reports whether r is a Han, Hiragana, Katakana or Hangul character.
func IsCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}

// TextStats counts character classes of a string. Counts are in runes.
type TextStats struct {
	Runes   int
	CJK     int
	Symbols int // not letter, digit, whitespace or CJK
}

// Stats computes TextStats for s.
func Stats(s string) TextStats {
	var st TextStats
	for _, r := range s {
		st.Runes++
		switch {
		case IsCJK(r):
			st.CJK++
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r):
		default:
			st.Symbols++
		}
	}
	return st
}

// CJKRatio is the fraction of runes in s that are CJK. Zero for empty input.
func (st TextStats) CJKRatio() float64 {
	if st.Runes == 0 {
		return 0
	}
	return float64(st.CJK) / float64(st.Runes)
}

// SymbolRatio is the fraction of runes in s that are symbols or punctuation.
func (st TextStats) SymbolRatio() float64 {
	if st.Runes == 0 {
		return 0
	}
	return float64(st.Symbols) / float64(st.Runes)
}

// CJKRatio is shorthand for Stats(s).CJKRatio().
func CJKRatio(s string) float64 {
	return Stats(s).CJKRatio()
}
