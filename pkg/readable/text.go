package readable

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Elements that start a new paragraph or a new line in extracted text.
var (
	paragraphElements = map[string]bool{
		"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
		"pre": true, "blockquote": true, "table": true, "ul": true, "ol": true, "dl": true,
		"section": true, "article": true, "main": true, "header": true, "footer": true,
		"figure": true, "hr": true, "address": true, "details": true,
	}
	lineElements = map[string]bool{
		"div": true, "li": true, "tr": true, "dt": true, "dd": true,
		"figcaption": true, "summary": true, "caption": true,
	}
)

var (
	inlineSpace = regexp.MustCompile(`[ \t\f\v\r\x{00a0}]+`)
	blankRuns   = regexp.MustCompile(`\n{3,}`)
)

// TextContent renders the text under sel with line breaks at block
// boundaries. Runs of spaces collapse to one and paragraphs are separated by
// a single blank line. Line breaks inside <pre> are kept.
func TextContent(sel *goquery.Selection) string {
	w := &textWriter{}
	for _, n := range sel.Nodes {
		w.walk(n, false)
	}
	return normalizeText(w.b.String())
}

// textWriter defers line breaks so adjacent block boundaries collapse into
// the largest one requested.
type textWriter struct {
	b       strings.Builder
	pending int
}

func (w *textWriter) brk(n int) {
	if n > w.pending {
		w.pending = n
	}
}

func (w *textWriter) text(s string) {
	if strings.TrimSpace(s) == "" {
		if w.pending > 0 || s == "" {
			return
		}
		s = " "
	}
	if w.pending > 0 && w.b.Len() > 0 {
		w.b.WriteString(strings.Repeat("\n", w.pending))
	}
	w.pending = 0
	w.b.WriteString(s)
}

func (w *textWriter) walk(n *html.Node, inPre bool) {
	switch n.Type {
	case html.TextNode:
		if inPre {
			w.text(n.Data)
		} else {
			w.text(collapseSpace(n.Data))
		}
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		case "br":
			w.brk(1)
			return
		case "td", "th":
			w.text(" ")
		case "pre":
			inPre = true
		}
	}

	sep := 0
	if n.Type == html.ElementNode {
		if paragraphElements[n.Data] {
			sep = 2
		} else if lineElements[n.Data] {
			sep = 1
		}
	}
	w.brk(sep)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c, inPre)
	}
	w.brk(sep)
}

// collapseSpace folds whitespace runs, including newlines, to single spaces.
// Edge spaces survive so words stay apart across inline elements.
func collapseSpace(s string) string {
	inner := strings.Join(strings.Fields(s), " ")
	if inner == "" {
		return s
	}
	if isSpaceByte(s[0]) {
		inner = " " + inner
	}
	if isSpaceByte(s[len(s)-1]) {
		inner += " "
	}
	return inner
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func normalizeText(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(inlineSpace.ReplaceAllString(line, " "))
	}
	out := blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(out)
}

// CharCount is the length measure compared against char thresholds.
func CharCount(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

const DefaultExcerptLength = 200

var sentenceEnds = []rune{'.', '!', '?', '。', '！', '？'}

// Excerpt returns roughly the first maxRunes characters of text, cut after the
// last sentence end when one falls in the second half of the window, else at
// a word boundary with an ellipsis.
func Excerpt(text string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = DefaultExcerptLength
	}
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= maxRunes {
		return flat
	}

	window := runes[:maxRunes]
	for i := len(window) - 1; i >= maxRunes/2; i-- {
		if isSentenceEnd(window[i]) {
			return string(window[:i+1])
		}
	}
	cut := string(window)
	if i := strings.LastIndex(cut, " "); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "..."
}

func isSentenceEnd(r rune) bool {
	for _, e := range sentenceEnds {
		if r == e {
			return true
		}
	}
	return false
}
