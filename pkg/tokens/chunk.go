package tokens

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultOverlapTokens is the context carried from one chunk into the next.
const DefaultOverlapTokens = 100

// minSentenceUnits is the sentence count below which chunking splits on paragraphs.
const minSentenceUnits = 3

// Chunk is one budget-bounded slice. Text starts with OverlapLen bytes copied
// from the end of the previous chunk; Body is the new material.
type Chunk struct {
	Text       string `json:"text"`
	OverlapLen int    `json:"overlapLen"`
	Tokens     int    `json:"tokens"`
}

func (c Chunk) Body() string    { return c.Text[c.OverlapLen:] }
func (c Chunk) Overlap() string { return c.Text[:c.OverlapLen] }

// SmartChunk returns the chunk texts produced by SplitChunks.
func (e *Estimator) SmartChunk(text string, maxTokensPerChunk int, model string, overlapTokens int) []string {
	chunks := e.SplitChunks(text, maxTokensPerChunk, model, overlapTokens)
	if chunks == nil {
		return nil
	}
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

// SplitChunks packs sentences (or paragraphs, when there are fewer than three
// sentences) greedily into chunks of at most maxTokensPerChunk. Each chunk but
// the first may open with a sentence-aligned tail of the previous one, of at
// most overlapTokens. A unit larger than the budget is split at spaces into
// chunks of its own. Bodies concatenate back to text exactly. maxTokensPerChunk
// <= 0 means the model's input budget; overlapTokens < 0 means the default.
func (e *Estimator) SplitChunks(text string, maxTokensPerChunk int, model string, overlapTokens int) []Chunk {
	if text == "" {
		return nil
	}
	limit := e.budget(maxTokensPerChunk, model)
	if overlapTokens < 0 {
		overlapTokens = DefaultOverlapTokens
	}
	if overlapTokens >= limit {
		overlapTokens = limit / 2
	}

	if n := e.EstimateTokens(text, model); n <= limit {
		return []Chunk{{Text: text, Tokens: n}}
	}

	units := SplitSentences(text)
	if len(units) < minSentenceUnits {
		units = SplitParagraphs(text)
	}

	p := &packer{e: e, model: model, limit: limit, overlapTokens: overlapTokens}
	for _, u := range units {
		if e.EstimateTokens(u, model) > limit {
			p.flush()
			for _, piece := range e.forceSplit(u, limit, model) {
				p.emit("", piece)
			}
			continue
		}
		p.add(u)
	}
	p.flush()
	return p.chunks
}

type packer struct {
	e             *Estimator
	model         string
	limit         int
	overlapTokens int

	chunks  []Chunk
	overlap string
	body    strings.Builder
}

func (p *packer) add(unit string) {
	if p.body.Len() == 0 {
		p.overlap = p.nextOverlap(unit)
		p.body.WriteString(unit)
		return
	}
	candidate := p.overlap + p.body.String() + unit
	if p.e.EstimateTokens(candidate, p.model) > p.limit {
		p.flush()
		p.overlap = p.nextOverlap(unit)
	}
	p.body.WriteString(unit)
}

func (p *packer) flush() {
	if p.body.Len() == 0 {
		return
	}
	p.emit(p.overlap, p.body.String())
	p.overlap = ""
	p.body.Reset()
}

func (p *packer) emit(overlap, body string) {
	if body == "" {
		return
	}
	text := overlap + body
	p.chunks = append(p.chunks, Chunk{
		Text:       text,
		OverlapLen: len(overlap),
		Tokens:     p.e.EstimateTokens(text, p.model),
	})
}

// nextOverlap is the tail of the last chunk's body, dropped when it would push
// unit past the budget.
func (p *packer) nextOverlap(unit string) string {
	if p.overlapTokens <= 0 || len(p.chunks) == 0 {
		return ""
	}
	tail := p.e.overlapTail(p.chunks[len(p.chunks)-1].Body(), p.overlapTokens, p.model)
	if tail == "" || p.e.EstimateTokens(tail+unit, p.model) > p.limit {
		return ""
	}
	return tail
}

// overlapTail returns at most maxTokens from the end of text, starting at a
// sentence boundary when one exists in the window, else at a word boundary.
func (e *Estimator) overlapTail(text string, maxTokens int, model string) string {
	if text == "" || maxTokens <= 0 {
		return ""
	}
	if e.EstimateTokens(text, model) <= maxTokens {
		return text
	}
	runes := []rune(text)
	size := int(float64(maxTokens) * e.charsPerToken(text, model))
	for size > 0 {
		if size > len(runes) {
			size = len(runes)
		}
		window := string(runes[len(runes)-size:])
		tail := alignTail(window)
		if tail != "" && e.EstimateTokens(tail, model) <= maxTokens {
			return tail
		}
		size = size * 9 / 10
	}
	return ""
}

// alignTail drops the partial sentence (or word) at the start of window.
func alignTail(window string) string {
	for i, r := range window {
		if !isSentenceEnd(r) {
			continue
		}
		rest := window[i+utf8.RuneLen(r):]
		if trimmed := strings.TrimLeftFunc(rest, unicode.IsSpace); trimmed != "" && trimmed != rest {
			return trimmed
		}
	}
	if i := strings.IndexFunc(window, unicode.IsSpace); i >= 0 {
		return strings.TrimLeftFunc(window[i:], unicode.IsSpace)
	}
	return window
}

// forceSplit cuts an oversized unit into pieces that each fit limit, breaking
// after the last space of the longest fitting prefix. Pieces concatenate to unit.
func (e *Estimator) forceSplit(unit string, limit int, model string) []string {
	var pieces []string
	rest := []rune(unit)
	for len(rest) > 0 {
		if e.EstimateTokens(string(rest), model) <= limit {
			pieces = append(pieces, string(rest))
			break
		}
		n := longestFit(rest, limit, func(s string) int { return e.EstimateTokens(s, model) })
		cut := n
		for i := n - 1; i > 0; i-- {
			if unicode.IsSpace(rest[i]) {
				cut = i + 1
				break
			}
		}
		if cut != n && e.EstimateTokens(string(rest[:cut]), model) > limit {
			cut = n
		}
		pieces = append(pieces, string(rest[:cut]))
		rest = rest[cut:]
	}
	return pieces
}

// longestFit binary-searches the longest prefix of runes estimated within
// limit. It returns at least 1 so splitting always makes progress.
func longestFit(runes []rune, limit int, estimate func(string) int) int {
	lo, hi := 1, len(runes)
	best := 1
	for lo <= hi {
		mid := (lo + hi) / 2
		if estimate(string(runes[:mid])) <= limit {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best
}

// SplitSentences splits text after sentence-ending punctuation. Trailing
// whitespace stays with its sentence so the pieces concatenate to text.
func SplitSentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isSentenceEnd(runes[i]) {
			continue
		}
		j := i + 1
		for j < len(runes) && (isSentenceEnd(runes[j]) || isClosing(runes[j])) {
			j++
		}
		cjk := isCJKEnd(runes[i])
		k := j
		for k < len(runes) && unicode.IsSpace(runes[k]) {
			k++
		}
		if k == j && !cjk && k < len(runes) {
			// "3.14" or "e.g.x": not a boundary.
			i = j - 1
			continue
		}
		out = append(out, string(runes[start:k]))
		start = k
		i = k - 1
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}

// SplitParagraphs splits text after each run of blank lines.
func SplitParagraphs(text string) []string {
	var out []string
	start := 0
	for {
		i := strings.Index(text[start:], "\n\n")
		if i < 0 {
			break
		}
		end := start + i
		for end < len(text) && (text[end] == '\n' || text[end] == '\r' || text[end] == ' ' || text[end] == '\t') {
			end++
		}
		out = append(out, text[start:end])
		start = end
		if start >= len(text) {
			break
		}
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func isClosing(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’', '」', '』', '）':
		return true
	}
	return false
}

func isCJKEnd(r rune) bool {
	return r == '。' || r == '！' || r == '？'
}
