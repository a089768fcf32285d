package detector

import (
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"
	"github.com/pemistahl/lingua-go"
	"github.com/rs/zerolog"

	"github.com/dtnitsch/llm-page-context/internal/common"
)

// CJKThreshold is the CJK share above which text is classified as Chinese.
const CJKThreshold = 0.30

// OpenGraph parses the og: properties of doc. The returned value is never
// nil; on error it holds whatever was parsed before the failure.
func OpenGraph(doc *goquery.Document) (*opengraph.OpenGraph, error) {
	og := opengraph.NewOpenGraph()
	if doc == nil {
		return og, nil
	}
	html, err := goquery.OuterHtml(doc.Find("head").First())
	if err != nil {
		return og, err
	}
	if html == "" {
		return og, nil
	}
	return og, og.ProcessHTML(strings.NewReader(html))
}

// SiteName prefers og:site_name, then the application-name style meta tags,
// then the hostname of pageURL.
func SiteName(doc *goquery.Document, pageURL *url.URL, logger zerolog.Logger) string {
	if doc != nil {
		og, err := OpenGraph(doc)
		if err != nil {
			logger.Debug().Err(err).Msg("opengraph parse failed")
		}
		if name := strings.TrimSpace(og.SiteName); name != "" {
			return name
		}
		for _, sel := range []string{
			"meta[property='og:site_name']",
			"meta[name='application-name']",
			"meta[name='apple-mobile-web-app-title']",
		} {
			if v, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	if pageURL != nil {
		return pageURL.Hostname()
	}
	return ""
}

// Guesser infers a language code from plain text.
type Guesser interface {
	Guess(text string) string
}

// CJKGuesser returns "zh" when more than CJKThreshold of the text is CJK, else "en".
type CJKGuesser struct{}

func (CJKGuesser) Guess(text string) string {
	if common.CJKRatio(text) > CJKThreshold {
		return "zh"
	}
	return "en"
}

// Language resolves the page language: <html lang>, then language meta tags,
// then guesser over text.
func Language(doc *goquery.Document, text string, guesser Guesser) string {
	if doc != nil {
		if lang, ok := doc.Find("html").First().Attr("lang"); ok {
			if code := primaryTag(lang); code != "" {
				return code
			}
		}
		if code := primaryTag(metaContent(doc, "http-equiv", "content-language")); code != "" {
			return code
		}
		if code := primaryTag(metaContent(doc, "name", "language")); code != "" {
			return code
		}
		if code := primaryTag(metaContent(doc, "property", "og:locale")); code != "" {
			return code
		}
	}
	if guesser == nil {
		guesser = CJKGuesser{}
	}
	return guesser.Guess(text)
}

// metaContent returns the content of the first meta tag whose attr equals
// value, compared case-insensitively.
func metaContent(doc *goquery.Document, attr, value string) string {
	var content string
	doc.Find("meta[" + attr + "]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.EqualFold(strings.TrimSpace(s.AttrOr(attr, "")), value) {
			return true
		}
		content = s.AttrOr("content", "")
		return false
	})
	return content
}

// primaryTag reduces "en-US", "zh_CN" or "en, fr" to "en" / "zh".
func primaryTag(lang string) string {
	lang = strings.TrimSpace(strings.ToLower(lang))
	if i := strings.IndexAny(lang, ",;"); i >= 0 {
		lang = strings.TrimSpace(lang[:i])
	}
	if i := strings.IndexAny(lang, "-_"); i >= 0 {
		lang = lang[:i]
	}
	if len(lang) < 2 || len(lang) > 3 {
		return ""
	}
	for _, r := range lang {
		if r < 'a' || r > 'z' {
			return ""
		}
	}
	return lang
}

// LinguaGuesser identifies languages with lingua-go. The detector is built on
// first use since loading its models is slow. Text lingua cannot classify
// falls back to CJKGuesser.
type LinguaGuesser struct {
	logger zerolog.Logger

	once     sync.Once
	detector lingua.LanguageDetector
}

func NewLinguaGuesser(logger zerolog.Logger) *LinguaGuesser {
	return &LinguaGuesser{logger: logger.With().Str("component", "lingua").Logger()}
}

// minLinguaRunes is the sample size below which lingua is skipped.
const minLinguaRunes = 20

func (g *LinguaGuesser) Guess(text string) string {
	sample := sampleText(text, 2000)
	if len([]rune(sample)) < minLinguaRunes {
		return CJKGuesser{}.Guess(text)
	}
	g.once.Do(func() {
		g.detector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithMinimumRelativeDistance(0.1).
			Build()
		g.logger.Debug().Msg("lingua language detector built")
	})
	lang, ok := g.detector.DetectLanguageOf(sample)
	if !ok {
		return CJKGuesser{}.Guess(text)
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}

func sampleText(text string, maxRunes int) string {
	text = strings.TrimSpace(text)
	r := []rune(text)
	if len(r) > maxRunes {
		return string(r[:maxRunes])
	}
	return text
}
