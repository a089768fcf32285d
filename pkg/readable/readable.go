// Package readable isolates the main content of a page. It runs a
// readability-style parser when the extraction mode asks for it and falls back
// to plain text extraction when the parser is unavailable, finds no article,
// or returns too little text.
package readable

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/dtnitsch/llm-page-context/models"
	"github.com/dtnitsch/llm-page-context/pkg/detector"
	"github.com/dtnitsch/llm-page-context/pkg/filter"
)

// Method names the path that produced the content.
type Method string

const (
	MethodReadability Method = "readability"
	MethodText        Method = "text"
)

// MetadataDelimiter separates the metadata preamble from the content.
const MetadataDelimiter = "\n---\n\n"

// Options are the knobs handed to the readability parser.
type Options struct {
	CharThreshold    int
	KeepClasses      bool
	MaxElemsToDivide int
}

// Article is what a readability parser returns for a page.
type Article struct {
	Title         string
	Content       string
	TextContent   string
	Length        int
	Excerpt       string
	Byline        string
	SiteName      string
	Lang          string
	PublishedTime *time.Time
}

// Readability parses doc into an article. A nil article with a nil error
// means the parser found nothing worth keeping. Implementations may mutate doc.
type Readability interface {
	Parse(doc *goquery.Document, pageURL *url.URL, opts Options) (*Article, error)
}

// ReadabilityFunc adapts a function to Readability.
type ReadabilityFunc func(doc *goquery.Document, pageURL *url.URL, opts Options) (*Article, error)

func (f ReadabilityFunc) Parse(doc *goquery.Document, pageURL *url.URL, opts Options) (*Article, error) {
	return f(doc, pageURL, opts)
}

// Loader obtains a Readability implementation. It is called at most once per Isolator.
type Loader func() (Readability, error)

var ErrUnavailable = errors.New("readability parser unavailable")

// Reasons an Attempt did not produce content.
const (
	ReasonUnavailable    = "unavailable"
	ReasonParseError     = "parse error"
	ReasonNoArticle      = "no article"
	ReasonBelowThreshold = "below threshold"
)

// Attempt records one isolation path that was tried.
type Attempt struct {
	Method Method
	Length int
	Reason string
}

// TooShortError is returned when every attempted path produced less text than
// the char threshold.
type TooShortError struct {
	Length    int
	Threshold int
	Attempts  []Attempt
}

func (e *TooShortError) Error() string {
	return fmt.Sprintf("extracted %d characters, need at least %d", e.Length, e.Threshold)
}

// TriedReadability reports whether a readability parser actually ran before
// the failure. An unavailable parser does not count.
func (e *TooShortError) TriedReadability() bool {
	for _, a := range e.Attempts {
		if a.Method == MethodReadability && a.Reason != ReasonUnavailable {
			return true
		}
	}
	return false
}

// Isolation is the result of a successful Isolate call.
type Isolation struct {
	Content  models.ExtractedContent
	Method   Method
	Attempts []Attempt
}

// Isolator runs the readability and text paths. It is safe for concurrent use.
type Isolator struct {
	logger  zerolog.Logger
	filter  *filter.Remover
	guesser detector.Guesser
	load    Loader

	once    sync.Once
	impl    Readability
	loadErr error
}

type Option func(*Isolator)

// WithLoader replaces the go-readability loader.
func WithLoader(l Loader) Option {
	return func(i *Isolator) { i.load = l }
}

// WithReadability installs an already-loaded implementation.
func WithReadability(r Readability) Option {
	return func(i *Isolator) {
		i.load = func() (Readability, error) { return r, nil }
	}
}

func WithGuesser(g detector.Guesser) Option {
	return func(i *Isolator) { i.guesser = g }
}

func NewIsolator(logger zerolog.Logger, opts ...Option) *Isolator {
	iso := &Isolator{
		logger:  logger.With().Str("component", "isolator").Logger(),
		filter:  filter.New(logger),
		guesser: detector.CJKGuesser{},
		load:    GoReadabilityLoader,
	}
	for _, opt := range opts {
		opt(iso)
	}
	return iso
}

// readability loads the parser once and caches the outcome, failures included.
func (iso *Isolator) readability() (Readability, error) {
	iso.once.Do(func() {
		if iso.load == nil {
			iso.loadErr = ErrUnavailable
		} else {
			iso.impl, iso.loadErr = iso.load()
			if iso.loadErr == nil && iso.impl == nil {
				iso.loadErr = ErrUnavailable
			}
		}
		if iso.loadErr != nil {
			iso.logger.Warn().Err(iso.loadErr).Msg("readability unavailable, using text extraction")
		}
	})
	return iso.impl, iso.loadErr
}

// Isolate extracts the main content of doc according to merged. doc is never
// modified. A non-empty metadataText is prepended to Content and TextContent
// behind MetadataDelimiter. When no path yields merged's char threshold the
// error is a *TooShortError.
func (iso *Isolator) Isolate(ctx context.Context, doc *goquery.Document, pageURL *url.URL, merged models.MergedConfig, metadataText string) (Isolation, error) {
	if err := ctx.Err(); err != nil {
		return Isolation{}, err
	}
	if doc == nil {
		return Isolation{}, errors.New("nil document")
	}

	threshold := merged.Readability.Threshold()
	var attempts []Attempt

	if merged.Mode == models.ModeReadability {
		content, attempt := iso.readabilityPath(doc, pageURL, merged, threshold)
		attempts = append(attempts, attempt)
		if content != nil {
			iso.finish(content, doc, pageURL, merged, metadataText)
			return Isolation{Content: *content, Method: MethodReadability, Attempts: attempts}, nil
		}
		iso.logger.Debug().Str("reason", attempt.Reason).Msg("falling back to text extraction")
	}

	content, attempt := iso.textPath(doc, merged, threshold)
	attempts = append(attempts, attempt)
	if content == nil {
		return Isolation{Method: MethodText, Attempts: attempts}, &TooShortError{
			Length:    attempt.Length,
			Threshold: threshold,
			Attempts:  attempts,
		}
	}
	iso.finish(content, doc, pageURL, merged, metadataText)
	return Isolation{Content: *content, Method: MethodText, Attempts: attempts}, nil
}

func (iso *Isolator) readabilityPath(doc *goquery.Document, pageURL *url.URL, merged models.MergedConfig, threshold int) (*models.ExtractedContent, Attempt) {
	attempt := Attempt{Method: MethodReadability}

	impl, err := iso.readability()
	if err != nil {
		attempt.Reason = ReasonUnavailable
		return nil, attempt
	}

	clone := goquery.CloneDocument(doc)
	iso.filter.Filter(clone.Selection, merged.Remove)

	article, err := impl.Parse(clone, pageURL, Options{
		CharThreshold:    threshold,
		KeepClasses:      merged.Readability.KeepClassesEnabled(),
		MaxElemsToDivide: merged.Readability.MaxElems(),
	})
	if err != nil {
		iso.logger.Warn().Err(err).Msg("readability parse failed")
		attempt.Reason = ReasonParseError
		return nil, attempt
	}
	if article == nil {
		attempt.Reason = ReasonNoArticle
		return nil, attempt
	}

	text := articleText(article)
	attempt.Length = CharCount(text)
	if attempt.Length < threshold {
		attempt.Reason = ReasonBelowThreshold
		return nil, attempt
	}

	return &models.ExtractedContent{
		Title:         strings.TrimSpace(article.Title),
		Content:       article.Content,
		TextContent:   text,
		Length:        attempt.Length,
		Excerpt:       strings.TrimSpace(article.Excerpt),
		SiteName:      strings.TrimSpace(article.SiteName),
		Lang:          article.Lang,
		Byline:        strings.TrimSpace(article.Byline),
		PublishedTime: article.PublishedTime,
	}, attempt
}

// articleText renders the article HTML with the same block breaks as the
// text path. The parser's own TextContent is used only when Content is empty
// or unparsable.
func articleText(article *Article) string {
	if strings.TrimSpace(article.Content) != "" {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content)); err == nil {
			if text := TextContent(doc.Find("body")); text != "" {
				return text
			}
		}
	}
	return normalizeText(article.TextContent)
}

func (iso *Isolator) textPath(doc *goquery.Document, merged models.MergedConfig, threshold int) (*models.ExtractedContent, Attempt) {
	attempt := Attempt{Method: MethodText}

	clone := goquery.CloneDocument(doc)
	body := clone.Find("body").First()
	if body.Length() == 0 {
		body = clone.Selection
	}
	iso.filter.Filter(body, merged.Remove)

	text := TextContent(body)
	attempt.Length = CharCount(text)
	if attempt.Length < threshold {
		attempt.Reason = ReasonBelowThreshold
		return nil, attempt
	}

	html, err := body.Html()
	if err != nil {
		html = ""
	}
	return &models.ExtractedContent{
		Content:     strings.TrimSpace(html),
		TextContent: text,
		Length:      attempt.Length,
	}, attempt
}

// finish fills the fields both paths share and applies the metadata preamble.
func (iso *Isolator) finish(c *models.ExtractedContent, doc *goquery.Document, pageURL *url.URL, merged models.MergedConfig, metadataText string) {
	if c.Title == "" {
		c.Title = documentTitle(doc)
	}
	if !merged.Readability.PreserveLinksEnabled() {
		c.Content = unwrapLinks(c.Content)
	}
	c.Excerpt = Excerpt(c.TextContent, DefaultExcerptLength)
	if c.SiteName == "" {
		c.SiteName = detector.SiteName(doc, pageURL, iso.logger)
	}
	c.Lang = detector.Language(doc, c.TextContent, iso.guesser)

	if metadataText = strings.TrimSpace(metadataText); metadataText != "" {
		c.Content = metadataText + MetadataDelimiter + c.Content
		c.TextContent = metadataText + MetadataDelimiter + c.TextContent
	}
}

func documentTitle(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return strings.Join(strings.Fields(doc.Find("h1").First().Text()), " ")
}

// unwrapLinks replaces every <a> in fragment with its children.
func unwrapLinks(fragment string) string {
	if !strings.Contains(fragment, "<a") {
		return fragment
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		s.ReplaceWithSelection(s.Contents())
	})
	out, err := doc.Find("body").Html()
	if err != nil {
		return fragment
	}
	return strings.TrimSpace(out)
}
