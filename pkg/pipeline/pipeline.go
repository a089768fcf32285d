// Package pipeline runs one extraction request end to end: page checks,
// configuration, metadata, main-content isolation and block structuring for
// web pages, and text-layer processing for PDFs. Failures come back inside a
// Result, never as a Go error.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/dtnitsch/llm-page-context/models"
	"github.com/dtnitsch/llm-page-context/pkg/config"
	"github.com/dtnitsch/llm-page-context/pkg/detector"
	"github.com/dtnitsch/llm-page-context/pkg/metadata"
	"github.com/dtnitsch/llm-page-context/pkg/pdf"
	"github.com/dtnitsch/llm-page-context/pkg/readable"
)

// Structure selects how isolated HTML becomes blocks.
type Structure string

const (
	// StructureText converts the content to markdown and segments its lines.
	StructureText Structure = "text"
	// StructureHTML walks the content elements directly.
	StructureHTML Structure = "html"
)

// Request is one extraction. Web requests carry HTML, a parsed Document, or
// a Live page; PDF requests carry bytes or pre-extracted pages.
type Request struct {
	URL         string
	Title       string
	ContentType string

	HTML     string
	Document *goquery.Document
	Live     LivePage

	PDF      []byte
	PDFPages []models.PDFPage

	// Mode overrides the configured extraction mode when set.
	Mode     models.ExtractionMode
	Progress models.ProgressFunc
}

// LivePage is a page that may still be building itself client side.
type LivePage interface {
	TextLength(ctx context.Context) (int, error)
	HTML(ctx context.Context) (string, error)
}

// Result is the outcome of Extract.
type Result struct {
	Success  bool                     `json:"success"`
	Content  *models.ProcessedContent `json:"content"`
	Error    string                   `json:"error,omitempty"`
	Kind     ErrorKind                `json:"kind,omitempty"`
	Method   string                   `json:"method,omitempty"`
	Handler  string                   `json:"handler,omitempty"`
	Attempts []readable.Attempt       `json:"attempts,omitempty"`

	// Err is the underlying error for errors.Is checks.
	Err error `json:"-"`
}

// Resolver yields the effective configuration for a domain.
type Resolver interface {
	Resolve(domain string) models.MergedConfig
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(domain string) models.MergedConfig

func (f ResolverFunc) Resolve(domain string) models.MergedConfig { return f(domain) }

// Processor owns the collaborators shared by every request. It holds no
// per-request state and is safe for concurrent use.
type Processor struct {
	logger    zerolog.Logger
	registry  *Registry
	resolver  Resolver
	isolator  *readable.Isolator
	metadata  *metadata.Extractor
	guesser   detector.Guesser
	pdf       *pdf.Reader
	markdown  *converter.Converter
	sanitizer *bluemonday.Policy
	structure Structure
	spaWait   detector.WaitOptions
	now       func() time.Time
}

type Option func(*Processor)

func WithResolver(r Resolver) Option { return func(p *Processor) { p.resolver = r } }

func WithIsolator(iso *readable.Isolator) Option { return func(p *Processor) { p.isolator = iso } }

func WithGuesser(g detector.Guesser) Option { return func(p *Processor) { p.guesser = g } }

func WithPDFReader(r *pdf.Reader) Option { return func(p *Processor) { p.pdf = r } }

func WithStructure(s Structure) Option { return func(p *Processor) { p.structure = s } }

func WithSPAWait(o detector.WaitOptions) Option { return func(p *Processor) { p.spaWait = o } }

// WithMarkdown toggles markdown structuring for StructureText.
func WithMarkdown(on bool) Option {
	return func(p *Processor) {
		if !on {
			p.markdown = nil
		}
	}
}

// WithSanitize toggles sanitizing of ProcessedContent.HTMLContent.
func WithSanitize(on bool) Option {
	return func(p *Processor) {
		if !on {
			p.sanitizer = nil
		}
	}
}

// WithRegistry replaces the built-in pdf and web routes.
func WithRegistry(r *Registry) Option { return func(p *Processor) { p.registry = r } }

func withClock(now func() time.Time) Option { return func(p *Processor) { p.now = now } }

func New(logger zerolog.Logger, opts ...Option) *Processor {
	p := &Processor{
		logger:   logger.With().Str("component", "pipeline").Logger(),
		resolver: ResolverFunc(defaultResolve),
		metadata: metadata.New(logger),
		guesser:  detector.CJKGuesser{},
		markdown: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		sanitizer: bluemonday.UGCPolicy(),
		structure: StructureText,
		spaWait:   detector.DefaultWaitOptions(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	if p.isolator == nil {
		p.isolator = readable.NewIsolator(logger, readable.WithGuesser(p.guesser))
	}
	if p.pdf == nil {
		p.pdf = pdf.New(logger)
	}
	if p.registry == nil {
		p.registry = NewRegistry(
			Route{Name: "pdf", Match: IsPDFRequest, Handler: &PDFHandler{p: p}},
			Route{Name: "web", Match: IsWebRequest, Handler: &WebHandler{p: p}},
		)
	}
	return p
}

func defaultResolve(domain string) models.MergedConfig {
	return config.Resolve(config.DefaultConfig(), domain)
}

// Registry exposes the dispatch table so callers can add routes.
func (p *Processor) Registry() *Registry { return p.registry }

// Extract runs req through the first matching handler.
func (p *Processor) Extract(ctx context.Context, req Request) Result {
	progress := newProgress(req.Progress)
	log := p.logger.With().Str("url", req.URL).Logger()

	route, ok := p.registry.Lookup(req)
	if !ok {
		return p.fail(progress, log, "", fmt.Errorf("%w: no handler for request", ErrExtractionFailed))
	}

	start := time.Now()
	content, err := route.Handler.Handle(ctx, req, progress)
	if err != nil {
		res := p.fail(progress, log, route.Name, err)
		res.Attempts = attemptsOf(err)
		return res
	}

	progress.emit(models.StatusCompleted, 100, "Done")
	log.Info().
		Str("handler", route.Name).
		Str("method", content.Metadata.Method).
		Int("blocks", len(content.Blocks)).
		Int("words", content.Metadata.WordCount).
		Dur("elapsed", time.Since(start)).
		Msg("extracted")
	return Result{
		Success: true,
		Content: content,
		Method:  content.Metadata.Method,
		Handler: route.Name,
	}
}

func (p *Processor) fail(progress *Progress, log zerolog.Logger, handler string, err error) Result {
	kind := KindOf(err)
	progress.fail(err)
	log.Warn().Err(err).Str("kind", string(kind)).Str("handler", handler).Msg("extraction failed")
	return Result{
		Success: false,
		Error:   err.Error(),
		Kind:    kind,
		Handler: handler,
		Err:     err,
	}
}

func attemptsOf(err error) []readable.Attempt {
	var short *readable.TooShortError
	if errors.As(err, &short) {
		return short.Attempts
	}
	return nil
}
