package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dtnitsch/llm-page-context/internal/common"
	"github.com/dtnitsch/llm-page-context/models"
	"github.com/dtnitsch/llm-page-context/pkg/analytics"
	"github.com/dtnitsch/llm-page-context/pkg/config"
	"github.com/dtnitsch/llm-page-context/pkg/detector"
)

// WebHandler extracts HTML pages.
type WebHandler struct {
	p *Processor
}

func (h *WebHandler) Handle(ctx context.Context, req Request, progress *Progress) (*models.ProcessedContent, error) {
	p := h.p
	progress.emit(models.StatusDetecting, 10, StepDetecting)

	if req.URL != "" {
		if reason := detector.SpecialPageReason(req.URL); reason != "" {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedPage, reason)
		}
	}

	doc, err := p.document(ctx, req)
	if err != nil {
		return nil, err
	}
	pageURL, _ := url.Parse(req.URL)

	merged := p.resolver.Resolve(config.DomainFromURL(req.URL))
	merged = withMode(merged, req.Mode)
	p.logger.Debug().
		Str("domain", merged.Domain).
		Str("mode", string(merged.Mode)).
		Int("removeSelectors", len(merged.Remove)).
		Msg("resolved config")

	progress.emit(models.StatusLoading, 30, StepLoading)

	// Metadata reads the caller's document as is, before any filtering.
	var values map[string]string
	var metaText string
	if merged.Metadata != nil && merged.Metadata.Enabled {
		values = p.metadata.Values(doc, merged.Metadata)
		metaText = p.metadata.Extract(doc, merged.Metadata)
	}

	iso, err := p.isolator.Isolate(ctx, doc, pageURL, merged, metaText)
	if err != nil {
		return nil, isolationError(err)
	}

	progress.emit(models.StatusProcessing, 70, StepProcessing)

	text := iso.Content.TextContent
	body := stripPreamble(text, metaText)

	blocks, err := p.structureBlocks(stripPreamble(iso.Content.Content, metaText), body, metaText, req.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	author := iso.Content.Byline
	if author == "" {
		author = values["author"]
	}

	content := &models.ProcessedContent{
		Metadata: models.ContentMetadata{
			URL:           req.URL,
			Title:         firstNonEmpty(req.Title, iso.Content.Title),
			Author:        author,
			PublishedTime: iso.Content.PublishedTime,
			CapturedAt:    p.now().UTC(),
			Language:      iso.Content.Lang,
			WordCount:     analytics.WordCount(body),
			SiteName:      iso.Content.SiteName,
			ContentHash:   common.ContentHash([]byte(text)),
			Method:        string(iso.Method),
		},
		Blocks:      blocks,
		RawText:     text,
		HTMLContent: p.sanitize(iso.Content.Content),
		Excerpt:     iso.Content.Excerpt,
	}
	return content, nil
}

// document returns the page tree to work on. A caller-supplied Document is
// used read-only; the isolator clones before it mutates anything.
func (p *Processor) document(ctx context.Context, req Request) (*goquery.Document, error) {
	switch {
	case req.Document != nil:
		return req.Document, nil
	case req.Live != nil:
		return p.liveDocument(ctx, req.Live)
	case strings.TrimSpace(req.HTML) != "":
		return parseHTML(req.HTML)
	default:
		return nil, fmt.Errorf("%w: request has no HTML", ErrParse)
	}
}

// liveDocument snapshots a live page, and when it looks like a client-side
// app waits (bounded) for its text to appear before taking a second snapshot.
func (p *Processor) liveDocument(ctx context.Context, live LivePage) (*goquery.Document, error) {
	html, err := live.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	doc, err := parseHTML(html)
	if err != nil {
		return nil, err
	}
	if !detector.IsSPA(doc) {
		return doc, nil
	}

	chars, err := detector.WaitForContent(ctx, live.TextLength, p.spaWait)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	p.logger.Debug().Int("textChars", chars).Msg("waited for client-side content")

	html, err = live.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return parseHTML(html)
}

func parseHTML(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return doc, nil
}

// withMode applies a per-request mode override. Text mode never carries metadata.
func withMode(merged models.MergedConfig, mode models.ExtractionMode) models.MergedConfig {
	if !mode.Valid() || mode == merged.Mode {
		return merged
	}
	merged.Mode = mode
	if mode == models.ModeText {
		merged.Metadata = nil
	}
	return merged
}

func (p *Processor) sanitize(html string) string {
	if p.sanitizer == nil || html == "" {
		return html
	}
	return strings.TrimSpace(p.sanitizer.Sanitize(html))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
