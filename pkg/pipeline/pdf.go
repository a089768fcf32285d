package pipeline

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dtnitsch/llm-page-context/internal/common"
	"github.com/dtnitsch/llm-page-context/models"
	"github.com/dtnitsch/llm-page-context/pkg/analytics"
	"github.com/dtnitsch/llm-page-context/pkg/config"
	"github.com/dtnitsch/llm-page-context/pkg/parser"
	"github.com/dtnitsch/llm-page-context/pkg/pdf"
	"github.com/dtnitsch/llm-page-context/pkg/readable"
)

// MethodPDF marks content that came from a PDF text layer.
const MethodPDF = "pdf"

const maxPDFTitleRunes = 200

// PDFHandler processes PDF text. Page text enters at segmentation; the DOM
// stages do not apply.
type PDFHandler struct {
	p *Processor
}

func (h *PDFHandler) Handle(ctx context.Context, req Request, progress *Progress) (*models.ProcessedContent, error) {
	p := h.p
	progress.emit(models.StatusDetecting, 10, StepDetecting)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	progress.emit(models.StatusLoading, 30, StepReadingPDF)
	pages := req.PDFPages
	if len(pages) == 0 {
		if len(req.PDF) == 0 {
			return nil, fmt.Errorf("%w: no PDF data for %s", ErrFetch, req.URL)
		}
		var err error
		pages, err = p.pdf.ReadBytes(req.PDF)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
		}
	}

	progress.emit(models.StatusProcessing, 70, StepProcessing)

	text := pdf.JoinPages(pages)
	threshold := p.resolver.Resolve(config.DomainFromURL(req.URL)).Readability.Threshold()
	if n := readable.CharCount(text); n < threshold {
		return nil, fmt.Errorf("%w: extracted %d characters, need at least %d", ErrInsufficientContent, n, threshold)
	}

	return &models.ProcessedContent{
		Metadata: models.ContentMetadata{
			URL:         req.URL,
			Title:       firstNonEmpty(req.Title, pdfTitle(text)),
			CapturedAt:  p.now().UTC(),
			Language:    p.guesser.Guess(text),
			WordCount:   analytics.WordCount(text),
			ContentHash: common.ContentHash([]byte(text)),
			Method:      MethodPDF,
			PageCount:   len(pages),
		},
		Blocks:  parser.Segment(text),
		RawText: text,
		Excerpt: readable.Excerpt(text, readable.DefaultExcerptLength),
	}, nil
}

// pdfTitle is the first non-empty line, cut to maxPDFTitleRunes.
func pdfTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) > maxPDFTitleRunes {
			line = string([]rune(line)[:maxPDFTitleRunes])
		}
		return line
	}
	return ""
}
