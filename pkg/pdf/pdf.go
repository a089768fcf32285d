// Package pdf reads the text layer of PDF documents page by page.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"

	"github.com/dtnitsch/llm-page-context/models"
)

// ErrNoText means no page yielded any text.
var ErrNoText = errors.New("no text content found in PDF")

// PageSeparator joins page texts.
const PageSeparator = "\n\n"

type Reader struct {
	logger   zerolog.Logger
	maxPages int
}

type Option func(*Reader)

// WithMaxPages limits reading to the first n pages; 0 reads all.
func WithMaxPages(n int) Option {
	return func(r *Reader) { r.maxPages = n }
}

func New(logger zerolog.Logger, opts ...Option) *Reader {
	r := &Reader{logger: logger.With().Str("component", "pdf").Logger()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// ReadPages extracts the plain text of every page. Pages with no text and
// pages that fail to decode are skipped; the failures are logged.
func (r *Reader) ReadPages(ra io.ReaderAt, size int64) ([]models.PDFPage, error) {
	doc, err := pdf.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("error opening PDF: %w", err)
	}

	total := doc.NumPage()
	if r.maxPages > 0 && r.maxPages < total {
		total = r.maxPages
	}

	var pages []models.PDFPage
	for i := 1; i <= total; i++ {
		text, err := pageText(doc, i)
		if err != nil {
			r.logger.Warn().Err(err).Int("page", i).Msg("skipping unreadable page")
			continue
		}
		if text == "" {
			continue
		}
		pages = append(pages, models.PDFPage{Number: i, Text: text})
	}

	r.logger.Debug().Int("pages", doc.NumPage()).Int("withText", len(pages)).Msg("read PDF")
	if len(pages) == 0 {
		return nil, ErrNoText
	}
	return pages, nil
}

// ReadBytes is ReadPages over an in-memory document.
func (r *Reader) ReadBytes(data []byte) ([]models.PDFPage, error) {
	return r.ReadPages(bytes.NewReader(data), int64(len(data)))
}

// ReadFile is ReadPages over a file on disk.
func (r *Reader) ReadFile(path string) ([]models.PDFPage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return r.ReadPages(f, info.Size())
}

// pageText recovers from decoder panics, which malformed content streams trigger.
func pageText(doc *pdf.Reader, n int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("page %d: decoder panic: %v", n, rec)
		}
	}()

	p := doc.Page(n)
	if p.V.IsNull() {
		return "", nil
	}
	raw, err := p.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("page %d: %w", n, err)
	}
	return strings.TrimSpace(raw), nil
}

// JoinPages concatenates page texts with PageSeparator.
func JoinPages(pages []models.PDFPage) string {
	texts := make([]string, 0, len(pages))
	for _, p := range pages {
		if t := strings.TrimSpace(p.Text); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, PageSeparator)
}

// IsPDF reports whether data starts with the PDF magic header.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}
