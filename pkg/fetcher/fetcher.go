// Package fetcher downloads pages over HTTP, decodes them to UTF-8, and
// optionally renders script-built pages in headless Chrome.
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
)

// ErrTooLarge is returned when the body exceeds the configured limit.
var ErrTooLarge = errors.New("response body exceeds size limit")

// Response is a fetched page. Body is UTF-8 for text content and raw bytes
// for anything else (PDFs).
type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Charset     string
	Body        []byte
}

func (r *Response) IsHTML() bool {
	return r.ContentType == "text/html" || r.ContentType == "application/xhtml+xml"
}

func (r *Response) IsPDF() bool {
	return r.ContentType == "application/pdf"
}

// Document parses Body into a goquery document.
func (r *Response) Document() (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

type Fetcher struct {
	client        *http.Client
	userAgent     string
	maxBody       int64
	detectCharset bool
	logger        zerolog.Logger
}

type Option func(*Fetcher)

// WithClient replaces the HTTP client. Apply it before WithTimeout.
func WithClient(c *http.Client) Option { return func(f *Fetcher) { f.client = c } }

func WithUserAgent(ua string) Option { return func(f *Fetcher) { f.userAgent = ua } }

func WithMaxBodyBytes(n int64) Option { return func(f *Fetcher) { f.maxBody = n } }

func WithTimeout(d time.Duration) Option { return func(f *Fetcher) { f.client.Timeout = d } }

// WithCharsetDetection toggles chardet sniffing for bodies without a declared charset.
func WithCharsetDetection(on bool) Option { return func(f *Fetcher) { f.detectCharset = on } }

func WithLogger(logger zerolog.Logger) Option {
	return func(f *Fetcher) { f.logger = logger.With().Str("component", "fetcher").Logger() }
}

func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:        &http.Client{Timeout: 30 * time.Second},
		userAgent:     "Mozilla/5.0 (compatible; llm-page-context/1.0)",
		maxBody:       10 << 20,
		detectCharset: true,
		logger:        zerolog.Nop(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch downloads url. Non-2xx statuses are errors.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,*/*;q=0.8")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch %s, status code: %d", url, resp.StatusCode)
	}

	raw, err := f.readBody(resp.Body)
	if err != nil {
		return nil, err
	}

	header := resp.Header.Get("Content-Type")
	out := &Response{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: mediaType(header, raw),
		Body:        raw,
	}
	if strings.HasPrefix(out.ContentType, "text/") || out.ContentType == "application/xhtml+xml" {
		out.Body, out.Charset = f.decode(raw, header)
	}

	f.logger.Debug().
		Str("url", out.URL).
		Int("status", out.StatusCode).
		Str("contentType", out.ContentType).
		Str("charset", out.Charset).
		Int("bytes", len(raw)).
		Dur("elapsed", time.Since(start)).
		Msg("fetched")
	return out, nil
}

// GetHTML fetches url and parses it.
func (f *Fetcher) GetHTML(ctx context.Context, url string) (*goquery.Document, *Response, error) {
	resp, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	doc, err := resp.Document()
	if err != nil {
		return nil, resp, err
	}
	return doc, resp, nil
}

func (f *Fetcher) readBody(body io.Reader) ([]byte, error) {
	limited := io.LimitReader(body, f.maxBody+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > f.maxBody {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, f.maxBody)
	}
	return data, nil
}

// mediaType lowercases the header's media type, sniffing when it is absent.
func mediaType(header string, body []byte) string {
	if header == "" {
		header = http.DetectContentType(body)
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(header, ";", 2)[0]))
	}
	return mt
}

// chardet reports some names that are not WHATWG labels.
var chardetAliases = map[string]string{
	"gb-18030": "gb18030",
}

// decode converts body to UTF-8. A BOM, the Content-Type charset or a meta
// declaration win; otherwise valid UTF-8 is kept, and chardet guesses the rest.
func (f *Fetcher) decode(body []byte, contentType string) ([]byte, string) {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if !certain && name == "windows-1252" && !utf8.Valid(body) && f.detectCharset {
		if guessed, label := sniff(body); guessed != nil {
			enc, name = guessed, label
		}
	}
	if name == "utf-8" || enc == encoding.Nop {
		return body, "utf-8"
	}

	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		f.logger.Warn().Err(err).Str("charset", name).Msg("charset decoding failed; keeping raw body")
		return body, name
	}
	return out, name
}

func sniff(body []byte) (encoding.Encoding, string) {
	res, err := chardet.NewTextDetector().DetectBest(body)
	if err != nil || res == nil {
		return nil, ""
	}
	label := strings.ToLower(res.Charset)
	if alias, ok := chardetAliases[label]; ok {
		label = alias
	}
	enc, name := charset.Lookup(label)
	if enc == nil {
		return nil, ""
	}
	return enc, name
}
