package pipeline

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtnitsch/llm-page-context/internal/common"
	"github.com/dtnitsch/llm-page-context/models"
	"github.com/dtnitsch/llm-page-context/pkg/detector"
	"github.com/dtnitsch/llm-page-context/pkg/readable"
)

var sentence = "The quick brown fox jumps over the lazy dog while the farmer watches from the porch. "

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func articlePage() string {
	return `<html lang="en"><head><title>Fox Story</title></head>
<body>
<nav>Home | About | Contact</nav>
<div class="author">Alice</div>
<h1>Fox Story</h1>
<p>` + strings.Repeat(sentence, 3) + `</p>
<p>` + strings.Repeat(sentence, 3) + `</p>
</body></html>`
}

const shortPage = `<html><body><nav>Menu</nav><p>Too short.</p></body></html>`

func merged(mode models.ExtractionMode, threshold int) models.MergedConfig {
	return models.MergedConfig{
		Mode:        mode,
		Domain:      "example.com",
		Remove:      []string{"nav"},
		Readability: models.ReadabilityOptions{CharThreshold: &threshold},
	}
}

func withAuthor(m models.MergedConfig) models.MergedConfig {
	m.Metadata = &models.MetadataConfig{
		Enabled: true,
		Selectors: []models.MetadataField{
			{Key: "author", Name: "Author", Selector: ".author", Enabled: true},
		},
		Format: models.MetadataFormat{Template: "Author: {author}", Separator: ", "},
	}
	return m
}

func fixed(m models.MergedConfig) Option {
	return WithResolver(ResolverFunc(func(string) models.MergedConfig { return m }))
}

// articleReadability returns a fixed article regardless of the page.
func articleReadability(calls *int32) readable.Readability {
	return readable.ReadabilityFunc(func(*goquery.Document, *url.URL, readable.Options) (*readable.Article, error) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		body := strings.Repeat(sentence, 3)
		return &readable.Article{
			Title: "Fox Story",
			Content: `<h2>Sub</h2><p onclick="steal()">` + body + `</p>` +
				`<ul><li>alpha</li><li>beta</li></ul><script>steal()</script>`,
			TextContent: "Sub\n\n" + body + "\n\nalpha\nbeta",
		}, nil
	})
}

func nothingFound() readable.Readability {
	return readable.ReadabilityFunc(func(*goquery.Document, *url.URL, readable.Options) (*readable.Article, error) {
		return nil, nil
	})
}

func newProcessor(m models.MergedConfig, r readable.Readability, opts ...Option) *Processor {
	iso := readable.NewIsolator(zerolog.Nop(), readable.WithReadability(r))
	opts = append([]Option{fixed(m), WithIsolator(iso), withClock(func() time.Time { return fixedNow })}, opts...)
	return New(zerolog.Nop(), opts...)
}

type recorder struct {
	events []models.ExtractionProgress
}

func (r *recorder) record(ev models.ExtractionProgress) { r.events = append(r.events, ev) }

func (r *recorder) percents() []int {
	out := make([]int, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Progress
	}
	return out
}

func TestTextModeExtraction(t *testing.T) {
	p := newProcessor(merged(models.ModeText, 100), nothingFound())
	rec := &recorder{}

	res := p.Extract(context.Background(), Request{
		URL:      "https://example.com/fox",
		HTML:     articlePage(),
		Progress: rec.record,
	})
	require.True(t, res.Success, res.Error)

	assert.Equal(t, "web", res.Handler)
	assert.Equal(t, "text", res.Method)
	c := res.Content
	assert.Equal(t, "Fox Story", c.Metadata.Title)
	assert.Equal(t, "en", c.Metadata.Language)
	assert.Equal(t, fixedNow, c.Metadata.CapturedAt)
	assert.Equal(t, common.ContentHash([]byte(c.RawText)), c.Metadata.ContentHash)
	assert.NotContains(t, c.RawText, "Contact")
	assert.Contains(t, c.RawText, "quick brown fox")
	assert.Greater(t, c.Metadata.WordCount, 40)
	assert.NotEmpty(t, c.Excerpt)

	require.NotEmpty(t, c.Blocks)
	var headings []string
	for i, b := range c.Blocks {
		assert.Equal(t, i, b.Position)
		if b.Type == models.BlockHeading {
			headings = append(headings, b.Content)
		}
	}
	assert.Equal(t, []string{"Fox Story"}, headings)

	assert.Equal(t, []int{10, 30, 70, 100}, rec.percents())
	assert.Equal(t, models.StatusCompleted, rec.events[3].Status)
}

func TestReadabilityModeStructuresMarkdown(t *testing.T) {
	var calls int32
	p := newProcessor(merged(models.ModeReadability, 100), articleReadability(&calls))

	res := p.Extract(context.Background(), Request{URL: "https://example.com/fox", HTML: articlePage()})
	require.True(t, res.Success, res.Error)

	assert.Equal(t, "readability", res.Method)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	blocks := res.Content.Blocks
	require.Len(t, blocks, 3)
	assert.Equal(t, models.BlockHeading, blocks[0].Type)
	assert.Equal(t, 2, blocks[0].Level)
	assert.Equal(t, "Sub", blocks[0].Content)
	assert.Equal(t, models.BlockParagraph, blocks[1].Type)
	assert.Equal(t, models.BlockList, blocks[2].Type)
	assert.Equal(t, "alpha\nbeta", blocks[2].Content)
}

func TestSanitizedHTMLContent(t *testing.T) {
	p := newProcessor(merged(models.ModeReadability, 100), articleReadability(nil))
	res := p.Extract(context.Background(), Request{URL: "https://example.com/fox", HTML: articlePage()})
	require.True(t, res.Success, res.Error)

	assert.Contains(t, res.Content.HTMLContent, "<h2>Sub</h2>")
	assert.NotContains(t, res.Content.HTMLContent, "onclick")
	assert.NotContains(t, res.Content.HTMLContent, "<script")

	raw := newProcessor(merged(models.ModeReadability, 100), articleReadability(nil), WithSanitize(false))
	res = raw.Extract(context.Background(), Request{URL: "https://example.com/fox", HTML: articlePage()})
	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Content.HTMLContent, "onclick")
}

func TestMetadataPreambleLeadsBlocks(t *testing.T) {
	p := newProcessor(withAuthor(merged(models.ModeReadability, 100)), articleReadability(nil))

	res := p.Extract(context.Background(), Request{URL: "https://example.com/fox", HTML: articlePage()})
	require.True(t, res.Success, res.Error)

	c := res.Content
	assert.True(t, strings.HasPrefix(c.RawText, "Author: Alice"+readable.MetadataDelimiter))
	assert.Equal(t, "Alice", c.Metadata.Author)
	require.Len(t, c.Blocks, 4)
	assert.Equal(t, models.BlockParagraph, c.Blocks[0].Type)
	assert.Equal(t, "Author: Alice", c.Blocks[0].Content)
	assert.Equal(t, "Sub", c.Blocks[1].Content)
	assert.Equal(t, "block-1", c.Blocks[1].ID)
}

func TestFallbackToTextReportsTextMethod(t *testing.T) {
	p := newProcessor(merged(models.ModeReadability, 100), nothingFound())

	res := p.Extract(context.Background(), Request{URL: "https://example.com/fox", HTML: articlePage()})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "text", res.Method)
	assert.Equal(t, "text", res.Content.Metadata.Method)
}

func TestModeOverride(t *testing.T) {
	var calls int32
	p := newProcessor(withAuthor(merged(models.ModeReadability, 100)), articleReadability(&calls))

	res := p.Extract(context.Background(), Request{
		URL:  "https://example.com/fox",
		HTML: articlePage(),
		Mode: models.ModeText,
	})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "text", res.Method)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	assert.False(t, strings.HasPrefix(res.Content.RawText, "Author:"))
}

func TestUnsupportedPage(t *testing.T) {
	p := newProcessor(merged(models.ModeText, 100), nothingFound())
	rec := &recorder{}

	res := p.Extract(context.Background(), Request{URL: "chrome://settings", HTML: articlePage(), Progress: rec.record})
	assert.False(t, res.Success)
	assert.Equal(t, KindUnsupportedPage, res.Kind)
	assert.True(t, errors.Is(res.Err, ErrUnsupportedPage))
	assert.Nil(t, res.Content)

	require.Len(t, rec.events, 2)
	assert.Equal(t, models.StatusError, rec.events[1].Status)
	assert.Equal(t, 10, rec.events[1].Progress)
	assert.NotEmpty(t, rec.events[1].Error)
}

func TestShortContentKinds(t *testing.T) {
	tests := []struct {
		name     string
		mode     models.ExtractionMode
		opt      readable.Option
		kind     ErrorKind
		attempts int
	}{
		{"text mode", models.ModeText, readable.WithReadability(nothingFound()), KindInsufficientContent, 1},
		{"readability ran", models.ModeReadability, readable.WithReadability(nothingFound()), KindExtractionFailed, 2},
		{"readability unavailable", models.ModeReadability, readable.WithLoader(func() (readable.Readability, error) {
			return nil, readable.ErrUnavailable
		}), KindInsufficientContent, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(zerolog.Nop(),
				fixed(merged(tt.mode, 500)),
				WithIsolator(readable.NewIsolator(zerolog.Nop(), tt.opt)),
			)
			res := p.Extract(context.Background(), Request{URL: "https://example.com/x", HTML: shortPage})
			assert.False(t, res.Success)
			assert.Equal(t, tt.kind, res.Kind)
			assert.Len(t, res.Attempts, tt.attempts)
			assert.NotEmpty(t, res.Error)
		})
	}
}

func TestCallerDocumentUntouched(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(articlePage()))
	require.NoError(t, err)
	before, _ := doc.Html()

	p := newProcessor(merged(models.ModeText, 100), nothingFound())
	res := p.Extract(context.Background(), Request{URL: "https://example.com/fox", Document: doc})
	require.True(t, res.Success, res.Error)

	after, _ := doc.Html()
	assert.Equal(t, before, after)
}

func TestMissingHTMLIsParseError(t *testing.T) {
	p := newProcessor(merged(models.ModeText, 100), nothingFound())
	res := p.Extract(context.Background(), Request{URL: "https://example.com/fox"})
	assert.Equal(t, KindParse, res.Kind)
}

func TestStructureHTML(t *testing.T) {
	p := newProcessor(merged(models.ModeReadability, 100), articleReadability(nil), WithStructure(StructureHTML))
	res := p.Extract(context.Background(), Request{URL: "https://example.com/fox", HTML: articlePage()})
	require.True(t, res.Success, res.Error)

	blocks := res.Content.Blocks
	require.Len(t, blocks, 3)
	assert.Equal(t, models.BlockHeading, blocks[0].Type)
	assert.Equal(t, models.BlockList, blocks[2].Type)
}

func TestPlainSegmentationWithoutMarkdown(t *testing.T) {
	p := newProcessor(merged(models.ModeReadability, 100), articleReadability(nil), WithMarkdown(false))
	res := p.Extract(context.Background(), Request{URL: "https://example.com/fox", HTML: articlePage()})
	require.True(t, res.Success, res.Error)

	// Plain text carries no markers, so "Sub" stays a paragraph.
	assert.Equal(t, models.BlockParagraph, res.Content.Blocks[0].Type)
	assert.Equal(t, "Sub", res.Content.Blocks[0].Content)
}

type fakeLive struct {
	pages     []string
	htmlCalls int
	chars     int
}

func (f *fakeLive) TextLength(context.Context) (int, error) { return f.chars, nil }

func (f *fakeLive) HTML(context.Context) (string, error) {
	page := f.pages[min(f.htmlCalls, len(f.pages)-1)]
	f.htmlCalls++
	return page, nil
}

func TestLivePageWaitsForClientContent(t *testing.T) {
	live := &fakeLive{
		pages: []string{`<html><body><div id="root"></div></body></html>`, articlePage()},
		chars: 400,
	}
	p := newProcessor(merged(models.ModeText, 100), nothingFound(),
		WithSPAWait(detector.WaitOptions{MinChars: 100, Timeout: time.Second, Interval: 10 * time.Millisecond}))

	res := p.Extract(context.Background(), Request{URL: "https://example.com/app", Live: live})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 2, live.htmlCalls)
	assert.Contains(t, res.Content.RawText, "quick brown fox")
}

func TestLivePageServerRendered(t *testing.T) {
	live := &fakeLive{pages: []string{articlePage()}}
	p := newProcessor(merged(models.ModeText, 100), nothingFound())

	res := p.Extract(context.Background(), Request{URL: "https://example.com/fox", Live: live})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1, live.htmlCalls)
}

type fixedGuess string

func (g fixedGuess) Guess(string) string { return string(g) }

func reportPages() []models.PDFPage {
	return []models.PDFPage{
		{Number: 1, Text: "Annual Report\n" + strings.Repeat(sentence, 2)},
		{Number: 2, Text: strings.Repeat(sentence, 2)},
	}
}

func TestPDFPages(t *testing.T) {
	p := newProcessor(merged(models.ModeReadability, 100), nothingFound(), WithGuesser(fixedGuess("de")))
	rec := &recorder{}

	res := p.Extract(context.Background(), Request{
		URL:      "https://example.com/report.pdf",
		PDFPages: reportPages(),
		Progress: rec.record,
	})
	require.True(t, res.Success, res.Error)

	assert.Equal(t, "pdf", res.Handler)
	assert.Equal(t, MethodPDF, res.Method)
	c := res.Content
	assert.Equal(t, "Annual Report", c.Metadata.Title)
	assert.Equal(t, 2, c.Metadata.PageCount)
	assert.Equal(t, "de", c.Metadata.Language)
	assert.Contains(t, c.RawText, "porch.\n\nThe quick")
	assert.NotEmpty(t, c.Blocks)
	assert.Empty(t, c.HTMLContent)

	assert.Equal(t, []int{10, 30, 70, 100}, rec.percents())
	assert.Equal(t, StepReadingPDF, rec.events[1].CurrentStep)
}

func TestPDFFailures(t *testing.T) {
	p := newProcessor(merged(models.ModeReadability, 500), nothingFound())

	res := p.Extract(context.Background(), Request{URL: "https://example.com/report.pdf"})
	assert.Equal(t, "pdf", res.Handler)
	assert.Equal(t, KindFetch, res.Kind)

	res = p.Extract(context.Background(), Request{
		URL:      "https://example.com/report.pdf",
		PDFPages: []models.PDFPage{{Number: 1, Text: "tiny"}},
	})
	assert.Equal(t, KindInsufficientContent, res.Kind)

	res = p.Extract(context.Background(), Request{PDF: []byte("%PDF-1.4 not really a pdf")})
	assert.Equal(t, KindExtractionFailed, res.Kind)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res = p.Extract(ctx, Request{PDFPages: reportPages()})
	assert.Equal(t, KindExtractionFailed, res.Kind)
	assert.True(t, errors.Is(res.Err, context.Canceled))
}

func TestIsPDFRequest(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want bool
	}{
		{"pages", Request{PDFPages: []models.PDFPage{{Number: 1, Text: "x"}}}, true},
		{"magic", Request{PDF: []byte("%PDF-1.7")}, true},
		{"content type", Request{ContentType: "application/pdf; qs=0.1"}, true},
		{"pdf path", Request{URL: "https://example.com/a/B.PDF"}, true},
		{"pdf path with html", Request{URL: "https://example.com/a.pdf", HTML: "<p>viewer</p>"}, false},
		{"html page", Request{URL: "https://example.com/a.html"}, false},
		{"no url", Request{HTML: "<p>x</p>"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPDFRequest(tt.req))
		})
	}
}

func TestRegistry(t *testing.T) {
	p := newProcessor(merged(models.ModeText, 100), nothingFound())
	assert.Equal(t, []string{"pdf", "web"}, p.Registry().Names())

	feed := HandlerFunc(func(_ context.Context, req Request, progress *Progress) (*models.ProcessedContent, error) {
		progress.emit(models.StatusProcessing, 70, StepProcessing)
		return &models.ProcessedContent{Metadata: models.ContentMetadata{URL: req.URL, Method: "feed"}}, nil
	})
	reg := NewRegistry(Route{
		Name:    "feed",
		Match:   func(r Request) bool { return r.ContentType == "application/rss+xml" },
		Handler: feed,
	})
	reg.Register("fallback", nil, HandlerFunc(func(context.Context, Request, *Progress) (*models.ProcessedContent, error) {
		return nil, errors.New("boom")
	}))

	q := New(zerolog.Nop(), WithRegistry(reg))
	res := q.Extract(context.Background(), Request{URL: "https://example.com/rss", ContentType: "application/rss+xml"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "feed", res.Handler)
	assert.Equal(t, "feed", res.Method)

	res = q.Extract(context.Background(), Request{URL: "https://example.com/"})
	assert.Equal(t, "fallback", res.Handler)
	assert.Equal(t, KindExtractionFailed, res.Kind)

	empty := New(zerolog.Nop(), WithRegistry(NewRegistry()))
	res = empty.Extract(context.Background(), Request{HTML: "<p>x</p>"})
	assert.False(t, res.Success)
	assert.Equal(t, KindExtractionFailed, res.Kind)
}

func TestResolverSeesDomain(t *testing.T) {
	var got string
	m := merged(models.ModeText, 100)
	p := New(zerolog.Nop(),
		WithResolver(ResolverFunc(func(domain string) models.MergedConfig {
			got = domain
			return m
		})),
		WithIsolator(readable.NewIsolator(zerolog.Nop(), readable.WithReadability(nothingFound()))),
	)
	res := p.Extract(context.Background(), Request{URL: "https://Blog.Example.com/fox", HTML: articlePage()})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "blog.example.com", got)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNone, KindOf(nil))
	assert.Equal(t, KindParse, KindOf(ErrParse))
	assert.Equal(t, KindFetch, KindOf(errors.Join(errors.New("x"), ErrFetch)))
	assert.Equal(t, KindExtractionFailed, KindOf(errors.New("anything")))

	short := &readable.TooShortError{Attempts: []readable.Attempt{{Method: readable.MethodText}}}
	assert.Equal(t, KindInsufficientContent, KindOf(isolationError(short)))
	assert.True(t, errors.Is(isolationError(short), ErrInsufficientContent))

	var target *readable.TooShortError
	assert.True(t, errors.As(isolationError(short), &target))
}
