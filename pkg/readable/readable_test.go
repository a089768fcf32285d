package readable

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtnitsch/llm-page-context/models"
)

var paragraph = "The quick brown fox jumps over the lazy dog while the farmer watches from the porch. "

func articlePage() string {
	return `<html lang="en"><head><title>Fox Story</title>
<meta property="og:site_name" content="Farm Times"></head>
<body>
<nav>Home | About | <a href="/contact">Contact</a></nav>
<div class="byline">By Alice</div>
<article>
<h1>Fox Story</h1>
<p>` + strings.Repeat(paragraph, 4) + `</p>
<p>See <a href="/more">more stories</a> on the farm. ` + strings.Repeat(paragraph, 4) + `</p>
<p>` + strings.Repeat(paragraph, 4) + `</p>
</article>
<footer>Copyright</footer>
<script>var tracking = true;</script>
</body></html>`
}

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func merged(mode models.ExtractionMode, threshold int) models.MergedConfig {
	return models.MergedConfig{
		Mode:        mode,
		Domain:      "example.com",
		Remove:      []string{"nav", "footer"},
		Readability: models.ReadabilityOptions{CharThreshold: &threshold},
	}
}

func pageURL() *url.URL {
	u, _ := url.Parse("https://example.com/fox")
	return u
}

func TestTextModeSkipsReadability(t *testing.T) {
	var called int32
	iso := NewIsolator(zerolog.Nop(), WithReadability(ReadabilityFunc(func(*goquery.Document, *url.URL, Options) (*Article, error) {
		atomic.AddInt32(&called, 1)
		return nil, nil
	})))
	doc := parse(t, articlePage())
	before, _ := doc.Html()

	res, err := iso.Isolate(context.Background(), doc, pageURL(), merged(models.ModeText, 100), "")
	require.NoError(t, err)

	assert.Equal(t, MethodText, res.Method)
	assert.Equal(t, int32(0), atomic.LoadInt32(&called))
	assert.Contains(t, res.Content.TextContent, "quick brown fox")
	assert.NotContains(t, res.Content.TextContent, "Contact")
	assert.NotContains(t, res.Content.TextContent, "tracking")
	assert.Equal(t, "Fox Story", res.Content.Title)
	assert.Equal(t, "Farm Times", res.Content.SiteName)
	assert.Equal(t, "en", res.Content.Lang)

	after, _ := doc.Html()
	assert.Equal(t, before, after, "caller's document must not change")
}

func TestReadabilityNullFallsBackToText(t *testing.T) {
	iso := NewIsolator(zerolog.Nop(), WithReadability(ReadabilityFunc(func(*goquery.Document, *url.URL, Options) (*Article, error) {
		return nil, nil
	})))

	res, err := iso.Isolate(context.Background(), parse(t, articlePage()), pageURL(), merged(models.ModeReadability, 100), "")
	require.NoError(t, err)

	assert.Equal(t, MethodText, res.Method)
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, MethodReadability, res.Attempts[0].Method)
	assert.Equal(t, "no article", res.Attempts[0].Reason)
	assert.Contains(t, res.Content.TextContent, "quick brown fox")
}

func TestReadabilityBelowThresholdFallsBack(t *testing.T) {
	iso := NewIsolator(zerolog.Nop(), WithReadability(ReadabilityFunc(func(*goquery.Document, *url.URL, Options) (*Article, error) {
		return &Article{Title: "Short", Content: "<p>tiny</p>", TextContent: "tiny"}, nil
	})))

	res, err := iso.Isolate(context.Background(), parse(t, articlePage()), pageURL(), merged(models.ModeReadability, 100), "")
	require.NoError(t, err)
	assert.Equal(t, MethodText, res.Method)
	assert.Equal(t, "below threshold", res.Attempts[0].Reason)
}

func TestReadabilitySuccess(t *testing.T) {
	var got Options
	iso := NewIsolator(zerolog.Nop(), WithReadability(ReadabilityFunc(func(doc *goquery.Document, _ *url.URL, opts Options) (*Article, error) {
		got = opts
		// Remove selectors are applied before the parser sees the document.
		assert.Equal(t, 0, doc.Find("nav, footer, script").Length())
		text := strings.Repeat(paragraph, 3)
		return &Article{Title: "Parsed Title", Content: "<p>" + text + "</p>", TextContent: text, Byline: "Alice"}, nil
	})))

	res, err := iso.Isolate(context.Background(), parse(t, articlePage()), pageURL(), merged(models.ModeReadability, 100), "")
	require.NoError(t, err)

	assert.Equal(t, MethodReadability, res.Method)
	assert.Equal(t, 100, got.CharThreshold)
	assert.Equal(t, "Parsed Title", res.Content.Title)
	assert.Equal(t, "Alice", res.Content.Byline)
	assert.Equal(t, CharCount(res.Content.TextContent), res.Content.Length)
	assert.LessOrEqual(t, len([]rune(res.Content.Excerpt)), DefaultExcerptLength+3)
}

func TestReadabilityTextKeepsBlockBreaks(t *testing.T) {
	body := strings.Repeat(paragraph, 3)
	iso := NewIsolator(zerolog.Nop(), WithReadability(ReadabilityFunc(func(*goquery.Document, *url.URL, Options) (*Article, error) {
		return &Article{
			Title:       "Fox Story",
			Content:     "<div><h2>Heading</h2><p>" + body + "</p><ul><li>one</li><li>two</li></ul></div>",
			TextContent: "Heading" + body + "onetwo",
		}, nil
	})))

	res, err := iso.Isolate(context.Background(), parse(t, articlePage()), pageURL(), merged(models.ModeReadability, 100), "")
	require.NoError(t, err)
	assert.Equal(t, MethodReadability, res.Method)
	assert.True(t, strings.HasPrefix(res.Content.TextContent, "Heading\n\nThe quick brown fox"), res.Content.TextContent)
	assert.True(t, strings.HasSuffix(res.Content.TextContent, "\n\none\ntwo"), res.Content.TextContent)
	assert.NotContains(t, res.Content.Excerpt, "HeadingThe")
}

func TestGoReadabilityTextSeparatesHeading(t *testing.T) {
	res, err := NewIsolator(zerolog.Nop()).Isolate(context.Background(), parse(t, articlePage()), pageURL(), merged(models.ModeReadability, 100), "")
	require.NoError(t, err)
	require.Equal(t, MethodReadability, res.Method)
	assert.NotContains(t, res.Content.TextContent, "porch.See")
	assert.Contains(t, res.Content.TextContent, "porch.\n\nSee more stories")
}

func TestLoaderFailureDegradesOnce(t *testing.T) {
	var loads int32
	iso := NewIsolator(zerolog.Nop(), WithLoader(func() (Readability, error) {
		atomic.AddInt32(&loads, 1)
		return nil, errors.New("module missing")
	}))

	for i := 0; i < 3; i++ {
		res, err := iso.Isolate(context.Background(), parse(t, articlePage()), pageURL(), merged(models.ModeReadability, 100), "")
		require.NoError(t, err)
		assert.Equal(t, MethodText, res.Method)
		assert.Equal(t, "unavailable", res.Attempts[0].Reason)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
}

func TestInsufficientContent(t *testing.T) {
	iso := NewIsolator(zerolog.Nop(), WithReadability(ReadabilityFunc(func(*goquery.Document, *url.URL, Options) (*Article, error) {
		return nil, nil
	})))
	doc := parse(t, `<html><body><p>Too short.</p></body></html>`)

	_, err := iso.Isolate(context.Background(), doc, pageURL(), merged(models.ModeReadability, 500), "")
	var short *TooShortError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, 500, short.Threshold)
	assert.Equal(t, len("Too short."), short.Length)
	assert.True(t, short.TriedReadability())

	_, err = iso.Isolate(context.Background(), doc, pageURL(), merged(models.ModeText, 500), "")
	require.ErrorAs(t, err, &short)
	assert.False(t, short.TriedReadability())
}

func TestMetadataPreamble(t *testing.T) {
	iso := NewIsolator(zerolog.Nop(), WithLoader(nil))
	res, err := iso.Isolate(context.Background(), parse(t, articlePage()), pageURL(), merged(models.ModeReadability, 100), "Author: Alice")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Content.TextContent, "Author: Alice\n---\n\n"))
	assert.True(t, strings.HasPrefix(res.Content.Content, "Author: Alice\n---\n\n"))
	assert.NotContains(t, res.Content.Excerpt, "Author: Alice")
}

func TestPreserveLinksOff(t *testing.T) {
	iso := NewIsolator(zerolog.Nop())
	cfg := merged(models.ModeText, 100)
	off := false
	cfg.Readability.PreserveLinks = &off

	res, err := iso.Isolate(context.Background(), parse(t, articlePage()), pageURL(), cfg, "")
	require.NoError(t, err)
	assert.NotContains(t, res.Content.Content, "<a ")
	assert.Contains(t, res.Content.Content, "more stories")
}

func TestGoReadabilityFindsArticle(t *testing.T) {
	iso := NewIsolator(zerolog.Nop())
	res, err := iso.Isolate(context.Background(), parse(t, articlePage()), pageURL(), merged(models.ModeReadability, 100), "")
	require.NoError(t, err)
	assert.Contains(t, res.Content.TextContent, "quick brown fox")
	assert.NotContains(t, res.Content.TextContent, "tracking")
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewIsolator(zerolog.Nop()).Isolate(ctx, parse(t, articlePage()), pageURL(), merged(models.ModeText, 1), "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTextContentBlocks(t *testing.T) {
	doc := parse(t, `<html><body><h1>Title</h1><p>One   two
three</p><ul><li>a</li><li>b</li></ul><div>x<br>y</div></body></html>`)
	text := TextContent(doc.Find("body"))
	assert.Equal(t, "Title\n\nOne two three\n\na\nb\n\nx\ny", text)
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "Short text.", Excerpt("  Short\n text. ", 200))

	long := strings.Repeat("Sentence number one is here. ", 20)
	ex := Excerpt(long, 200)
	assert.True(t, strings.HasSuffix(ex, "."))
	assert.LessOrEqual(t, len([]rune(ex)), 200)

	noStop := strings.Repeat("word ", 100)
	ex = Excerpt(noStop, 50)
	assert.True(t, strings.HasSuffix(ex, "..."))
	assert.LessOrEqual(t, len([]rune(ex)), 53)
}
