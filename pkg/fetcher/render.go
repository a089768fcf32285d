package fetcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/dtnitsch/llm-page-context/pkg/detector"
)

const innerTextLength = `document.body ? document.body.innerText.length : 0`

// Renderer loads pages in headless Chrome so client-side frameworks can build
// the DOM before it is read. The browser starts on first use.
type Renderer struct {
	timeout  time.Duration
	wait     detector.WaitOptions
	headless bool
	logger   zerolog.Logger

	once        sync.Once
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

type RenderOption func(*Renderer)

func WithRenderTimeout(d time.Duration) RenderOption { return func(r *Renderer) { r.timeout = d } }

func WithWaitOptions(o detector.WaitOptions) RenderOption { return func(r *Renderer) { r.wait = o } }

func WithHeadless(on bool) RenderOption { return func(r *Renderer) { r.headless = on } }

func NewRenderer(logger zerolog.Logger, opts ...RenderOption) *Renderer {
	r := &Renderer{
		timeout:  20 * time.Second,
		wait:     detector.DefaultWaitOptions(),
		headless: true,
		logger:   logger.With().Str("component", "renderer").Logger(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Renderer) init() {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", r.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
}

// Render navigates to url, waits for the body, then waits (bounded) for the
// visible text to grow past the SPA threshold and returns the rendered HTML.
func (r *Renderer) Render(ctx context.Context, url string) (string, error) {
	r.once.Do(r.init)

	tabCtx, cancelTab := chromedp.NewContext(r.allocCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, r.timeout)
	defer cancelTimeout()

	// Propagate caller cancellation into the tab.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	if err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return "", fmt.Errorf("chromedp navigation failed: %w", err)
	}

	probe := func(_ context.Context) (int, error) {
		var n int
		err := chromedp.Run(tabCtx, chromedp.Evaluate(innerTextLength, &n))
		return n, err
	}
	chars, err := detector.WaitForContent(tabCtx, probe, r.wait)
	if err != nil {
		return "", fmt.Errorf("waiting for rendered content: %w", err)
	}

	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("chromedp rendering failed: %w", err)
	}

	r.logger.Debug().Str("url", url).Int("textChars", chars).Int("htmlBytes", len(html)).Msg("rendered")
	return html, nil
}

// Close shuts the browser down.
func (r *Renderer) Close() {
	if r.allocCancel != nil {
		r.allocCancel()
	}
}
