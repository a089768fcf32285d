package detector

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var spaMarkers = []string{
	"#root",
	"#app",
	"#__next",
	"#__nuxt",
	"[data-reactroot]",
	"[ng-version]",
	"[data-v-app]",
	"script#__NEXT_DATA__",
	"script#__NUXT_DATA__",
}

// IsSPA reports whether doc carries a client-side framework mount point.
func IsSPA(doc *goquery.Document) bool {
	if doc == nil {
		return false
	}
	for _, m := range spaMarkers {
		if doc.Find(m).Length() > 0 {
			return true
		}
	}
	return false
}

// Probe reports the current length of the page's visible text.
type Probe func(ctx context.Context) (int, error)

type WaitOptions struct {
	Timeout  time.Duration
	Interval time.Duration
	MinChars int
}

func DefaultWaitOptions() WaitOptions {
	return WaitOptions{Timeout: 3 * time.Second, Interval: 100 * time.Millisecond, MinChars: 500}
}

func (o WaitOptions) withDefaults() WaitOptions {
	def := DefaultWaitOptions()
	if o.Timeout <= 0 {
		o.Timeout = def.Timeout
	}
	if o.Interval <= 0 {
		o.Interval = def.Interval
	}
	if o.MinChars <= 0 {
		o.MinChars = def.MinChars
	}
	return o
}

// WaitForContent polls probe until it reports more than MinChars or Timeout
// elapses, and returns the last length seen. Probe errors end the wait early
// with the last good length. The wait never returns an error for running out
// of time; it returns ctx.Err() only when the caller cancels.
func WaitForContent(ctx context.Context, probe Probe, opts WaitOptions) (int, error) {
	opts = opts.withDefaults()
	last := 0

	n, err := probe(ctx)
	if err != nil {
		return last, nil
	}
	last = n
	if last > opts.MinChars {
		return last, nil
	}

	deadline := time.NewTimer(opts.Timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-deadline.C:
			return last, nil
		case <-ticker.C:
			n, err := probe(ctx)
			if err != nil {
				return last, nil
			}
			last = n
			if last > opts.MinChars {
				return last, nil
			}
		}
	}
}
