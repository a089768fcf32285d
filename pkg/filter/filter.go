// Package filter strips non-content subtrees from a parsed document.
package filter

import (
	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/rs/zerolog"
)

// basicSelectors are never content, whatever the configuration says.
var basicSelectors = []string{"script", "style"}

// Report summarizes one filter pass.
type Report struct {
	Removed  int
	Invalid  []string
	Selector map[string]int
}

// Remover applies remove-selectors to a document it owns.
type Remover struct {
	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Remover {
	return &Remover{logger: logger.With().Str("component", "filter").Logger()}
}

// RemoveBasic drops script and style elements under root.
func RemoveBasic(root *goquery.Selection) int {
	removed := 0
	for _, sel := range basicSelectors {
		matches := root.Find(sel)
		removed += matches.Length()
		matches.Remove()
	}
	return removed
}

// Filter removes script and style, then every element matching each
// selector. root must belong to a cloned document. Invalid selectors are
// logged and skipped; the rest of the pass continues. Running Filter twice
// with the same selectors removes nothing the second time.
func (r *Remover) Filter(root *goquery.Selection, selectors []string) Report {
	rep := Report{Selector: map[string]int{}}
	rep.Removed = RemoveBasic(root)

	for _, sel := range selectors {
		if sel == "" {
			continue
		}
		if _, err := cascadia.ParseGroup(sel); err != nil {
			r.logger.Warn().Str("selector", sel).Err(err).Msg("skipping invalid remove selector")
			rep.Invalid = append(rep.Invalid, sel)
			continue
		}
		matches := root.Find(sel)
		n := matches.Length()
		if n == 0 {
			continue
		}
		matches.Remove()
		rep.Removed += n
		rep.Selector[sel] += n
	}

	r.logger.Debug().Int("removed", rep.Removed).Int("invalid", len(rep.Invalid)).Msg("noise filter pass complete")
	return rep
}

// Valid reports whether sel parses as a CSS selector group.
func Valid(sel string) bool {
	_, err := cascadia.ParseGroup(sel)
	return err == nil
}
