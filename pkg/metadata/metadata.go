// Package metadata pulls configured fields (author, date, tags...) out of a
// page and renders them through a {key} template.
package metadata

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/rs/zerolog"

	"github.com/dtnitsch/llm-page-context/models"
)

var (
	placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_-]+)\}`)
	segmentSeparator   = regexp.MustCompile(`[ \t]*(?:\||\r?\n)[ \t]*`)
)

type Extractor struct {
	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Extractor {
	return &Extractor{logger: logger.With().Str("component", "metadata").Logger()}
}

// Values queries every enabled field with a non-empty selector and joins the
// trimmed text of all matches with the format separator. Fields that match
// nothing are absent from the result. doc must be the original, unfiltered
// document.
func (e *Extractor) Values(doc *goquery.Document, cfg *models.MetadataConfig) map[string]string {
	values := map[string]string{}
	if doc == nil || cfg == nil {
		return values
	}
	for _, field := range cfg.Selectors {
		if !field.Enabled || strings.TrimSpace(field.Selector) == "" {
			continue
		}
		if _, err := cascadia.ParseGroup(field.Selector); err != nil {
			e.logger.Warn().Str("field", field.Key).Str("selector", field.Selector).Err(err).Msg("skipping invalid metadata selector")
			continue
		}

		// Every non-empty match is kept in document order, repeats included.
		var parts []string
		doc.Find(field.Selector).Each(func(_ int, s *goquery.Selection) {
			if text := strings.Join(strings.Fields(s.Text()), " "); text != "" {
				parts = append(parts, text)
			}
		})
		if len(parts) > 0 {
			values[field.Key] = strings.Join(parts, cfg.Format.Separator)
		}
	}
	return values
}

// Extract returns the formatted metadata block, or "" when metadata is
// disabled or nothing matched.
func (e *Extractor) Extract(doc *goquery.Document, cfg *models.MetadataConfig) string {
	if cfg == nil || !cfg.Enabled {
		return ""
	}
	values := e.Values(doc, cfg)
	if len(values) == 0 {
		return ""
	}
	return Format(values, cfg.Format)
}

type segment struct {
	sep  string
	text string
}

// Format substitutes {key} placeholders. With IncludeEmpty unset, a segment
// (text bounded by "|" or a newline) whose placeholders all lack a value is
// dropped together with its leading separator.
func Format(values map[string]string, format models.MetadataFormat) string {
	if format.IncludeEmpty {
		out := placeholderPattern.ReplaceAllStringFunc(format.Template, func(m string) string {
			return values[m[1:len(m)-1]]
		})
		return strings.TrimSpace(out)
	}

	var kept []segment
	for _, seg := range splitSegments(format.Template) {
		keys := placeholderPattern.FindAllStringSubmatch(seg.text, -1)
		if len(keys) > 0 {
			found := false
			for _, k := range keys {
				if values[k[1]] != "" {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		seg.text = strings.TrimSpace(placeholderPattern.ReplaceAllStringFunc(seg.text, func(m string) string {
			return values[m[1:len(m)-1]]
		}))
		if seg.text == "" {
			continue
		}
		kept = append(kept, seg)
	}

	var b strings.Builder
	for i, seg := range kept {
		if i > 0 {
			b.WriteString(seg.sep)
		}
		b.WriteString(seg.text)
	}
	return cleanSeparators(b.String())
}

func splitSegments(template string) []segment {
	var out []segment
	prevSep := ""
	last := 0
	for _, loc := range segmentSeparator.FindAllStringIndex(template, -1) {
		out = append(out, segment{sep: prevSep, text: template[last:loc[0]]})
		prevSep = template[loc[0]:loc[1]]
		last = loc[1]
	}
	return append(out, segment{sep: prevSep, text: template[last:]})
}

func cleanSeparators(s string) string {
	s = strings.TrimSpace(s)
	for {
		trimmed := strings.TrimSpace(strings.Trim(s, "|"))
		if trimmed == s {
			return s
		}
		s = trimmed
	}
}
