package detector

import (
	"strings"

	"github.com/gobwas/glob"
	whatwgUrl "github.com/nlnwa/whatwg-url/url"
)

var urlParser = whatwgUrl.NewParser()

type specialPattern struct {
	glob   glob.Glob
	reason string
}

func compile(reason string, patterns ...string) []specialPattern {
	out := make([]specialPattern, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, specialPattern{glob: glob.MustCompile(p), reason: reason})
	}
	return out
}

// internalSchemes never carry page content the extractor can read.
var internalSchemes = map[string]string{
	"chrome":           "browser internal page",
	"chrome-extension": "extension page",
	"chrome-search":    "browser internal page",
	"chrome-untrusted": "browser internal page",
	"edge":             "browser internal page",
	"about":            "browser internal page",
	"moz-extension":    "extension page",
	"view-source":      "source view",
	"devtools":         "developer tools",
	"brave":            "browser internal page",
	"opera":            "browser internal page",
	"vivaldi":          "browser internal page",
	"javascript":       "script URL",
	"data":             "data URL",
	"blob":             "blob URL",
}

// specialPages match "host/path" of otherwise ordinary URLs.
var specialPages = buildSpecialPages(map[string][]string{
	"extension store": {
		"chrome.google.com/webstore*",
		"chromewebstore.google.com*",
		"addons.mozilla.org*",
		"microsoftedge.microsoft.com/addons*",
	},
	"browser settings": {
		"support.google.com/chrome/*settings*",
		"accounts.google.com*",
	},
	"new tab page": {
		"www.google.com/_/chrome/newtab*",
		"ntp.msn.com*",
		"start.opera.com*",
	},
})

func buildSpecialPages(byReason map[string][]string) []specialPattern {
	var out []specialPattern
	for reason, patterns := range byReason {
		out = append(out, compile(reason, patterns...)...)
	}
	return out
}

// SpecialPageReason returns a non-empty reason when rawURL points at a page
// the extractor must refuse: browser-internal schemes or known non-content
// locations. file:// URLs are allowed.
func SpecialPageReason(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return "empty URL"
	}
	u, err := urlParser.Parse(raw)
	if err != nil {
		return "unparseable URL"
	}
	scheme := strings.ToLower(strings.TrimSuffix(u.Protocol(), ":"))
	if reason, ok := internalSchemes[scheme]; ok {
		return reason
	}
	if scheme == "file" {
		return ""
	}
	if scheme != "http" && scheme != "https" {
		return "unsupported scheme " + scheme
	}

	target := strings.ToLower(u.Hostname() + u.Pathname())
	for _, p := range specialPages {
		if p.glob.Match(target) {
			return p.reason
		}
	}
	return ""
}

func IsSpecialPage(rawURL string) bool {
	return SpecialPageReason(rawURL) != ""
}
