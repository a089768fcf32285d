// Package detector holds the cheap page checks that run before extraction:
// special-page rejection, SPA detection and waiting, site name and language
// detection, and URL-based site classification.
package detector

import (
	"net/url"
	"strings"

	"github.com/dtnitsch/llm-page-context/models"
)

// Classification is a URL-only guess at what kind of site a page belongs to.
type Classification struct {
	DomainType string // gov, edu, academic, mobile, commercial
	Category   string // gov/general, academic/general, docs/api, blog, news/tech, forum, general
	Country    string // TLD-based guess: us, uk, de, jp...
}

// Classify inspects host and path of rawURL.
func Classify(rawURL string) Classification {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return Classification{DomainType: "unknown", Category: "general", Country: "unknown"}
	}
	c := Classification{
		DomainType: detectDomainType(u),
		Country:    detectCountry(u),
	}
	c.Category = detectCategory(u, c.DomainType)
	return c
}

// SuggestTemplate maps a page's category onto a readability template key, or
// "" when no template fits.
func SuggestTemplate(rawURL string) (models.ExtractionMode, string) {
	switch Classify(rawURL).Category {
	case "news/tech":
		return models.ModeReadability, "news"
	case "blog":
		return models.ModeReadability, "blog"
	case "docs/api":
		return models.ModeReadability, "docs"
	case "forum":
		return models.ModeReadability, "forum"
	}
	return models.ModeReadability, ""
}

func detectDomainType(u *url.URL) string {
	host := strings.ToLower(u.Hostname())

	if strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".mil") {
		return "gov"
	}
	if strings.HasSuffix(host, ".edu") {
		return "edu"
	}

	academicDomains := []string{
		"arxiv.org", "doi.org", "pubmed.ncbi.nlm.nih.gov",
		"scholar.google.com", "researchgate.net", "academia.edu",
		"biorxiv.org", "medrxiv.org", "ssrn.com",
	}
	for _, domain := range academicDomains {
		if strings.Contains(host, domain) {
			return "academic"
		}
	}

	if strings.HasPrefix(host, "m.") || strings.HasPrefix(host, "mobile.") {
		return "mobile"
	}
	return "commercial"
}

func detectCountry(u *url.URL) string {
	parts := strings.Split(strings.ToLower(u.Hostname()), ".")
	if len(parts) < 2 {
		return "unknown"
	}
	tld := parts[len(parts)-1]

	countries := map[string]string{
		"uk": "uk", "de": "de", "fr": "fr", "jp": "jp", "cn": "cn",
		"au": "au", "ca": "ca", "in": "in", "br": "br", "ru": "ru",
		"it": "it", "es": "es", "nl": "nl", "se": "se", "ch": "ch",
		"kr": "kr", "tw": "tw",
	}
	if country, ok := countries[tld]; ok {
		return country
	}
	if tld == "gov" || tld == "edu" || tld == "mil" {
		return "us"
	}
	return "unknown"
}

func detectCategory(u *url.URL, domainType string) string {
	host := strings.ToLower(u.Hostname())
	path := strings.ToLower(u.Path)

	switch domainType {
	case "gov":
		return "gov/general"
	case "academic", "edu":
		return "academic/general"
	}

	if strings.HasPrefix(host, "docs.") || strings.Contains(path, "/docs/") ||
		strings.Contains(path, "/documentation/") || strings.Contains(path, "/reference/") {
		return "docs/api"
	}
	if strings.HasPrefix(host, "blog.") || strings.Contains(path, "/blog/") ||
		strings.Contains(host, "medium.com") || strings.Contains(host, "substack.com") {
		return "blog"
	}

	forumHosts := []string{"stackoverflow.com", "stackexchange.com", "reddit.com", "discourse", "forum"}
	for _, f := range forumHosts {
		if strings.Contains(host, f) {
			return "forum"
		}
	}
	if strings.Contains(path, "/questions/") || strings.Contains(path, "/thread") {
		return "forum"
	}

	newsDomains := []string{"techcrunch", "wired", "arstechnica", "theverge", "reuters", "bbc", "nytimes", "news"}
	for _, n := range newsDomains {
		if strings.Contains(host, n) {
			return "news/tech"
		}
	}
	return "general"
}
