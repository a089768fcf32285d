package config

import (
	"net/url"
	"strings"
)

// NormalizeDomain lowercases a hostname and strips one leading "www.".
func NormalizeDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimSuffix(d, ".")
	return strings.TrimPrefix(d, "www.")
}

// DomainFromURL returns the normalized hostname of rawURL, or "" when it has none.
func DomainFromURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return NormalizeDomain(u.Hostname())
}
