package common

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
)

var markdownLinkPattern = regexp.MustCompile(`^\[[^\]]*\]\((https?://\S+)\)$`)

// FilterFields converts v to a JSON object and keeps only the requested
// comma-separated keys. An empty field list keeps everything.
func FilterFields(v interface{}, fieldsStr string) map[string]interface{} {
	full := structToMap(v)
	if strings.TrimSpace(fieldsStr) == "" {
		return full
	}

	include := make(map[string]bool)
	for _, field := range strings.Split(fieldsStr, ",") {
		if field = strings.TrimSpace(field); field != "" {
			include[field] = true
		}
	}

	filtered := make(map[string]interface{}, len(include))
	for key, value := range full {
		if include[key] {
			filtered[key] = value
		}
	}
	return filtered
}

// structToMap converts a struct to map[string]interface{} using JSON marshaling.
func structToMap(obj interface{}) map[string]interface{} {
	data, _ := json.Marshal(obj)
	var result map[string]interface{}
	_ = json.Unmarshal(data, &result)
	return result
}

// ContentHash returns the xxhash64 of data as 16 hex characters.
func ContentHash(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// SanitizeURL strips what usually clings to a URL pasted from chat or
// markdown: surrounding space, quotes, brackets, trailing separators and
// [text](url) wrappers. A closing paren stays when it balances one in the URL.
func SanitizeURL(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if m := markdownLinkPattern.FindStringSubmatch(s); len(m) > 1 {
		s = m[1]
	}
	s = strings.TrimLeft(s, "([<\"'`")
	for s != "" {
		last := s[len(s)-1]
		if last == ')' && strings.Count(s, "(") >= strings.Count(s, ")") {
			break
		}
		if !strings.ContainsRune(",;>\"'`]})", rune(last)) {
			break
		}
		s = s[:len(s)-1]
	}
	return strings.TrimSpace(s)
}
