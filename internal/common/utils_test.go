package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  https://example.com/a  ", "https://example.com/a"},
		{"https://example.com/a,", "https://example.com/a"},
		{"<https://example.com/a>;", "https://example.com/a"},
		{`"https://example.com/a"`, "https://example.com/a"},
		{"(https://example.com/a)", "https://example.com/a"},
		{"[docs](https://example.com/docs)", "https://example.com/docs"},
		{"[wiki](https://en.wikipedia.org/wiki/Go_(language))", "https://en.wikipedia.org/wiki/Go_(language)"},
		{"https://en.wikipedia.org/wiki/Go_(language)", "https://en.wikipedia.org/wiki/Go_(language)"},
		{"(https://en.wikipedia.org/wiki/Go_(language))", "https://en.wikipedia.org/wiki/Go_(language)"},
		{"https://example.com/a.html", "https://example.com/a.html"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeURL(tt.in))
		})
	}
}

func TestContentHash(t *testing.T) {
	assert.Len(t, ContentHash([]byte("hello")), 16)
	assert.Equal(t, ContentHash([]byte("hello")), ContentHash([]byte("hello")))
	assert.NotEqual(t, ContentHash([]byte("hello")), ContentHash([]byte("world")))
}
