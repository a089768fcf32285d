package pdf

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtnitsch/llm-page-context/models"
)

func TestJoinPages(t *testing.T) {
	pages := []models.PDFPage{
		{Number: 1, Text: " First page. "},
		{Number: 2, Text: "   "},
		{Number: 3, Text: "Third page."},
	}
	assert.Equal(t, "First page.\n\nThird page.", JoinPages(pages))
	assert.Equal(t, "", JoinPages(nil))
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF([]byte("%PDF-1.7\n...")))
	assert.False(t, IsPDF([]byte("<html>")))
	assert.False(t, IsPDF(nil))
}

func TestReadBytesRejectsGarbage(t *testing.T) {
	r := New(zerolog.Nop())
	_, err := r.ReadBytes([]byte("not a pdf at all"))
	require.Error(t, err)
}

func TestReadFileMissing(t *testing.T) {
	r := New(zerolog.Nop(), WithMaxPages(2))
	_, err := r.ReadFile("/nonexistent/file.pdf")
	require.Error(t, err)
	assert.Equal(t, 2, r.maxPages)
}
