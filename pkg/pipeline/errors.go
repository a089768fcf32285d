package pipeline

import (
	"errors"
	"fmt"

	"github.com/dtnitsch/llm-page-context/pkg/readable"
)

var (
	ErrUnsupportedPage     = errors.New("this page cannot be extracted")
	ErrInsufficientContent = errors.New("not enough content found; try a different extraction mode")
	ErrExtractionFailed    = errors.New("content extraction failed")
	ErrFetch               = errors.New("failed to load page")
	ErrParse               = errors.New("failed to parse page")
)

// ErrorKind classifies a failed Result.
type ErrorKind string

const (
	KindNone                ErrorKind = ""
	KindUnsupportedPage     ErrorKind = "unsupported_page"
	KindInsufficientContent ErrorKind = "insufficient_content"
	KindExtractionFailed    ErrorKind = "extraction_failed"
	KindFetch               ErrorKind = "fetch_error"
	KindParse               ErrorKind = "parse_error"
)

// KindOf maps err onto the taxonomy. Unknown errors are extraction failures.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrUnsupportedPage):
		return KindUnsupportedPage
	case errors.Is(err, ErrInsufficientContent):
		return KindInsufficientContent
	case errors.Is(err, ErrFetch):
		return KindFetch
	case errors.Is(err, ErrParse):
		return KindParse
	default:
		return KindExtractionFailed
	}
}

// isolationError maps an isolator failure: too little text after the
// readability parser ran is a failed extraction; too little text from the
// text path alone is insufficient content.
func isolationError(err error) error {
	var short *readable.TooShortError
	if errors.As(err, &short) && !short.TriedReadability() {
		return fmt.Errorf("%w: %w", ErrInsufficientContent, err)
	}
	return fmt.Errorf("%w: %w", ErrExtractionFailed, err)
}
