package textproc

import (
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Normalize cleans raw extracted text for indexing: control characters are
// removed, runs of whitespace collapse to a single space, and sentence
// punctuation is preserved. The result is deterministic for identical input.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	// NUL and other non-printing controls show up in PDF extractions and are
	// rejected by most text stores.
	var b strings.Builder
	b.Grow(len(raw))
	for _, ch := range raw {
		if ch == '\n' || ch == '\r' || ch == '\t' {
			b.WriteRune(' ')
			continue
		}
		if ch < 0x20 || ch == 0x7f {
			continue
		}
		b.WriteRune(ch)
	}

	return strings.TrimSpace(whitespaceRe.ReplaceAllString(b.String(), " "))
}

// WordCount returns the number of whitespace-separated words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
