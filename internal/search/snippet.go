package search

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const snippetLength = 300

// makeSnippet truncates text to roughly snippetLength characters without
// splitting a word, appending an ellipsis when content was cut.
func makeSnippet(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= snippetLength {
		return text
	}
	cut := snippetLength
	for cut > 0 && !unicode.IsSpace(rune(text[cut])) {
		cut--
	}
	if cut == 0 {
		// No space to break on; cut at a rune boundary instead.
		cut = snippetLength
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
	}
	return strings.TrimRight(text[:cut], " ") + "..."
}

// snippetAround extracts a window of text centered on the first occurrence of
// term, expanded to word boundaries. Falls back to the head of the text when
// the term is absent.
func snippetAround(text, term string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	idx := strings.Index(strings.ToLower(text), strings.ToLower(term))
	if idx < 0 || len(text) <= snippetLength {
		return makeSnippet(text)
	}

	start := idx - snippetLength/2
	if start < 0 {
		start = 0
	}
	for start > 0 && !unicode.IsSpace(rune(text[start])) {
		start--
	}
	if start > 0 {
		start++ // step past the space
	}

	end := start + snippetLength
	if end >= len(text) {
		return prefixEllipsis(start, strings.TrimSpace(text[start:]))
	}
	for end > start && !unicode.IsSpace(rune(text[end])) {
		end--
	}
	if end == start {
		end = start + snippetLength
		if end > len(text) {
			end = len(text)
		}
		for end > start && end < len(text) && !utf8.RuneStart(text[end]) {
			end--
		}
	}
	return prefixEllipsis(start, strings.TrimSpace(text[start:end])) + "..."
}

func prefixEllipsis(start int, s string) string {
	if start > 0 {
		return "..." + s
	}
	return s
}
