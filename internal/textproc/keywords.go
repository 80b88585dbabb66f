package textproc

import (
	"regexp"
	"strings"
)

// KeywordType classifies an extracted keyword by lightweight pattern rules.
type KeywordType string

const (
	KeywordError     KeywordType = "error"
	KeywordPart      KeywordType = "part"
	KeywordProcedure KeywordType = "procedure"
	KeywordMachine   KeywordType = "machine"
	KeywordGeneral   KeywordType = "general"
)

// Keyword is a single normalized token occurrence with its classification.
type Keyword struct {
	Term string
	Type KeywordType
}

var (
	tokenRe = regexp.MustCompile(`[a-zA-Z0-9][a-zA-Z0-9\-/]*`)

	// Fault/error codes: a short letter prefix followed by digits (E001, F12, AL-204).
	errorCodeRe = regexp.MustCompile(`^[a-z]{1,3}-?\d{1,4}$`)

	// Part numbers: digit groups joined by dashes or slashes (12-3456, 4711/02).
	partNumberRe = regexp.MustCompile(`^\d{2,}[-/]\d+[a-z0-9\-/]*$`)
)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "has": {}, "have": {},
	"was": {}, "were": {}, "will": {}, "with": {}, "this": {}, "that": {},
	"from": {}, "they": {}, "when": {}, "where": {}, "which": {}, "what": {},
	"how": {}, "why": {}, "who": {}, "into": {}, "during": {}, "before": {},
	"after": {}, "above": {}, "below": {}, "between": {}, "should": {},
	"would": {}, "could": {}, "must": {}, "may": {}, "might": {}, "been": {},
	"being": {}, "does": {}, "did": {}, "about": {}, "through": {},
}

var procedureWords = map[string]struct{}{
	"install": {}, "installation": {}, "remove": {}, "removal": {},
	"replace": {}, "replacement": {}, "adjust": {}, "adjustment": {},
	"calibrate": {}, "calibration": {}, "inspect": {}, "inspection": {},
	"lubricate": {}, "lubrication": {}, "clean": {}, "cleaning": {},
	"maintenance": {}, "repair": {}, "troubleshoot": {}, "troubleshooting": {},
	"procedure": {}, "reset": {},
}

var machineWords = map[string]struct{}{
	"feeder": {}, "folder": {}, "ironer": {}, "dryer": {}, "press": {},
	"picker": {}, "separator": {}, "washer": {}, "conveyor": {}, "tunnel": {},
}

// ExtractKeywords tokenizes cleaned text and returns one Keyword per surviving
// token occurrence, in document order. Tokens shorter than three characters
// are discarded unless they match a known alphanumeric code pattern, and stop
// words are dropped. Deterministic for identical input.
func ExtractKeywords(cleaned string) []Keyword {
	if cleaned == "" {
		return nil
	}

	tokens := tokenRe.FindAllString(cleaned, -1)
	keywords := make([]Keyword, 0, len(tokens))

	for _, tok := range tokens {
		term := strings.ToLower(tok)
		isCode := errorCodeRe.MatchString(term) || partNumberRe.MatchString(term)
		if len(term) < 3 && !isCode {
			continue
		}
		if _, stop := stopWords[term]; stop {
			continue
		}
		keywords = append(keywords, Keyword{Term: term, Type: ClassifyKeyword(term)})
	}

	return keywords
}

// ClassifyKeyword assigns a KeywordType to a normalized term using the same
// pattern rules for document text and search queries.
func ClassifyKeyword(term string) KeywordType {
	switch {
	case errorCodeRe.MatchString(term):
		return KeywordError
	case partNumberRe.MatchString(term):
		return KeywordPart
	default:
	}
	if _, ok := procedureWords[term]; ok {
		return KeywordProcedure
	}
	if _, ok := machineWords[term]; ok {
		return KeywordMachine
	}
	return KeywordGeneral
}

// QueryTerms extracts distinct normalized terms from a search query using the
// same tokenizer as document indexing, preserving first-seen order.
func QueryTerms(query string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, kw := range ExtractKeywords(Normalize(query)) {
		if _, ok := seen[kw.Term]; ok {
			continue
		}
		seen[kw.Term] = struct{}{}
		terms = append(terms, kw.Term)
	}
	return terms
}
