// Package chunker splits cleaned page text into overlapping word-bounded
// segments suitable for semantic embedding.
package chunker

import (
	"strings"
)

// Default chunking parameters, in words.
const (
	DefaultChunkSize = 800
	DefaultOverlap   = 100
	MinChunkSize     = 500
	MaxChunkSize     = 1000
)

// ChunkType is a coarse content classification inferred from keyword
// heuristics. It is advisory, not guaranteed precise.
type ChunkType string

const (
	TypeContent         ChunkType = "content"
	TypeProcedure       ChunkType = "procedure"
	TypeSpecification   ChunkType = "specification"
	TypeTroubleshooting ChunkType = "troubleshooting"
)

// Page is one page of cleaned text, in page order.
type Page struct {
	Number int
	Text   string
}

// Draft is a chunk before it is persisted: its text, its absolute character
// offsets into the concatenated document text, and the page containing its
// start offset.
type Draft struct {
	Index      int
	Text       string
	PageNumber int
	StartChar  int
	EndChar    int
	WordCount  int
	Type       ChunkType
}

// Chunker produces overlapping chunk drafts from page text.
type Chunker struct {
	chunkSize int
	overlap   int
}

// New creates a Chunker with the given target size and overlap (in words).
// Out-of-range values fall back to the defaults.
func New(chunkSize, overlap int) *Chunker {
	if chunkSize < MinChunkSize || chunkSize > MaxChunkSize {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultOverlap
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}
}

type word struct {
	start int // byte offset into the concatenated text
	end   int
	page  int
}

// Chunk concatenates the pages in order and splits them into drafts of
// roughly chunkSize words with a fixed overlap between consecutive drafts.
// Words are never split; a document shorter than the chunk size yields a
// single draft covering the whole text.
func (c *Chunker) Chunk(pages []Page) []Draft {
	concatenated, words := concatenate(pages)
	if len(words) == 0 {
		return nil
	}

	var drafts []Draft
	step := c.chunkSize - c.overlap

	for start := 0; start < len(words); start += step {
		end := start + c.chunkSize
		if end > len(words) {
			end = len(words)
		}

		text := concatenated[words[start].start:words[end-1].end]
		drafts = append(drafts, Draft{
			Index:      len(drafts),
			Text:       text,
			PageNumber: words[start].page,
			StartChar:  words[start].start,
			EndChar:    words[end-1].end,
			WordCount:  end - start,
			Type:       classify(text),
		})

		if end == len(words) {
			break
		}
	}

	return drafts
}

// Concatenate joins page text in page order with single-space separators,
// matching the offset space used by Chunk.
func Concatenate(pages []Page) string {
	text, _ := concatenate(pages)
	return text
}

func concatenate(pages []Page) (string, []word) {
	var b strings.Builder
	var words []word

	for _, p := range pages {
		trimmed := strings.TrimSpace(p.Text)
		if trimmed == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		pageStart := b.Len()
		b.WriteString(trimmed)

		offset := 0
		for _, f := range strings.Fields(trimmed) {
			idx := strings.Index(trimmed[offset:], f)
			start := pageStart + offset + idx
			words = append(words, word{start: start, end: start + len(f), page: p.Number})
			offset += idx + len(f)
		}
	}

	return b.String(), words
}

var typeMarkers = []struct {
	t       ChunkType
	markers []string
}{
	{TypeTroubleshooting, []string{"troubleshoot", "fault", "alarm", "error code", "malfunction", "does not start"}},
	{TypeProcedure, []string{"step 1", "procedure", "install", "remove the", "replace the", "adjust the", "calibrat"}},
	{TypeSpecification, []string{"specification", "dimensions", "voltage", "capacity", "rated", "tolerance", "operating range"}},
}

// classify picks the chunk type whose markers occur most often in the text,
// defaulting to content.
func classify(text string) ChunkType {
	lower := strings.ToLower(text)
	best := TypeContent
	bestHits := 0
	for _, tm := range typeMarkers {
		hits := 0
		for _, m := range tm.markers {
			hits += strings.Count(lower, m)
		}
		if hits > bestHits {
			bestHits = hits
			best = tm.t
		}
	}
	return best
}
