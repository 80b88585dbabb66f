// Package vectorstore persists chunk embeddings and serves filtered
// nearest-neighbor lookups by cosine similarity.
package vectorstore

import (
	"context"
	"fmt"
)

// IndexedChunk is one chunk ready for the vector store: its identity within
// the document, the metadata used for filtering, and its embedding vector.
type IndexedChunk struct {
	DocumentID   int64
	ChunkIndex   int
	PageNumber   int
	Machine      string
	DocumentType string
	Text         string
	Embedding    []float32
}

// ChunkID returns the store key of the chunk, stable across re-ingestion of
// unchanged content.
func (c IndexedChunk) ChunkID() string {
	return fmt.Sprintf("chunk:%d:%d", c.DocumentID, c.ChunkIndex)
}

// Filter restricts the candidate set before similarity ranking. Both fields
// are hard exclusions when set; filtering is applied by the store, never as
// post-hoc truncation.
type Filter struct {
	Machine      string
	DocumentType string
}

// Result is one nearest-neighbor hit.
type Result struct {
	ChunkID    string
	DocumentID int64
	ChunkIndex int
	PageNumber int
	Text       string
	Similarity float32
}

// Store is the embedding store: it persists one vector per chunk and serves
// nearest-neighbor lookups.
type Store interface {
	// AddChunks inserts or replaces chunks, vectors included.
	AddChunks(ctx context.Context, chunks []IndexedChunk) error

	// DeleteDocument removes every chunk belonging to the document.
	DeleteDocument(ctx context.Context, documentID int64) error

	// Search returns up to k chunks ranked by cosine similarity to the query
	// text, restricted by filter. Ties break by chunk index ascending, then
	// document id ascending, for reproducible ordering.
	Search(ctx context.Context, query string, k int, filter *Filter) ([]Result, error)

	// Persist saves the store's data under dir.
	Persist(ctx context.Context, dir string) error

	// Load restores the store's data from dir.
	Load(ctx context.Context, dir string) error

	// Count returns the number of stored chunks.
	Count() int
}
