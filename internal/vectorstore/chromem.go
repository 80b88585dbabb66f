package vectorstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	chromem "github.com/philippgille/chromem-go"

	"github.com/fixxit/machdocs/internal/embeddings"
)

const collectionName = "machine-docs"

// ChromemStore implements Store using chromem-go. Metadata filtering happens
// inside the collection query, fused with the similarity computation.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedFunc  chromem.EmbeddingFunc
}

// NewChromemStore creates an in-memory ChromemStore backed by the given
// embedder for query-time embedding.
func NewChromemStore(embedder embeddings.Embedder) (*ChromemStore, error) {
	db := chromem.NewDB()
	ef := embeddings.ToChromemFunc(embedder)

	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemStore{db: db, collection: col, embedFunc: ef}, nil
}

func (s *ChromemStore) AddChunks(ctx context.Context, chunks []IndexedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:        c.ChunkID(),
			Content:   c.Text,
			Embedding: c.Embedding,
			Metadata: map[string]string{
				"document_id":   strconv.FormatInt(c.DocumentID, 10),
				"chunk_index":   strconv.Itoa(c.ChunkIndex),
				"page_number":   strconv.Itoa(c.PageNumber),
				"machine":       c.Machine,
				"document_type": c.DocumentType,
			},
		}
	}

	return s.collection.AddDocuments(ctx, docs, 1)
}

func (s *ChromemStore) DeleteDocument(ctx context.Context, documentID int64) error {
	where := map[string]string{"document_id": strconv.FormatInt(documentID, 10)}
	return s.collection.Delete(ctx, where, nil)
}

func (s *ChromemStore) Search(ctx context.Context, query string, k int, filter *Filter) ([]Result, error) {
	if k <= 0 {
		k = 10
	}

	// chromem-go requires nResults <= collection size.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := s.collection.Query(ctx, query, k, buildWhere(filter), nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	hits := make([]Result, len(results))
	for i, r := range results {
		docID, _ := strconv.ParseInt(r.Metadata["document_id"], 10, 64)
		chunkIndex, _ := strconv.Atoi(r.Metadata["chunk_index"])
		pageNumber, _ := strconv.Atoi(r.Metadata["page_number"])
		hits[i] = Result{
			ChunkID:    r.ID,
			DocumentID: docID,
			ChunkIndex: chunkIndex,
			PageNumber: pageNumber,
			Text:       r.Content,
			Similarity: r.Similarity,
		}
	}

	// chromem orders by similarity only; impose the documented tie-break.
	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].Similarity != hits[b].Similarity {
			return hits[a].Similarity > hits[b].Similarity
		}
		if hits[a].ChunkIndex != hits[b].ChunkIndex {
			return hits[a].ChunkIndex < hits[b].ChunkIndex
		}
		return hits[a].DocumentID < hits[b].DocumentID
	})

	return hits, nil
}

func (s *ChromemStore) Persist(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating vector directory: %w", err)
	}
	return s.db.ExportToFile(filepath.Join(dir, "chromem.gob.gz"), true, "")
}

func (s *ChromemStore) Load(ctx context.Context, dir string) error {
	if err := s.db.ImportFromFile(filepath.Join(dir, "chromem.gob.gz"), ""); err != nil {
		return fmt.Errorf("import from file: %w", err)
	}

	// Re-acquire collection reference after import.
	col := s.db.GetCollection(collectionName, s.embedFunc)
	if col == nil {
		return fmt.Errorf("collection %q not found after import", collectionName)
	}
	s.collection = col
	return nil
}

func (s *ChromemStore) Count() int {
	return s.collection.Count()
}

func buildWhere(filter *Filter) map[string]string {
	if filter == nil {
		return nil
	}
	where := make(map[string]string)
	if filter.Machine != "" {
		where["machine"] = filter.Machine
	}
	if filter.DocumentType != "" {
		where["document_type"] = filter.DocumentType
	}
	if len(where) == 0 {
		return nil
	}
	return where
}
