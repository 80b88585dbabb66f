// Package ingest runs the document processing pipeline: extraction,
// normalization, chunking, embedding, and the transactional index commit.
package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fixxit/machdocs/internal/catalog"
	"github.com/fixxit/machdocs/internal/chunker"
	"github.com/fixxit/machdocs/internal/embeddings"
	"github.com/fixxit/machdocs/internal/extract"
	"github.com/fixxit/machdocs/internal/keyword"
	"github.com/fixxit/machdocs/internal/textproc"
	"github.com/fixxit/machdocs/internal/vectorstore"
)

const (
	embedAttempts  = 2
	embedBaseDelay = 500 * time.Millisecond

	// DefaultDocumentTimeout bounds the processing of one document.
	DefaultDocumentTimeout = 2 * time.Minute
)

// Options configures an Ingestor.
type Options struct {
	ChunkSize       int
	Overlap         int
	DocumentTimeout time.Duration
	Logger          *slog.Logger
}

// Ingestor processes single documents end to end. All index writes of one
// document land in a single transaction, so readers see either the full old
// version or the full new version.
type Ingestor struct {
	catalog  *catalog.Store
	keywords *keyword.Index
	vectors  vectorstore.Store
	embedder embeddings.Embedder
	chunker  *chunker.Chunker
	timeout  time.Duration
	locks    *docLocks
	logger   *slog.Logger
}

// NewIngestor creates an Ingestor over the given stores and embedder.
func NewIngestor(cat *catalog.Store, kw *keyword.Index, vs vectorstore.Store, emb embeddings.Embedder, opts Options) *Ingestor {
	timeout := opts.DocumentTimeout
	if timeout <= 0 {
		timeout = DefaultDocumentTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		catalog:  cat,
		keywords: kw,
		vectors:  vs,
		embedder: emb,
		chunker:  chunker.New(opts.ChunkSize, opts.Overlap),
		timeout:  timeout,
		locks:    newDocLocks(),
		logger:   logger,
	}
}

// Outcome reports what happened to one document.
type Outcome struct {
	DocumentID int64
	Skipped    bool
	Pages      int
	Chunks     int
}

// Ingest processes one file belonging to the given machine. A document whose
// content hash is unchanged since its last completed run is skipped without
// re-processing. On failure the document is marked failed with the error
// message; the previous version's index entries stay in place but are not
// served until a later run completes again.
func (in *Ingestor) Ingest(ctx context.Context, machine catalog.Machine, filePath string) (*Outcome, error) {
	unlock := in.locks.lock(filePath)
	defer unlock()

	docType := ClassifyPath(machine.DirectoryPath, filePath)

	existing, err := in.catalog.GetDocumentByPath(ctx, filePath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(filePath)
	var hash string
	if err == nil {
		hash, err = extract.HashFile(filePath)
	}
	if err != nil {
		// The file cannot be read at all. Still record a failed document so
		// the stored state agrees with the batch report.
		in.recordUnreadable(ctx, existing, machine, docType, filePath, err)
		return nil, fmt.Errorf("reading %s: %w", filePath, err)
	}

	if existing != nil && existing.Status == catalog.StatusCompleted && existing.ContentHash == hash {
		in.logger.Debug("document unchanged, skipping", "path", filePath)
		return &Outcome{DocumentID: existing.ID, Skipped: true}, nil
	}

	docID, err := in.upsertDocument(ctx, existing, machine, docType, filePath, info.Size())
	if err != nil {
		return nil, err
	}

	if err := in.catalog.SetStatus(ctx, docID, catalog.StatusProcessing, ""); err != nil {
		return nil, err
	}

	outcome, err := in.process(ctx, docID, machine, docType, filePath, hash)
	if err != nil {
		// Record the failure even when the processing context expired.
		logCtx := context.WithoutCancel(ctx)
		if serr := in.catalog.SetStatus(logCtx, docID, catalog.StatusFailed, err.Error()); serr != nil {
			in.logger.Error("recording failure status", "path", filePath, "error", serr)
		}
		return nil, fmt.Errorf("processing %s: %w", filePath, err)
	}
	return outcome, nil
}

// Remove deletes a document and all of its index entries. The keyword side
// runs before the row delete so emptied keywords are garbage-collected and
// relevance is recomputed, then the vectors are cleared after commit.
func (in *Ingestor) Remove(ctx context.Context, filePath string) error {
	unlock := in.locks.lock(filePath)
	defer unlock()

	doc, err := in.catalog.GetDocumentByPath(ctx, filePath)
	if err != nil {
		return err
	}
	if doc == nil {
		return nil
	}

	err = in.catalog.WithTx(ctx, func(tx *sql.Tx) error {
		if err := in.keywords.DeleteDocumentTx(ctx, tx, doc.ID); err != nil {
			return err
		}
		return in.catalog.DeleteDocumentTx(ctx, tx, doc.ID)
	})
	if err != nil {
		return fmt.Errorf("removing %s: %w", filePath, err)
	}

	if err := in.vectors.DeleteDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("%w: clearing vectors for removed document: %v", ErrIndexConsistency, err)
	}

	in.logger.Info("document removed", "path", filePath)
	return nil
}

// upsertDocument reuses the existing document row for the path or creates a
// new one.
func (in *Ingestor) upsertDocument(ctx context.Context, existing *catalog.Document, machine catalog.Machine, docType catalog.DocumentType, filePath string, size int64) (int64, error) {
	if existing != nil {
		if err := in.catalog.ResetDocument(ctx, existing.ID, docType, size); err != nil {
			return 0, err
		}
		return existing.ID, nil
	}
	return in.catalog.CreateDocument(ctx, catalog.Document{
		MachineID:    machine.ID,
		FilePath:     filePath,
		Filename:     filepath.Base(filePath),
		DocumentType: docType,
		FileSize:     size,
	})
}

func (in *Ingestor) recordUnreadable(ctx context.Context, existing *catalog.Document, machine catalog.Machine, docType catalog.DocumentType, filePath string, cause error) {
	logCtx := context.WithoutCancel(ctx)
	docID, err := in.upsertDocument(logCtx, existing, machine, docType, filePath, 0)
	if err != nil {
		in.logger.Error("recording unreadable document", "path", filePath, "error", err)
		return
	}
	if err := in.catalog.SetStatus(logCtx, docID, catalog.StatusFailed, cause.Error()); err != nil {
		in.logger.Error("recording failure status", "path", filePath, "error", err)
	}
}

func (in *Ingestor) process(ctx context.Context, docID int64, machine catalog.Machine, docType catalog.DocumentType, filePath, hash string) (*Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, in.timeout)
	defer cancel()

	raw, err := extract.Pages(filePath)
	if err != nil {
		return nil, fmt.Errorf("extracting text: %w", err)
	}

	pages := make([]catalog.Page, 0, len(raw))
	chunkPages := make([]chunker.Page, 0, len(raw))
	pageKeywords := make([]keyword.PageKeywords, 0, len(raw))
	hasText := false
	for _, p := range raw {
		clean := textproc.Normalize(p.Text)
		if clean != "" {
			hasText = true
		}
		kws := textproc.ExtractKeywords(clean)
		terms := make([]string, 0, len(kws))
		for _, kw := range kws {
			terms = append(terms, kw.Term)
		}
		pages = append(pages, catalog.Page{
			DocumentID: docID,
			PageNumber: p.Number,
			RawText:    p.Text,
			CleanText:  clean,
			Keywords:   terms,
			WordCount:  textproc.WordCount(clean),
			HasTables:  p.HasTables,
			HasImages:  p.HasImages,
		})
		chunkPages = append(chunkPages, chunker.Page{Number: p.Number, Text: clean})
		pageKeywords = append(pageKeywords, keyword.PageKeywords{PageNumber: p.Number, Keywords: kws})
	}
	if !hasText {
		return nil, ErrEmptyContent
	}

	drafts := in.chunker.Chunk(chunkPages)

	texts := make([]string, len(drafts))
	for i, d := range drafts {
		texts[i] = d.Text
	}
	var vectors [][]float32
	err = retryWithBackoff(ctx, func() error {
		var embErr error
		vectors, embErr = in.embedder.Embed(ctx, texts)
		return embErr
	}, embedAttempts, embedBaseDelay)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(vectors) != len(drafts) {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for %d chunks", ErrIndexConsistency, len(vectors), len(drafts))
	}

	chunks := make([]catalog.Chunk, len(drafts))
	indexed := make([]vectorstore.IndexedChunk, len(drafts))
	for i, d := range drafts {
		chunks[i] = catalog.Chunk{
			DocumentID: docID,
			ChunkIndex: d.Index,
			PageNumber: d.PageNumber,
			Text:       d.Text,
			StartChar:  d.StartChar,
			EndChar:    d.EndChar,
			ChunkType:  string(d.Type),
			WordCount:  d.WordCount,
		}
		indexed[i] = vectorstore.IndexedChunk{
			DocumentID:   docID,
			ChunkIndex:   d.Index,
			PageNumber:   d.PageNumber,
			Machine:      machine.Name,
			DocumentType: string(docType),
			Text:         d.Text,
			Embedding:    vectors[i],
		}
	}

	err = in.catalog.WithTx(ctx, func(tx *sql.Tx) error {
		if err := in.catalog.ReplacePagesTx(ctx, tx, docID, pages); err != nil {
			return err
		}
		if err := in.catalog.ReplaceChunksTx(ctx, tx, docID, chunks); err != nil {
			return err
		}
		if err := in.keywords.ReindexTx(ctx, tx, docID, pageKeywords); err != nil {
			return err
		}
		return in.catalog.CompleteDocumentTx(ctx, tx, docID, hash, len(pages))
	})
	if err != nil {
		return nil, err
	}

	// The relational index is already committed. Vector store errors past
	// this point leave the stores disagreeing, which we surface as a
	// consistency failure instead of silently serving stale vectors.
	if err := in.vectors.DeleteDocument(ctx, docID); err != nil {
		return nil, fmt.Errorf("%w: clearing old vectors: %v", ErrIndexConsistency, err)
	}
	if err := in.vectors.AddChunks(ctx, indexed); err != nil {
		return nil, fmt.Errorf("%w: storing vectors: %v", ErrIndexConsistency, err)
	}

	in.logger.Info("document indexed",
		"path", filePath, "pages", len(pages), "chunks", len(chunks), "type", docType)
	return &Outcome{DocumentID: docID, Pages: len(pages), Chunks: len(chunks)}, nil
}
