package ingest

import "errors"

var (
	// ErrEmptyContent marks a document whose extracted text is empty after
	// normalization. The document is recorded as failed but the batch
	// continues.
	ErrEmptyContent = errors.New("document has no content after extraction")

	// ErrEmbedding marks an embedding provider failure that persisted after
	// the retry.
	ErrEmbedding = errors.New("embedding generation failed")

	// ErrIndexConsistency marks disagreement between the relational index and
	// the vector store for a document. It is not retried automatically.
	ErrIndexConsistency = errors.New("index consistency violation")
)
