// Package embeddings defines the embedding capability used by the vector
// store and provides provider adapters. The embedding function must be
// deterministic for identical text under a fixed model so re-ingestion of
// unchanged content is idempotent.
package embeddings

import "context"

// Embedder generates fixed-length dense vectors for text.
type Embedder interface {
	// Embed generates embeddings for one or more texts, one vector per text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector length produced by this embedder.
	Dimensions() int

	// Name identifies the model, so an index can detect model changes.
	Name() string
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, nil
	}
	return vecs[0], nil
}
