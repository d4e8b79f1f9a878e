// Package embeddings
package embeddings

import (
	"context"
	"errors"
)

var (
	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrCountMismatch is returned when the backend returns a different
	// number of vectors than texts requested.
	ErrCountMismatch = errors.New("embedding count mismatch")
)

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts a single text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts texts into vector embeddings, order-preserving,
	// one vector per input text. Implementations split the work into
	// backend batches as needed.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
