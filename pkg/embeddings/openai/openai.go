// Package openai implements pkg/embeddings' Embedder on the OpenAI
// embeddings API via sashabaranov/go-openai.
package openai

import (
	"context"
	"errors"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/seii-chiro/chatbot/pkg/embeddings"
)

// DefaultModel is the default OpenAI embedding model.
const DefaultModel = "text-embedding-3-small"

// Embedder wraps the OpenAI embeddings API.
type Embedder struct {
	client *openai.Client
	model  string
}

// Config holds configuration for the OpenAI embedder.
type Config struct {
	// BaseURL overrides the API endpoint, for OpenAI-compatible servers.
	BaseURL string

	// Model is the embedding model to use. Defaults to DefaultModel if empty.
	Model string
}

// NewEmbedder creates an embedder backed by the OpenAI API. The API key is
// read from the OPENAI_API_KEY environment variable.
func NewEmbedder(cfg Config) (*Embedder, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	clientCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Embedder{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

// Embed converts a single text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch converts texts into vector embeddings in a single API call,
// order-preserving. The OpenAI API accepts the whole input list natively.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", embeddings.ErrEmbedding, err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: requested %d, got %d", embeddings.ErrCountMismatch, len(texts), len(resp.Data))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		out[d.Index] = d.Embedding
	}

	return out, nil
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
