// Package ollama implements pkg/embeddings' Embedder client for Ollama's
// embedding APIs. Two API generations exist: /api/embed takes a batch of
// inputs and returns one vector per input, while the older /api/embeddings
// takes a single prompt and returns a single vector. The embedder probes for
// the batch API on first use and falls back to per-prompt calls when it is
// unavailable.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/seii-chiro/chatbot/pkg/embeddings"
)

const (
	// DefaultModel is the default model used for embeddings.
	DefaultModel = "nomic-embed-text"

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultBatchSize caps how many texts are sent per batch call.
	DefaultBatchSize = 32
)

// Embedder wraps Ollama's embedding APIs.
type Embedder struct {
	baseURL    string
	model      string
	batchSize  int
	httpClient *http.Client

	probeOnce sync.Once
	hasBatch  bool
}

// Config holds configuration for the Ollama embedder.
type Config struct {
	// BaseURL is the Ollama API URL. Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the embedding model to use. Defaults to DefaultModel if empty.
	Model string

	// BatchSize caps texts per batch call. Defaults to DefaultBatchSize.
	BatchSize int
}

// batchRequest is the request body for the batch /api/embed endpoint.
type batchRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// batchResponse is the response from the batch /api/embed endpoint.
type batchResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// promptRequest is the request body for the legacy /api/embeddings endpoint.
type promptRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// promptResponse is the response from the legacy /api/embeddings endpoint.
type promptResponse struct {
	Embedding []float32 `json:"embedding"`
}

// NewEmbedder creates a new embedder using Ollama's embedding APIs.
func NewEmbedder(cfg Config) (*Embedder, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &Embedder{
		baseURL:   baseURL,
		model:     model,
		batchSize: batchSize,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
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

// EmbedBatch converts texts into vector embeddings, order-preserving. The
// backend capability is probed once: when the batch endpoint exists, texts
// are sent in batches of at most the configured batch size; otherwise each
// text is embedded with its own per-prompt call.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	e.probeOnce.Do(func() {
		e.hasBatch = e.probeBatchAPI(ctx)
	})

	out := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		batch := texts[start:end]

		if e.hasBatch {
			vectors, err := e.embedBatchCall(ctx, batch)
			if err != nil {
				return nil, err
			}
			if len(vectors) != len(batch) {
				return nil, fmt.Errorf("%w: requested %d, got %d", embeddings.ErrCountMismatch, len(batch), len(vectors))
			}
			out = append(out, vectors...)
			continue
		}

		for _, text := range batch {
			vector, err := e.embedPromptCall(ctx, text)
			if err != nil {
				return nil, err
			}
			out = append(out, vector)
		}
	}

	return out, nil
}

// probeBatchAPI checks whether the batch /api/embed endpoint is available.
// A 404 means the server predates the batch API.
func (e *Embedder) probeBatchAPI(ctx context.Context) bool {
	body, err := json.Marshal(batchRequest{Model: e.model, Input: []string{}})
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode != http.StatusNotFound
}

func (e *Embedder) embedBatchCall(ctx context.Context, batch []string) ([][]float32, error) {
	var parsed batchResponse
	if err := e.post(ctx, "/api/embed", batchRequest{Model: e.model, Input: batch}, &parsed); err != nil {
		return nil, err
	}

	if len(parsed.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", embeddings.ErrEmbedding)
	}

	return parsed.Embeddings, nil
}

func (e *Embedder) embedPromptCall(ctx context.Context, text string) ([]float32, error) {
	var parsed promptResponse
	if err := e.post(ctx, "/api/embeddings", promptRequest{Model: e.model, Prompt: text}, &parsed); err != nil {
		return nil, err
	}

	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned", embeddings.ErrEmbedding)
	}

	return parsed.Embedding, nil
}

func (e *Embedder) post(ctx context.Context, path string, reqBody, respBody any) error {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("%w: marshaling request: %v", embeddings.ErrEmbedding, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("%w: creating request: %v", embeddings.ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: sending request: %v", embeddings.ErrEmbedding, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: ollama returned status %d: %s", embeddings.ErrEmbedding, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("%w: decoding response: %v", embeddings.ErrEmbedding, err)
	}

	return nil
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
