// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"fmt"

	"github.com/seii-chiro/chatbot/pkg/embeddings"
	"github.com/seii-chiro/chatbot/pkg/embeddings/ollama"
	"github.com/seii-chiro/chatbot/pkg/embeddings/openai"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	BatchSize    int
}

func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch o.ProviderType {
	case "ollama":
		return ollama.NewEmbedder(ollama.Config{
			BaseURL:   o.TargetURL,
			Model:     o.Model,
			BatchSize: o.BatchSize,
		})
	case "openai":
		return openai.NewEmbedder(openai.Config{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}
