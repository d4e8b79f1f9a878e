// Package llmutils is the llm provider utility package
package llmutils

import (
	"fmt"

	"github.com/seii-chiro/chatbot/pkg/llm"
	"github.com/seii-chiro/chatbot/pkg/llm/ollama"
	"github.com/seii-chiro/chatbot/pkg/llm/openai"
)

type NewStreamerOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
}

func NewStreamer(o *NewStreamerOpts) (llm.Streamer, error) {
	switch o.ProviderType {
	case "ollama":
		return ollama.New(ollama.Config{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		}), nil
	case "openai":
		return openai.New(openai.Config{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", o.ProviderType)
	}
}
