// Package openai implements pkg/llm's Streamer on the OpenAI chat
// completions API via sashabaranov/go-openai.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/seii-chiro/chatbot/pkg/llm"
)

// DefaultModel is the default OpenAI chat model.
const DefaultModel = "gpt-4o-mini"

// Streamer wraps the OpenAI streaming chat completions API.
type Streamer struct {
	client *openai.Client
	model  string
}

// Config holds configuration for the OpenAI streamer.
type Config struct {
	// BaseURL overrides the API endpoint, for OpenAI-compatible servers.
	BaseURL string

	// Model is the chat model to use. Defaults to DefaultModel if empty.
	Model string
}

// New creates a streamer backed by the OpenAI API. The API key is read
// from the OPENAI_API_KEY environment variable.
func New(cfg Config) (*Streamer, error) {
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

	return &Streamer{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

// Stream sends a streaming chat completion request and forwards each delta's
// content to fn as it arrives.
func (s *Streamer) Stream(ctx context.Context, messages []llm.Message, fn llm.DeltaFunc) error {
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	stream, err := s.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: msgs,
		Stream:   true,
	})
	if err != nil {
		return fmt.Errorf("%w: creating stream: %v", llm.ErrGeneration, err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: reading stream: %v", llm.ErrGeneration, err)
		}

		if len(resp.Choices) == 0 {
			continue
		}

		if delta := resp.Choices[0].Delta.Content; delta != "" {
			if err := fn(delta); err != nil {
				return err
			}
		}
	}
}

// Close releases resources held by the streamer.
func (s *Streamer) Close() error {
	return nil
}

var _ llm.Streamer = (*Streamer)(nil)
