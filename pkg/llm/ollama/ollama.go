// Package ollama implements pkg/llm's Streamer against Ollama's chat API.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/seii-chiro/chatbot/pkg/llm"
)

const (
	// DefaultModel is the default chat model.
	DefaultModel = "llama3.1:8b-instruct-q5_K_M"

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"
)

// Streamer wraps Ollama's streaming chat API.
type Streamer struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// Config holds configuration for the Ollama streamer.
type Config struct {
	// BaseURL is the Ollama API URL. Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the chat model to use. Defaults to DefaultModel if empty.
	Model string
}

// New creates a streamer using Ollama's chat API.
func New(cfg Config) *Streamer {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Streamer{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			// LLM responses can be slow
			Timeout: 5 * time.Minute,
		},
	}
}

// Stream sends a streaming chat request and forwards each NDJSON chunk's
// message content to fn as it arrives.
func (s *Streamer) Stream(ctx context.Context, messages []llm.Message, fn llm.DeltaFunc) error {
	msgs := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, chatMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(chatRequest{
		Model:    s.model,
		Messages: msgs,
		Stream:   true,
	})
	if err != nil {
		return fmt.Errorf("%w: marshaling request: %v", llm.ErrGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: creating request: %v", llm.ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: sending request: %v", llm.ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: ollama returned status %d: %s", llm.ErrGeneration, resp.StatusCode, string(respBody))
	}

	scanner := bufio.NewScanner(resp.Body)
	// Increase buffer size for large chunks
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var chunk streamChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return fmt.Errorf("%w: parsing stream chunk: %v", llm.ErrGeneration, err)
		}

		if chunk.Message.Content != "" {
			if err := fn(chunk.Message.Content); err != nil {
				return err
			}
		}

		if chunk.Done {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: reading stream: %v", llm.ErrGeneration, err)
	}

	return nil
}

// Close releases resources held by the streamer.
func (s *Streamer) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

var _ llm.Streamer = (*Streamer)(nil)
