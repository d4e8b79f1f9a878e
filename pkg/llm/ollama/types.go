package ollama

import "time"

// chatRequest is Ollama's native chat request format.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// streamChunk is a single NDJSON line of Ollama's streaming chat response.
type streamChunk struct {
	Model     string      `json:"model"`
	CreatedAt time.Time   `json:"created_at"`
	Message   chatMessage `json:"message"`
	Done      bool        `json:"done"`
}
