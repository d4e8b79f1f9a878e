// Package llm defines provider-agnostic chat types and the streaming
// generation contract consumed by the RAG pipeline.
package llm

// Roles recognized in a conversation history.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single message in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewMessage creates a message with the given role and content.
func NewMessage(role, content string) Message {
	return Message{Role: role, Content: content}
}

// LastUser returns the last user-role message in messages, or false when
// there is none. The last user message is the active query of a turn.
func LastUser(messages []Message) (Message, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i], true
		}
	}
	return Message{}, false
}
