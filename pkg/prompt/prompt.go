// Package prompt builds the message sequence sent to the language model:
// one system message, the prior history, and a synthesized user message
// carrying the question and, in augmented mode, the retrieved context.
package prompt

import (
	"fmt"
	"strings"

	"github.com/seii-chiro/chatbot/pkg/llm"
	"github.com/seii-chiro/chatbot/pkg/retrieve"
)

// ContextSliceLen caps how many characters of a chunk are rendered into the
// context block.
const ContextSliceLen = 1200

const chatSystemPrompt = "You are a helpful, concise AI assistant. \n" +
	"Answer clearly and accurately. If you don't know, say so briefly and ask a follow-up if helpful."

const ragSystemPrompt = "You are a helpful AI assistant. \n" +
	"You have been given excerpts called Sources [S1..Sn]. \n" +
	"Prefer using these sources when they clearly help answer the question. \n" +
	"When you use them, cite like [S1], [S2]. \n" +
	"If the sources are weak or irrelevant, answer from your general knowledge and **do not fabricate citations**. \n" +
	"If you're unsure, say so briefly."

// Build assembles the final message sequence. History is the caller's full
// conversation; the active query message is excluded from the replayed
// history and re-synthesized as the last user message, with the rendered
// context block when usingRag is set.
func Build(usingRag bool, history []llm.Message, question string, ranked []retrieve.Ranked) []llm.Message {
	system := chatSystemPrompt
	if usingRag {
		system = ragSystemPrompt
	}

	ctx := ""
	if usingRag {
		ctx = RenderContext(ranked)
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.NewMessage(llm.RoleSystem, system))
	messages = append(messages, priorHistory(history)...)
	messages = append(messages, userMessage(ctx, question))

	return messages
}

// RenderContext renders ranked entries as labeled sections
// "[S<i>] <file>\n<text>" joined by blank lines. Labels are 1-based rank
// positions, reassigned fresh for every response.
func RenderContext(ranked []retrieve.Ranked) string {
	sections := make([]string, 0, len(ranked))
	for i, r := range ranked {
		sections = append(sections, fmt.Sprintf("### [S%d] %s\n%s", i+1, r.File, Truncate(r.Text, ContextSliceLen)))
	}
	return strings.Join(sections, "\n\n")
}

// Truncate returns at most n characters of s.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// priorHistory returns history with the active query message excluded. The
// active query is the last user-role message; it is re-synthesized by
// userMessage rather than replayed.
func priorHistory(history []llm.Message) []llm.Message {
	activeIdx := -1
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == llm.RoleUser {
			activeIdx = i
			break
		}
	}

	if activeIdx == -1 {
		return history
	}

	prior := make([]llm.Message, 0, len(history)-1)
	prior = append(prior, history[:activeIdx]...)
	prior = append(prior, history[activeIdx+1:]...)
	return prior
}

// userMessage synthesizes the final user message: the literal question,
// followed by the sources block and citation instruction when context is
// present.
func userMessage(ctx, question string) llm.Message {
	parts := []string{fmt.Sprintf("Question: %s", question)}
	if ctx != "" {
		parts = append(parts,
			fmt.Sprintf("\nSources (snippets):\n%s", ctx),
			"\nAnswer concisely. Cite [S#] only when you explicitly used a source snippet.",
		)
	} else {
		parts = append(parts, "", "")
	}

	return llm.NewMessage(llm.RoleUser, strings.Join(parts, "\n"))
}
