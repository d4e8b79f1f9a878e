package prompt

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/seii-chiro/chatbot/pkg/llm"
	"github.com/seii-chiro/chatbot/pkg/retrieve"
	"github.com/seii-chiro/chatbot/pkg/store"
)

func rankedChunk(file, text string, score float32) retrieve.Ranked {
	return retrieve.Ranked{
		Entry: store.Entry{ID: file + "#0", File: file, Text: text},
		Score: score,
	}
}

var _ = Describe("Build", func() {
	It("starts with the plain system prompt when not using retrieval", func() {
		messages := Build(false, nil, "hi", nil)

		Expect(messages[0].Role).To(Equal(llm.RoleSystem))
		Expect(messages[0].Content).To(ContainSubstring("concise AI assistant"))
		Expect(messages[0].Content).NotTo(ContainSubstring("Sources"))
	})

	It("starts with the source-citing system prompt when using retrieval", func() {
		messages := Build(true, nil, "hi", nil)

		Expect(messages[0].Role).To(Equal(llm.RoleSystem))
		Expect(messages[0].Content).To(ContainSubstring("Sources [S1..Sn]"))
	})

	It("ends with a synthesized user message carrying the question", func() {
		messages := Build(false, nil, "what is the capital of France?", nil)

		last := messages[len(messages)-1]
		Expect(last.Role).To(Equal(llm.RoleUser))
		Expect(last.Content).To(ContainSubstring("Question: what is the capital of France?"))
	})

	It("excludes the active query from the replayed history", func() {
		history := []llm.Message{
			llm.NewMessage(llm.RoleUser, "first question"),
			llm.NewMessage(llm.RoleAssistant, "first answer"),
			llm.NewMessage(llm.RoleUser, "second question"),
		}

		messages := Build(false, history, "second question", nil)

		Expect(messages).To(HaveLen(4))
		Expect(messages[1].Content).To(Equal("first question"))
		Expect(messages[2].Content).To(Equal("first answer"))
		Expect(messages[3].Content).To(ContainSubstring("Question: second question"))
	})

	It("keeps a trailing assistant message in the history", func() {
		history := []llm.Message{
			llm.NewMessage(llm.RoleUser, "question"),
			llm.NewMessage(llm.RoleAssistant, "partial answer"),
		}

		messages := Build(false, history, "question", nil)

		Expect(messages).To(HaveLen(3))
		Expect(messages[1].Role).To(Equal(llm.RoleAssistant))
		Expect(messages[1].Content).To(Equal("partial answer"))
	})

	It("renders the context block into the user message when using retrieval", func() {
		ranked := []retrieve.Ranked{
			rankedChunk("guide.md", "install with make", 0.9),
		}

		messages := Build(true, nil, "how do I install?", ranked)

		last := messages[len(messages)-1]
		Expect(last.Content).To(ContainSubstring("Sources (snippets):"))
		Expect(last.Content).To(ContainSubstring("### [S1] guide.md\ninstall with make"))
		Expect(last.Content).To(ContainSubstring("Cite [S#]"))
	})

	It("omits the sources block in rag mode with no results", func() {
		messages := Build(true, nil, "anything", nil)

		last := messages[len(messages)-1]
		Expect(last.Content).NotTo(ContainSubstring("Sources (snippets):"))
		Expect(messages[0].Content).To(ContainSubstring("Sources [S1..Sn]"))
	})
})

var _ = Describe("RenderContext", func() {
	It("labels sections by 1-based rank position", func() {
		ranked := []retrieve.Ranked{
			rankedChunk("a.md", "alpha", 0.9),
			rankedChunk("b.md", "beta", 0.8),
		}

		ctx := RenderContext(ranked)
		Expect(ctx).To(Equal("### [S1] a.md\nalpha\n\n### [S2] b.md\nbeta"))
	})

	It("caps each section's text", func() {
		long := strings.Repeat("x", ContextSliceLen+500)
		ctx := RenderContext([]retrieve.Ranked{rankedChunk("a.md", long, 0.9)})

		Expect(strings.Count(ctx, "x")).To(Equal(ContextSliceLen))
	})

	It("returns empty for no results", func() {
		Expect(RenderContext(nil)).To(BeEmpty())
	})
})

var _ = Describe("Truncate", func() {
	It("returns short strings unchanged", func() {
		Expect(Truncate("abc", 10)).To(Equal("abc"))
	})

	It("cuts at n characters, not bytes", func() {
		Expect(Truncate("ééééé", 3)).To(Equal("ééé"))
	})
})
