package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/seii-chiro/chatbot/pkg/llm"
)

// chatServer fakes Ollama's /api/chat streaming endpoint, emitting one NDJSON
// chunk per configured delta followed by a done chunk.
type chatServer struct {
	*httptest.Server
	deltas      []string
	lastRequest chatRequest
}

func newChatServer(deltas ...string) *chatServer {
	s := &chatServer{deltas: deltas}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer GinkgoRecover()
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		Expect(json.NewDecoder(r.Body).Decode(&s.lastRequest)).To(Succeed())

		enc := json.NewEncoder(w)
		for _, d := range s.deltas {
			Expect(enc.Encode(streamChunk{Message: chatMessage{Role: "assistant", Content: d}})).To(Succeed())
		}
		Expect(enc.Encode(streamChunk{Done: true})).To(Succeed())
	}))
	return s
}

var _ = Describe("Streamer", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("forwards each chunk's content in order", func() {
		server := newChatServer("Hel", "lo", "!")
		DeferCleanup(server.Close)

		s := New(Config{BaseURL: server.URL, Model: "test-model"})
		defer s.Close()

		var got []string
		err := s.Stream(ctx, []llm.Message{llm.NewMessage(llm.RoleUser, "hi")}, func(delta string) error {
			got = append(got, delta)
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal([]string{"Hel", "lo", "!"}))
	})

	It("sends the full message sequence and requests streaming", func() {
		server := newChatServer("ok")
		DeferCleanup(server.Close)

		s := New(Config{BaseURL: server.URL, Model: "test-model"})
		defer s.Close()

		messages := []llm.Message{
			llm.NewMessage(llm.RoleSystem, "be brief"),
			llm.NewMessage(llm.RoleUser, "hi"),
		}
		Expect(s.Stream(ctx, messages, func(string) error { return nil })).To(Succeed())

		Expect(server.lastRequest.Model).To(Equal("test-model"))
		Expect(server.lastRequest.Stream).To(BeTrue())
		Expect(server.lastRequest.Messages).To(HaveLen(2))
		Expect(server.lastRequest.Messages[0].Role).To(Equal("system"))
		Expect(server.lastRequest.Messages[1].Content).To(Equal("hi"))
	})

	It("stops when the delta callback fails", func() {
		server := newChatServer("a", "b", "c")
		DeferCleanup(server.Close)

		s := New(Config{BaseURL: server.URL})
		defer s.Close()

		calls := 0
		abort := errors.New("client gone")
		err := s.Stream(ctx, []llm.Message{llm.NewMessage(llm.RoleUser, "hi")}, func(string) error {
			calls++
			if calls == 2 {
				return abort
			}
			return nil
		})
		Expect(err).To(MatchError(abort))
		Expect(calls).To(Equal(2))
	})

	It("wraps non-200 responses in ErrGeneration", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not loaded", http.StatusInternalServerError)
		}))
		DeferCleanup(server.Close)

		s := New(Config{BaseURL: server.URL})
		defer s.Close()

		err := s.Stream(ctx, []llm.Message{llm.NewMessage(llm.RoleUser, "hi")}, func(string) error { return nil })
		Expect(err).To(MatchError(llm.ErrGeneration))
		Expect(err.Error()).To(ContainSubstring("model not loaded"))
	})

	It("wraps malformed stream chunks in ErrGeneration", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{not json}\n"))
		}))
		DeferCleanup(server.Close)

		s := New(Config{BaseURL: server.URL})
		defer s.Close()

		err := s.Stream(ctx, []llm.Message{llm.NewMessage(llm.RoleUser, "hi")}, func(string) error { return nil })
		Expect(err).To(MatchError(llm.ErrGeneration))
	})

	It("returns the context error when canceled", func() {
		canceled, cancel := context.WithCancel(ctx)

		server := newChatServer("a", "b")
		DeferCleanup(server.Close)

		s := New(Config{BaseURL: server.URL})
		defer s.Close()

		err := s.Stream(canceled, []llm.Message{llm.NewMessage(llm.RoleUser, "hi")}, func(string) error {
			cancel()
			return nil
		})
		Expect(err).To(MatchError(ContainSubstring("context canceled")))
	})

	It("applies defaults for zero-value config", func() {
		s := New(Config{})
		defer s.Close()

		Expect(s.baseURL).To(Equal(DefaultBaseURL))
		Expect(s.model).To(Equal(DefaultModel))
	})
})
