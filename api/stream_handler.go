package api

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seii-chiro/chatbot/pkg/llm"
	"github.com/seii-chiro/chatbot/pkg/prompt"
	"github.com/seii-chiro/chatbot/pkg/retrieve"
	"github.com/seii-chiro/chatbot/pkg/stream"
)

// ragRequest is the body of POST /rag/stream. Either a single question or a
// full messages history must be supplied; k, minScore and mode are optional.
// Pointers distinguish "absent, use default" from explicit zero values.
type ragRequest struct {
	Question string        `json:"question"`
	Messages []llm.Message `json:"messages"`
	K        *int          `json:"k"`
	MinScore *float32      `json:"minScore"`
	Mode     string        `json:"mode"`
}

// handleRAGStream handles POST /rag/stream requests. Validation failures are
// rejected before any backend call; accepted requests always produce a
// well-formed NDJSON frame stream ending in exactly one terminal frame.
func (s *Server) handleRAGStream(c *fiber.Ctx) error {
	logger := s.requestLogger(c)

	var req ragRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid request body",
		})
	}

	if req.Question == "" && len(req.Messages) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "Provide either question or messages[]",
		})
	}

	// Normalize to messages[] so the model can remember context.
	messages := req.Messages
	if len(messages) == 0 {
		messages = []llm.Message{llm.NewMessage(llm.RoleUser, req.Question)}
	}

	k := retrieve.DefaultK
	if req.K != nil {
		k = *req.K
	}
	minScore := retrieve.DefaultMinScore
	if req.MinScore != nil {
		minScore = *req.MinScore
	}
	mode := retrieve.ParseMode(req.Mode)

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	c.Set(fiber.HeaderCacheControl, "no-cache")

	// Use io.Pipe + SetBodyStream: pw.Write blocks until fasthttp's chunked
	// writer consumes the data, so every frame reaches the socket as soon
	// as it is produced and a disconnected client surfaces as a write
	// error. The turn runs on context.Background because fasthttp recycles
	// its RequestCtx once this handler returns.
	pr, pw := io.Pipe()
	go s.streamTurn(context.Background(), pw, logger, messages, k, minScore, mode)

	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// streamTurn runs one full query turn: retrieval, prompt assembly, streaming
// generation, and framing. Any failure becomes a terminal error frame; the
// pipe always closes so the transport ends cleanly.
func (s *Server) streamTurn(
	ctx context.Context,
	pw *io.PipeWriter,
	logger *zap.Logger,
	messages []llm.Message,
	k int,
	minScore float32,
	mode retrieve.Mode,
) {
	defer pw.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	framer := stream.NewFramer(&cancelOnError{w: pw, cancel: cancel})

	question := ""
	if last, ok := llm.LastUser(messages); ok {
		question = strings.TrimSpace(last.Content)
	}

	start := time.Now()

	// Retrieval is attempted unless the caller forced chat-only mode.
	var ranked []retrieve.Ranked
	if mode != retrieve.ModeChat {
		var err error
		ranked, err = s.retriever.Retrieve(ctx, question, k, minScore)
		if err != nil {
			logger.Error("retrieval failed", zap.Error(err))
			framer.Error(err.Error())
			return
		}
	}

	usingRag := mode == retrieve.ModeRAG || (mode == retrieve.ModeAuto && len(ranked) > 0)

	final := prompt.Build(usingRag, messages, question, ranked)

	logger.Info("rag turn",
		zap.Duration("retrieval", time.Since(start)),
		zap.Int("docs_retrieved", len(ranked)),
		zap.Bool("using_rag", usingRag),
		zap.String("mode", string(mode)),
		zap.Int("question_len", len(question)),
	)

	generationStart := time.Now()
	firstToken := time.Duration(0)

	err := s.streamer.Stream(ctx, final, func(delta string) error {
		if firstToken == 0 {
			firstToken = time.Since(generationStart)
		}
		return framer.Content(delta)
	})
	if err != nil {
		// A pipe write failure means the client went away; the context is
		// already canceled and there is nobody left to read an error frame.
		logger.Error("generation failed", zap.Error(err))
		framer.Error(err.Error())
		return
	}

	if usingRag && len(ranked) > 0 {
		if err := framer.SourcesFrame(stream.Sources(ranked)); err != nil {
			logger.Debug("writing sources frame", zap.Error(err))
			return
		}
	}

	framer.Done()

	logger.Info("rag turn complete",
		zap.Duration("time_to_first_token", firstToken),
		zap.Duration("generation", time.Since(generationStart)),
	)
}

// cancelOnError cancels the request context the first time a write fails,
// aborting the in-flight generation call when the client disconnects.
type cancelOnError struct {
	w      io.Writer
	cancel context.CancelFunc
}

func (c *cancelOnError) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	if err != nil {
		c.cancel()
	}
	return n, err
}
