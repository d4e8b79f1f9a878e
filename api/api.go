// Package api serves the RAG query endpoint: request validation, the
// retrieval/generation pipeline, and the streamed frame protocol.
package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seii-chiro/chatbot/pkg/llm"
	"github.com/seii-chiro/chatbot/pkg/retrieve"
)

// Retriever is the retrieval dependency of the server.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int, minScore float32) ([]retrieve.Ranked, error)
}

// ErrorResponse is the JSON body of non-streaming error replies.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server is the HTTP server for the RAG query endpoint.
type Server struct {
	config    Config
	retriever Retriever
	streamer  llm.Streamer
	logger    *zap.Logger
	app       *fiber.App
}

// NewServer creates the query server. The retriever and streamer are
// injected so the CLI can share them with other commands.
func NewServer(config Config, retriever Retriever, streamer llm.Streamer, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:    config,
		retriever: retriever,
		streamer:  streamer,
		logger:    logger,
	}
	s.app = app

	app.Use(func(c *fiber.Ctx) error {
		c.Locals(requestIDKey, uuid.NewString())
		return c.Next()
	})

	app.Get("/ping", s.handlePing)
	app.Post("/rag/stream", s.handleRAGStream)

	return s
}

const requestIDKey = "request_id"

// requestLogger returns the server logger annotated with the request id.
func (s *Server) requestLogger(c *fiber.Ctx) *zap.Logger {
	id, _ := c.Locals(requestIDKey).(string)
	return s.logger.With(zap.String("request_id", id))
}

func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Run starts the server and blocks until it stops.
func (s *Server) Run() error {
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the underlying fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
