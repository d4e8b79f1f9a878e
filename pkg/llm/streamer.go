package llm

import (
	"context"
	"errors"
)

// ErrGeneration is returned when the generation backend fails before or
// during a streaming call.
var ErrGeneration = errors.New("generation failed")

// DeltaFunc receives one text increment from a streaming generation call.
// Returning an error stops the stream and propagates out of Stream.
type DeltaFunc func(delta string) error

// Streamer produces a model answer as an ordered, finite sequence of text
// increments. The sequence is not restartable: once Stream returns, the
// underlying backend stream is exhausted. Implementations must forward each
// increment to fn as soon as it is available and must honor ctx cancellation
// between increments.
type Streamer interface {
	// Stream invokes the model with the full message sequence and calls fn
	// once per text increment, in production order.
	Stream(ctx context.Context, messages []Message, fn DeltaFunc) error

	// Close releases any resources held by the streamer.
	Close() error
}
