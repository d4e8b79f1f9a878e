package stream

import (
	"encoding/json"
	"io"
	"sync"
)

// Framer writes protocol frames to a transport, one JSON document per line,
// as they become available. It enforces the terminal-frame contract: after
// Done or Error, every further write is a no-op, so an error can never be
// followed by a done frame (or vice versa).
//
// Writes are not buffered beyond the underlying writer. When the writer is
// an io.PipeWriter feeding a chunked HTTP response, each Write blocks until
// the transport consumes it, which gives per-frame delivery and direct
// backpressure.
type Framer struct {
	mu     sync.Mutex
	w      io.Writer
	closed bool
}

// NewFramer returns a framer writing frames to w.
func NewFramer(w io.Writer) *Framer {
	return &Framer{w: w}
}

// Content emits one content frame carrying exactly the given increment.
func (f *Framer) Content(delta string) error {
	return f.write(Frame{Type: TypeContent, Content: delta})
}

// SourcesFrame emits the single sources frame for a response. Callers emit
// it only when retrieval was used and produced a non-empty ranked set.
func (f *Framer) SourcesFrame(refs []SourceRef) error {
	return f.write(Frame{Type: TypeSources, Sources: refs})
}

// Done emits the terminal success frame and seals the framer.
func (f *Framer) Done() error {
	return f.terminal(Frame{Type: TypeDone})
}

// Error emits the terminal error frame with a human-readable message and
// seals the framer. Content frames already written remain valid.
func (f *Framer) Error(message string) error {
	return f.terminal(Frame{Type: TypeError, Message: message})
}

func (f *Framer) write(frame Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	return f.writeLocked(frame)
}

func (f *Framer) terminal(frame Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	return f.writeLocked(frame)
}

func (f *Framer) writeLocked(frame Frame) error {
	line, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	_, err = f.w.Write(line)
	return err
}
