// Package stream implements the newline-delimited JSON response protocol:
// zero or more content frames, at most one sources frame, and exactly one
// terminal frame (done on success, error on failure).
package stream

import (
	"fmt"
	"math"

	"github.com/seii-chiro/chatbot/pkg/prompt"
	"github.com/seii-chiro/chatbot/pkg/retrieve"
)

// Frame types.
const (
	TypeContent = "content"
	TypeSources = "sources"
	TypeError   = "error"
	TypeDone    = "done"
)

// PreviewLen caps the source preview rendered into a sources frame.
const PreviewLen = 160

// Frame is one self-contained unit of the response protocol, written as a
// single line. Exactly one of the payload fields is populated, per Type.
type Frame struct {
	Type    string      `json:"type"`
	Content string      `json:"content,omitempty"`
	Sources []SourceRef `json:"sources,omitempty"`
	Message string      `json:"message,omitempty"`
}

// SourceRef cites one retrieved chunk in a sources frame. Tag is the
// per-response rank label ("S1".."Sn"), not a stable identifier.
type SourceRef struct {
	Tag     string  `json:"tag"`
	File    string  `json:"file"`
	ID      string  `json:"id"`
	Score   float64 `json:"score"`
	Preview string  `json:"preview"`
}

// Sources converts ranked entries to source references in rank order, with
// scores rounded to 3 decimal places and text previews capped at PreviewLen.
func Sources(ranked []retrieve.Ranked) []SourceRef {
	refs := make([]SourceRef, 0, len(ranked))
	for i, r := range ranked {
		refs = append(refs, SourceRef{
			Tag:     fmt.Sprintf("S%d", i+1),
			File:    r.File,
			ID:      r.ID,
			Score:   math.Round(float64(r.Score)*1000) / 1000,
			Preview: prompt.Truncate(r.Text, PreviewLen),
		})
	}
	return refs
}
