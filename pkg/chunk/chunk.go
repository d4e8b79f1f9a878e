// Package chunk splits document text into overlapping fixed-size windows,
// the unit of embedding and retrieval.
package chunk

import "strings"

const (
	// DefaultSize is the default window size in characters.
	DefaultSize = 1000

	// DefaultOverlap is the default overlap between consecutive windows.
	DefaultOverlap = 200
)

// Split cuts text into overlapping windows of at most size characters,
// advancing by max(1, size-overlap) so that any overlap >= size still makes
// progress. Each window is trimmed of surrounding whitespace; windows that
// are empty after trimming are dropped and do not occupy an ordinal slot.
func Split(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultSize
	}

	step := max(1, size-overlap)

	runes := []rune(text)

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := min(start+size, len(runes))

		window := strings.TrimSpace(string(runes[start:end]))
		if window != "" {
			chunks = append(chunks, window)
		}
	}

	return chunks
}
