package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrExtraction is returned when a file cannot be read or its format is
// unsupported. Extraction failures skip the file; they do not abort the run.
var ErrExtraction = errors.New("extraction failed")

// ExtractFunc reads one file and returns its plain text.
type ExtractFunc func(path string) (string, error)

// extractors maps supported file extensions to their text extractor.
var extractors = map[string]ExtractFunc{
	".txt": extractPlain,
	".md":  extractPlain,
	".pdf": extractPDF,
}

// SupportedFile reports whether the pipeline knows how to extract path.
func SupportedFile(path string) bool {
	_, ok := extractors[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extract returns the plain text of the file at path, with embedded NUL
// characters stripped. Unsupported extensions and unreadable files return
// an error wrapping ErrExtraction.
func Extract(path string) (string, error) {
	fn, ok := extractors[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return "", fmt.Errorf("%w: unsupported file type %q", ErrExtraction, filepath.Ext(path))
	}

	text, err := fn(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrExtraction, path, err)
	}

	// PDF extraction in particular can leave NUL bytes that corrupt the
	// serialized store.
	return strings.ReplaceAll(text, "\x00", ""), nil
}

func extractPlain(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return "", err
	}

	return buf.String(), nil
}
