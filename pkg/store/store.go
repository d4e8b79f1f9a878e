// Package store persists the embedded knowledge base as a single flat JSON
// document. A store is created wholesale by one ingestion run, belongs to
// exactly one embedding model, and is read-only at query time.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrLoad is returned when the store file is missing or unreadable.
	// Callers on the query path treat this as "no knowledge available".
	ErrLoad = errors.New("store load failed")

	// ErrDimension is returned when an entry's embedding dimension does not
	// match the rest of the store.
	ErrDimension = errors.New("embedding dimension mismatch")
)

// Entry is one chunk of a source document with its embedding. Immutable
// once written. ID is "<file>#<ordinal>", unique within a store.
type Entry struct {
	ID        string    `json:"id"`
	File      string    `json:"file"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

// Store is the persisted knowledge base: the embedding model that produced
// every entry, and the entries themselves.
type Store struct {
	Model   string  `json:"model"`
	Entries []Entry `json:"entries"`
}

// Append adds one chunk entry, validating that its embedding dimension
// matches the store's. The first entry fixes the dimension.
func (s *Store) Append(entry Entry) error {
	if len(s.Entries) > 0 {
		if want, got := len(s.Entries[0].Embedding), len(entry.Embedding); want != got {
			return fmt.Errorf("%w: store has %d, entry %q has %d", ErrDimension, want, entry.ID, got)
		}
	}
	s.Entries = append(s.Entries, entry)
	return nil
}

// Dimension returns the embedding dimension of the store, or 0 when empty.
func (s *Store) Dimension() int {
	if len(s.Entries) == 0 {
		return 0
	}
	return len(s.Entries[0].Embedding)
}

// Save serializes the store to path, replacing any previous store atomically
// from a reader's perspective: the document is written to a temp file in the
// same directory and renamed over the target.
func Save(s *Store, path string) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling store: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp store: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing store: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("publishing store: %w", err)
	}

	return nil
}

// Load reads a store document from path. Missing or corrupt files return an
// error wrapping ErrLoad.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}

	var s Store
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrLoad, path, err)
	}

	return &s, nil
}
