// Package ingest turns a directory of documents into a persisted vector
// store: per file, extract text, chunk it, embed all chunks in one logical
// batch, and append one store entry per retained chunk.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/seii-chiro/chatbot/pkg/chunk"
	"github.com/seii-chiro/chatbot/pkg/embeddings"
	"github.com/seii-chiro/chatbot/pkg/store"
)

// Options configures an ingestion run.
type Options struct {
	// ChunkSize is the chunk window size in characters.
	ChunkSize int

	// ChunkOverlap is the overlap between consecutive windows.
	ChunkOverlap int
}

// Warning records a file that contributed nothing to the store and why.
type Warning struct {
	File   string
	Reason string
}

// Result summarizes a completed ingestion run.
type Result struct {
	Files    int
	Chunks   int
	Warnings []Warning
}

// Pipeline orchestrates extraction, chunking and embedding.
type Pipeline struct {
	embedder embeddings.Embedder
	options  Options
	logger   *zap.Logger
}

// New creates an ingestion pipeline using the given embedder.
func New(embedder embeddings.Embedder, options Options, logger *zap.Logger) *Pipeline {
	if options.ChunkSize <= 0 {
		options.ChunkSize = chunk.DefaultSize
	}
	if options.ChunkOverlap < 0 {
		options.ChunkOverlap = chunk.DefaultOverlap
	}

	return &Pipeline{
		embedder: embedder,
		options:  options,
		logger:   logger,
	}
}

// Run ingests every supported file under dataDir and returns the assembled
// store tagged with model. Files that extract to nothing are skipped with a
// warning. A chunk/vector count mismatch aborts the whole run: the store
// must never contain a partially-embedded file.
func (p *Pipeline) Run(ctx context.Context, dataDir, model string) (*store.Store, *Result, error) {
	files, err := listFiles(dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("scanning %s: %w", dataDir, err)
	}

	s := &store.Store{Model: model}
	result := &Result{}

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		entries, warning, err := p.ingestFile(ctx, dataDir, rel)
		if err != nil {
			return nil, nil, err
		}
		if warning != nil {
			result.Warnings = append(result.Warnings, *warning)
			continue
		}

		for _, entry := range entries {
			if err := s.Append(entry); err != nil {
				return nil, nil, err
			}
		}

		result.Files++
		result.Chunks += len(entries)

		p.logger.Info("indexed file",
			zap.String("file", rel),
			zap.Int("chunks", len(entries)),
		)
	}

	return s, result, nil
}

// RunAndSave runs the pipeline and publishes the store to storePath.
func (p *Pipeline) RunAndSave(ctx context.Context, dataDir, model, storePath string) (*Result, error) {
	s, result, err := p.Run(ctx, dataDir, model)
	if err != nil {
		return nil, err
	}

	if err := store.Save(s, storePath); err != nil {
		return nil, err
	}

	p.logger.Info("store published",
		zap.String("path", storePath),
		zap.Int("entries", len(s.Entries)),
		zap.String("model", model),
	)

	return result, nil
}

func (p *Pipeline) ingestFile(ctx context.Context, dataDir, rel string) ([]store.Entry, *Warning, error) {
	text, err := Extract(filepath.Join(dataDir, rel))
	if err != nil {
		p.logger.Warn("skipping unreadable file", zap.String("file", rel), zap.Error(err))
		return nil, &Warning{File: rel, Reason: err.Error()}, nil
	}

	chunks := chunk.Split(text, p.options.ChunkSize, p.options.ChunkOverlap)
	if len(chunks) == 0 {
		p.logger.Warn("skipping file with no extractable text", zap.String("file", rel))
		return nil, &Warning{File: rel, Reason: "no extractable text"}, nil
	}

	vectors, err := p.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return nil, nil, fmt.Errorf("embedding %s: %w", rel, err)
	}
	if len(vectors) != len(chunks) {
		return nil, nil, fmt.Errorf("embedding %s: %w: %d chunks, %d vectors",
			rel, embeddings.ErrCountMismatch, len(chunks), len(vectors))
	}

	entries := make([]store.Entry, 0, len(chunks))
	for i, text := range chunks {
		entries = append(entries, store.Entry{
			ID:        fmt.Sprintf("%s#%d", rel, i),
			File:      rel,
			Text:      text,
			Embedding: vectors[i],
		})
	}

	return entries, nil, nil
}

// listFiles returns the supported files under dataDir as sorted relative
// paths, so ingestion order (and entry ordinals) is deterministic.
func listFiles(dataDir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !SupportedFile(path) {
			return nil
		}

		rel, err := filepath.Rel(dataDir, path)
		if err != nil {
			rel = path
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
