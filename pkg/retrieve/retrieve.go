// Package retrieve ranks stored chunks against a query embedding by exact,
// brute-force cosine similarity.
package retrieve

import (
	"context"
	"errors"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/seii-chiro/chatbot/pkg/embeddings"
	"github.com/seii-chiro/chatbot/pkg/store"
)

// Mode selects how retrieval participates in a request.
type Mode string

const (
	// ModeAuto retrieves and uses the augmented prompt only when the ranked
	// result is non-empty.
	ModeAuto Mode = "auto"

	// ModeRAG forces the augmented prompt, even with empty context.
	ModeRAG Mode = "rag"

	// ModeChat skips retrieval entirely.
	ModeChat Mode = "chat"

	// DefaultK is the default number of candidates kept before filtering.
	DefaultK = 5

	// DefaultMinScore is the default relevance gate applied after top-k
	// truncation.
	DefaultMinScore float32 = 0.25
)

// ParseMode returns the Mode for s, defaulting to ModeAuto for empty or
// unrecognized values.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeRAG:
		return ModeRAG
	case ModeChat:
		return ModeChat
	default:
		return ModeAuto
	}
}

// Ranked is a store entry with its cosine similarity to the query.
// Transient: computed per query and discarded after response assembly.
type Ranked struct {
	store.Entry
	Score float32
}

// Cosine returns the cosine similarity of a and b in [-1, 1]. Mismatched
// lengths or a zero-norm vector yield 0.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dot, na, nb float32
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}

	if na == 0 || nb == 0 {
		return 0
	}

	return dot / (float32(math.Sqrt(float64(na))) * float32(math.Sqrt(float64(nb))))
}

// Rank scores every entry against the query embedding, stable-sorts by
// descending score (ties keep store order), truncates to the first k, and
// only then filters out entries scoring below minScore. The order matters:
// a low-scoring entry can occupy a k-slot and then be dropped rather than
// being replaced by the next-best candidate.
func Rank(query []float32, entries []store.Entry, k int, minScore float32) []Ranked {
	if k <= 0 {
		k = DefaultK
	}

	ranked := make([]Ranked, 0, len(entries))
	for _, e := range entries {
		ranked = append(ranked, Ranked{Entry: e, Score: Cosine(query, e.Embedding)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) > k {
		ranked = ranked[:k]
	}

	kept := ranked[:0]
	for _, r := range ranked {
		if r.Score >= minScore {
			kept = append(kept, r)
		}
	}

	return kept
}

// Retriever loads the store and ranks its entries against query embeddings.
type Retriever struct {
	loader   store.Loader
	embedder embeddings.Embedder
	logger   *zap.Logger
}

// New creates a retriever over the given store loader and embedder.
func New(loader store.Loader, embedder embeddings.Embedder, logger *zap.Logger) *Retriever {
	return &Retriever{
		loader:   loader,
		embedder: embedder,
		logger:   logger,
	}
}

// Retrieve embeds query once and returns the top-k entries above minScore,
// highest score first. A missing, empty, or unreadable store, or an empty
// query, yields an empty result without error: that is a valid "no context
// available" outcome, not a failure. Embedding errors are real failures and
// propagate.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, minScore float32) ([]Ranked, error) {
	if query == "" {
		return nil, nil
	}

	s, err := r.loader.Load(ctx)
	if err != nil {
		if errors.Is(err, store.ErrLoad) {
			r.logger.Debug("no store available for retrieval", zap.Error(err))
			return nil, nil
		}
		return nil, err
	}
	if s == nil || len(s.Entries) == 0 {
		return nil, nil
	}

	queryEmbedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	return Rank(queryEmbedding, s.Entries, k, minScore), nil
}
