package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/seii-chiro/chatbot/pkg/embeddings"
	"github.com/seii-chiro/chatbot/pkg/store"
)

// countingEmbedder returns a fixed-dimension vector per text and records how
// many texts it embedded. short controls a deliberate undercount to test the
// count-mismatch abort.
type countingEmbedder struct {
	embedded int
	err      error
	short    bool
}

func (e *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vs, err := e.EmbedBatch(context.Background(), []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func (e *countingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}

	n := len(texts)
	if e.short && n > 0 {
		n--
	}

	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{1, 0, 0}
		e.embedded++
	}
	return out, nil
}

func (e *countingEmbedder) Close() error { return nil }

var _ = Describe("Pipeline", func() {
	var (
		dataDir  string
		embedder *countingEmbedder
		pipeline *Pipeline
		ctx      context.Context
	)

	writeFile := func(name, content string) {
		path := filepath.Join(dataDir, name)
		Expect(os.MkdirAll(filepath.Dir(path), 0o755)).To(Succeed())
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
	}

	BeforeEach(func() {
		var err error
		dataDir, err = os.MkdirTemp("", "chatbot-ingest-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			_ = os.RemoveAll(dataDir)
		})

		embedder = &countingEmbedder{}
		pipeline = New(embedder, Options{ChunkSize: 10, ChunkOverlap: 2}, zap.NewNop())
		ctx = context.Background()
	})

	It("indexes every supported file into one store", func() {
		writeFile("a.txt", "alpha document text")
		writeFile("b.md", "beta document text")

		s, result, err := pipeline.Run(ctx, dataDir, "test-model")
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Model).To(Equal("test-model"))
		Expect(result.Files).To(Equal(2))
		Expect(result.Chunks).To(Equal(len(s.Entries)))
		Expect(embedder.embedded).To(Equal(len(s.Entries)))
	})

	It("assigns ids as file plus chunk ordinal", func() {
		writeFile("doc.txt", "0123456789abcdefgh")

		s, _, err := pipeline.Run(ctx, dataDir, "test-model")
		Expect(err).NotTo(HaveOccurred())
		Expect(len(s.Entries)).To(BeNumerically(">", 1))
		Expect(s.Entries[0].ID).To(Equal("doc.txt#0"))
		Expect(s.Entries[1].ID).To(Equal("doc.txt#1"))
		Expect(s.Entries[0].File).To(Equal("doc.txt"))
	})

	It("uses relative paths for files in subdirectories", func() {
		writeFile(filepath.Join("guides", "setup.md"), "setup text")

		s, _, err := pipeline.Run(ctx, dataDir, "test-model")
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Entries[0].File).To(Equal(filepath.Join("guides", "setup.md")))
	})

	It("ignores unsupported file types", func() {
		writeFile("data.csv", "a,b,c")
		writeFile("notes.txt", "real content")

		_, result, err := pipeline.Run(ctx, dataDir, "test-model")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Files).To(Equal(1))
		Expect(result.Warnings).To(BeEmpty())
	})

	It("skips files with no extractable text and records a warning", func() {
		writeFile("empty.txt", "   \n\t  ")
		writeFile("real.txt", "actual text")

		s, result, err := pipeline.Run(ctx, dataDir, "test-model")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Files).To(Equal(1))
		Expect(result.Warnings).To(HaveLen(1))
		Expect(result.Warnings[0].File).To(Equal("empty.txt"))

		for _, e := range s.Entries {
			Expect(e.File).To(Equal("real.txt"))
		}
	})

	It("aborts the whole run on an embedding failure", func() {
		writeFile("doc.txt", "some text")
		embedder.err = errors.New("backend down")

		_, _, err := pipeline.Run(ctx, dataDir, "test-model")
		Expect(err).To(MatchError(ContainSubstring("backend down")))
	})

	It("aborts the whole run on a chunk/vector count mismatch", func() {
		writeFile("doc.txt", "0123456789abcdefgh")
		embedder.short = true

		_, _, err := pipeline.Run(ctx, dataDir, "test-model")
		Expect(err).To(MatchError(embeddings.ErrCountMismatch))
	})

	It("stops when the context is canceled", func() {
		writeFile("doc.txt", "some text")
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, _, err := pipeline.Run(canceled, dataDir, "test-model")
		Expect(err).To(MatchError(context.Canceled))
	})

	It("fails on a missing data directory", func() {
		_, _, err := pipeline.Run(ctx, filepath.Join(dataDir, "nope"), "test-model")
		Expect(err).To(HaveOccurred())
	})

	Describe("RunAndSave", func() {
		It("publishes the assembled store to disk", func() {
			writeFile("doc.txt", "persisted text")
			storePath := filepath.Join(dataDir, "vectorstore.json")

			result, err := pipeline.RunAndSave(ctx, dataDir, "test-model", storePath)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Files).To(Equal(1))

			loaded, err := store.Load(storePath)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Model).To(Equal("test-model"))
			Expect(loaded.Entries).NotTo(BeEmpty())
		})

		It("publishes nothing when the run fails", func() {
			writeFile("doc.txt", "text")
			embedder.err = errors.New("backend down")
			storePath := filepath.Join(dataDir, "vectorstore.json")

			_, err := pipeline.RunAndSave(ctx, dataDir, "test-model", storePath)
			Expect(err).To(HaveOccurred())
			_, statErr := os.Stat(storePath)
			Expect(statErr).To(MatchError(os.ErrNotExist))
		})
	})
})

var _ = Describe("Extract", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "chatbot-extract-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			_ = os.RemoveAll(dir)
		})
	})

	It("reads plain text files", func() {
		path := filepath.Join(dir, "a.txt")
		Expect(os.WriteFile(path, []byte("plain body"), 0o644)).To(Succeed())

		text, err := Extract(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("plain body"))
	})

	It("strips embedded NUL characters", func() {
		path := filepath.Join(dir, "a.txt")
		Expect(os.WriteFile(path, []byte("be\x00fore"), 0o644)).To(Succeed())

		text, err := Extract(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("before"))
	})

	It("rejects unsupported extensions", func() {
		_, err := Extract(filepath.Join(dir, "a.csv"))
		Expect(err).To(MatchError(ErrExtraction))
	})

	It("rejects missing files", func() {
		_, err := Extract(filepath.Join(dir, "missing.txt"))
		Expect(err).To(MatchError(ErrExtraction))
	})
})

var _ = Describe("SupportedFile", func() {
	It("recognizes supported extensions case-insensitively", func() {
		Expect(SupportedFile("a.txt")).To(BeTrue())
		Expect(SupportedFile("a.MD")).To(BeTrue())
		Expect(SupportedFile("a.PDF")).To(BeTrue())
	})

	It("rejects everything else", func() {
		Expect(SupportedFile("a.csv")).To(BeFalse())
		Expect(SupportedFile("a")).To(BeFalse())
	})
})
