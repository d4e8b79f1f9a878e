// Package ingestcmder provides the ingest command that indexes a directory
// of documents into the vector store.
package ingestcmder

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/seii-chiro/chatbot/pkg/cliui"
	"github.com/seii-chiro/chatbot/pkg/config"
	embeddingutils "github.com/seii-chiro/chatbot/pkg/embeddings/utils"
	"github.com/seii-chiro/chatbot/pkg/ingest"
	"github.com/seii-chiro/chatbot/pkg/logger"
)

type ingestCommander struct {
	dataDir        string
	storePath      string
	embeddingProv  string
	embeddingTgt   string
	embeddingModel string
	batchSize      int
	chunkSize      int
	chunkOverlap   int
	debug          bool
}

const ingestLongDesc string = `Index a directory of documents into the vector store.

Supported file types: .txt, .md, .pdf. Each file is chunked into
overlapping windows, embedded in batches, and written to a single store
file tagged with the embedding model. The previous store is replaced
atomically; a failed run publishes nothing.

Examples:
  chatbot ingest
  chatbot ingest --data-dir ./knowledge --store vectorstore.json
  chatbot ingest --embedding-model nomic-embed-text`

const ingestShortDesc string = "Index documents into the vector store"

var ingestFlags = []string{
	config.FlagDataDir,
	config.FlagStore,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagBatchSize,
	config.FlagChunkSize,
	config.FlagChunkOverlap,
}

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, ingestFlags)
			cmder.applyViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagDataDir, &cmder.dataDir)
	config.AddStringFlag(cmd, config.Flags, config.FlagStore, &cmder.storePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.embeddingProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &cmder.embeddingTgt)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddIntFlag(cmd, config.Flags, config.FlagBatchSize, &cmder.batchSize)
	config.AddIntFlag(cmd, config.Flags, config.FlagChunkSize, &cmder.chunkSize)
	config.AddIntFlag(cmd, config.Flags, config.FlagChunkOverlap, &cmder.chunkOverlap)

	return cmd
}

func (c *ingestCommander) applyViper(v *viper.Viper) {
	c.dataDir = v.GetString("ingest.data_dir")
	c.storePath = v.GetString("store.path")
	c.embeddingProv = v.GetString("embedding.provider")
	c.embeddingTgt = v.GetString("embedding.target")
	c.embeddingModel = v.GetString("embedding.model")
	c.batchSize = v.GetInt("embedding.batch_size")
	c.chunkSize = v.GetInt("ingest.chunk_size")
	c.chunkOverlap = v.GetInt("ingest.chunk_overlap")
}

func (c *ingestCommander) run() error {
	log := logger.New(c.debug)
	defer func() { _ = log.Sync() }()

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: c.embeddingProv,
		TargetURL:    c.embeddingTgt,
		Model:        c.embeddingModel,
		BatchSize:    c.batchSize,
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	defer embedder.Close()

	pipeline := ingest.New(embedder, ingest.Options{
		ChunkSize:    c.chunkSize,
		ChunkOverlap: c.chunkOverlap,
	}, log)

	var result *ingest.Result
	err = cliui.Step(os.Stdout, fmt.Sprintf("Indexing %s", c.dataDir), func() error {
		var runErr error
		result, runErr = pipeline.RunAndSave(context.Background(), c.dataDir, c.embeddingModel, c.storePath)
		return runErr
	})
	if err != nil {
		return err
	}

	log.Info("ingestion complete",
		zap.Int("files", result.Files),
		zap.Int("chunks", result.Chunks),
		zap.Int("skipped", len(result.Warnings)),
	)

	fmt.Printf("\n  %s Indexed %d files (%d chunks) into %s\n",
		cliui.SuccessMark, result.Files, result.Chunks, c.storePath)

	for _, w := range result.Warnings {
		fmt.Printf("  %s Skipped %s: %s\n", cliui.WarnMark, w.File, w.Reason)
	}

	return nil
}
