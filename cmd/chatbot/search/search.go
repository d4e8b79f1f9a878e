// Package searchcmder provides the search command: a one-shot retrieval
// query against the vector store, printed without any generation step.
package searchcmder

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/seii-chiro/chatbot/pkg/cliui"
	"github.com/seii-chiro/chatbot/pkg/config"
	embeddingutils "github.com/seii-chiro/chatbot/pkg/embeddings/utils"
	"github.com/seii-chiro/chatbot/pkg/logger"
	"github.com/seii-chiro/chatbot/pkg/retrieve"
	"github.com/seii-chiro/chatbot/pkg/store"
)

type searchCommander struct {
	storePath      string
	embeddingProv  string
	embeddingTgt   string
	embeddingModel string
	batchSize      int
	k              int
	minScore       float64
	debug          bool
}

const searchLongDesc string = `Run a retrieval query against the vector store and print the ranked
matches. No language model is involved; this is the same candidate set
the query server would hand to generation.

Examples:
  chatbot search "how do I rotate the api key"
  chatbot search --k 10 --min-score 0.1 "deployment checklist"`

const searchShortDesc string = "Query the vector store directly"

var searchFlags = []string{
	config.FlagStore,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagBatchSize,
	config.FlagK,
	config.FlagMinScore,
}

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, searchFlags)
			cmder.applyViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			return cmder.run(strings.Join(args, " "))
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagStore, &cmder.storePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.embeddingProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &cmder.embeddingTgt)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddIntFlag(cmd, config.Flags, config.FlagBatchSize, &cmder.batchSize)
	config.AddIntFlag(cmd, config.Flags, config.FlagK, &cmder.k)
	config.AddFloat64Flag(cmd, config.Flags, config.FlagMinScore, &cmder.minScore)

	return cmd
}

func (c *searchCommander) applyViper(v *viper.Viper) {
	c.storePath = v.GetString("store.path")
	c.embeddingProv = v.GetString("embedding.provider")
	c.embeddingTgt = v.GetString("embedding.target")
	c.embeddingModel = v.GetString("embedding.model")
	c.batchSize = v.GetInt("embedding.batch_size")
	c.k = v.GetInt("retrieval.k")
	c.minScore = v.GetFloat64("retrieval.min_score")
}

func (c *searchCommander) run(query string) error {
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

	retriever := retrieve.New(store.NewFileLoader(c.storePath), embedder, log)

	ranked, err := retriever.Retrieve(context.Background(), query, c.k, float32(c.minScore))
	if err != nil {
		return err
	}

	if len(ranked) == 0 {
		fmt.Printf("  %s No matches above score %.2f\n", cliui.WarnMark, c.minScore)
		return nil
	}

	for i, r := range ranked {
		fmt.Printf("  %s %s %s\n",
			cliui.ScoreStyle.Render(fmt.Sprintf("%.3f", r.Score)),
			cliui.NameStyle.Render(fmt.Sprintf("[S%d]", i+1)),
			cliui.KeyStyle.Render(r.File),
		)
		fmt.Printf("      %s\n", cliui.DimStyle.Render(cliui.Truncate(oneLine(r.Text), 120)))
	}

	return nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
