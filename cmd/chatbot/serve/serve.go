// Package servecmder provides the serve command for running the streaming
// query server.
package servecmder

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/seii-chiro/chatbot/api"
	"github.com/seii-chiro/chatbot/pkg/config"
	embeddingutils "github.com/seii-chiro/chatbot/pkg/embeddings/utils"
	llmutils "github.com/seii-chiro/chatbot/pkg/llm/utils"
	"github.com/seii-chiro/chatbot/pkg/logger"
	"github.com/seii-chiro/chatbot/pkg/retrieve"
	"github.com/seii-chiro/chatbot/pkg/store"
)

type ServeCommander struct {
	listen         string
	storePath      string
	storeWatch     bool
	embeddingProv  string
	embeddingTgt   string
	embeddingModel string
	llmProv        string
	llmTgt         string
	llmModel       string
	debug          bool

	logger *zap.Logger
}

const serveLongDesc string = `Run the streaming query server.

The server exposes POST /rag/stream, which answers a question (or a full
chat history) with a newline-delimited JSON stream of answer tokens,
retrieved source citations, and a terminal status frame.

Examples:
  chatbot serve
  chatbot serve --listen :8005 --store vectorstore.json
  chatbot serve --store-watch`

const serveShortDesc string = "Run the streaming query server"

var serveFlags = []string{
	config.FlagListen,
	config.FlagStore,
	config.FlagStoreWatch,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagLLMProv,
	config.FlagLLMTgt,
	config.FlagLLMModel,
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)
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

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagStore, &cmder.storePath)
	config.AddBoolFlag(cmd, config.Flags, config.FlagStoreWatch, &cmder.storeWatch)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.embeddingProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &cmder.embeddingTgt)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMProv, &cmder.llmProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMTgt, &cmder.llmTgt)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMModel, &cmder.llmModel)

	return cmd
}

func (c *ServeCommander) applyViper(v *viper.Viper) {
	c.listen = v.GetString("server.listen")
	c.storePath = v.GetString("store.path")
	c.storeWatch = v.GetBool("store.watch")
	c.embeddingProv = v.GetString("embedding.provider")
	c.embeddingTgt = v.GetString("embedding.target")
	c.embeddingModel = v.GetString("embedding.model")
	c.llmProv = v.GetString("llm.provider")
	c.llmTgt = v.GetString("llm.target")
	c.llmModel = v.GetString("llm.model")
}

func (c *ServeCommander) run() error {
	c.logger = logger.New(c.debug)
	defer func() { _ = c.logger.Sync() }()

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: c.embeddingProv,
		TargetURL:    c.embeddingTgt,
		Model:        c.embeddingModel,
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	defer embedder.Close()

	streamer, err := llmutils.NewStreamer(&llmutils.NewStreamerOpts{
		ProviderType: c.llmProv,
		TargetURL:    c.llmTgt,
		Model:        c.llmModel,
	})
	if err != nil {
		return fmt.Errorf("creating streamer: %w", err)
	}
	defer streamer.Close()

	loader, err := c.createLoader()
	if err != nil {
		return fmt.Errorf("creating store loader: %w", err)
	}
	defer loader.Close()

	retriever := retrieve.New(loader, embedder, c.logger)

	server := api.NewServer(api.Config{ListenAddr: c.listen}, retriever, streamer, c.logger)

	c.logger.Info("starting query server",
		zap.String("listen", c.listen),
		zap.String("store", c.storePath),
		zap.String("embedding_model", c.embeddingModel),
		zap.String("chat_model", c.llmModel),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return server.Shutdown()
	}
}

func (c *ServeCommander) createLoader() (store.Loader, error) {
	if c.storeWatch {
		c.logger.Info("using cached store with file watching", zap.String("path", c.storePath))
		return store.NewWatchLoader(c.storePath, c.logger)
	}

	c.logger.Info("reloading store per request", zap.String("path", c.storePath))
	return store.NewFileLoader(c.storePath), nil
}
