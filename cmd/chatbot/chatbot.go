// Package chatbotcmder
package chatbotcmder

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	chatcmder "github.com/seii-chiro/chatbot/cmd/chatbot/chat"
	configcmder "github.com/seii-chiro/chatbot/cmd/chatbot/config"
	ingestcmder "github.com/seii-chiro/chatbot/cmd/chatbot/ingest"
	searchcmder "github.com/seii-chiro/chatbot/cmd/chatbot/search"
	servecmder "github.com/seii-chiro/chatbot/cmd/chatbot/serve"
)

const chatbotLongDesc string = `Chatbot is a retrieval-augmented chat service over your documents.

Build the knowledge store and serve queries using:
  chatbot ingest       Index a directory of documents into the vector store
  chatbot serve        Run the streaming query server
  chatbot search       One-shot retrieval against the store
  chatbot chat         Interactive chat against a running server`

const chatbotShortDesc string = "Chatbot - retrieval-augmented chat over your documents"

func NewChatbotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chatbot",
		Short: chatbotShortDesc,
		Long:  chatbotLongDesc,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			// Optional .env for provider keys (e.g. OPENAI_API_KEY).
			_ = godotenv.Load()
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .chatbot/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())

	return cmd
}
