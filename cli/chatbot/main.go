package main

import (
	"os"

	chatbotcmder "github.com/seii-chiro/chatbot/cmd/chatbot"
)

func main() {
	cmd := chatbotcmder.NewChatbotCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
