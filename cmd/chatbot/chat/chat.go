// Package chatcmder provides the interactive chat command. It is a thin
// client for the query server: each turn is POSTed to /rag/stream and the
// response frames are rendered as they arrive.
package chatcmder

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/seii-chiro/chatbot/pkg/cliui"
	"github.com/seii-chiro/chatbot/pkg/config"
	"github.com/seii-chiro/chatbot/pkg/llm"
	"github.com/seii-chiro/chatbot/pkg/stream"
)

type chatCommander struct {
	target string
	mode   string

	client  *http.Client
	history []llm.Message
}

const chatLongDesc string = `Start an interactive chat session against a running query server.

Each turn sends the full conversation so far to the server's /rag/stream
endpoint and prints the streamed answer. When the server used retrieved
context, the sources are listed after the answer. Type "exit" or press
Ctrl-D to leave.

Examples:
  chatbot chat
  chatbot chat --target http://localhost:8005
  chatbot chat --mode rag`

const chatShortDesc string = "Chat with the query server"

var chatFlags = []string{
	config.FlagTarget,
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{
		client: &http.Client{Timeout: 5 * time.Minute},
	}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, chatFlags)
			cmder.target = v.GetString("client.target")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagTarget, &cmder.target)
	cmd.Flags().StringVar(&cmder.mode, "mode", "auto", "Answer mode (auto, rag, chat)")

	return cmd
}

func (c *chatCommander) run() error {
	fmt.Printf("Chatting with %s (mode %s). Type %s to leave.\n\n",
		cliui.NameStyle.Render(c.target),
		cliui.KeyStyle.Render(c.mode),
		cliui.KeyStyle.Render("exit"),
	)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(cliui.NameStyle.Render("you") + cliui.DimStyle.Render(" › "))
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		c.history = append(c.history, llm.NewMessage(llm.RoleUser, line))
		if err := c.turn(); err != nil {
			fmt.Printf("  %s %v\n", cliui.FailMark, err)
			// Keep the failed question out of the next request.
			c.history = c.history[:len(c.history)-1]
		}
		fmt.Println()
	}
}

// turn sends the conversation to the server and renders the streamed
// response, appending the assistant's answer to the history on success.
func (c *chatCommander) turn() error {
	payload, err := json.Marshal(map[string]any{
		"messages": c.history,
		"mode":     c.mode,
	})
	if err != nil {
		return err
	}

	resp, err := c.client.Post(c.target+"/rag/stream", "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	fmt.Print(cliui.KeyStyle.Render("bot") + cliui.DimStyle.Render(" › "))

	var answer strings.Builder
	var sources []stream.SourceRef

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var frame stream.Frame
		if err := json.Unmarshal(line, &frame); err != nil {
			return fmt.Errorf("malformed frame: %w", err)
		}

		switch frame.Type {
		case stream.TypeContent:
			fmt.Print(frame.Content)
			answer.WriteString(frame.Content)
		case stream.TypeSources:
			sources = frame.Sources
		case stream.TypeError:
			fmt.Println()
			return fmt.Errorf("%s", frame.Message)
		case stream.TypeDone:
			fmt.Println()
			c.renderSources(sources)
			c.history = append(c.history, llm.NewMessage(llm.RoleAssistant, answer.String()))
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Println()
	return fmt.Errorf("stream ended without a done frame")
}

func (c *chatCommander) renderSources(sources []stream.SourceRef) {
	if len(sources) == 0 {
		return
	}

	fmt.Println()
	for _, s := range sources {
		fmt.Printf("  %s %s %s\n",
			cliui.ScoreStyle.Render(fmt.Sprintf("%.3f", s.Score)),
			cliui.NameStyle.Render("["+s.Tag+"]"),
			cliui.KeyStyle.Render(s.File),
		)
	}
}
