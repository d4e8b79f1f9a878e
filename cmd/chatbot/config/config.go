// Package configcmder provides the config command group for reading and
// writing the persistent config.toml.
package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seii-chiro/chatbot/pkg/cliui"
	"github.com/seii-chiro/chatbot/pkg/config"
)

const configLongDesc string = `Read and write chatbot configuration values.

Values are stored in config.toml in the resolved .chatbot/ directory and
can also be overridden per-invocation with environment variables
(CHATBOT_*) or command flags.

Examples:
  chatbot config list
  chatbot config get llm.model
  chatbot config set retrieval.k 8`

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage chatbot configuration",
		Long:  configLongDesc,
	}

	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func newConfiger(cmd *cobra.Command) (*config.Configer, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	return config.NewConfiger(configDir)
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfger, err := newConfiger(cmd)
			if err != nil {
				return err
			}

			value, err := cfger.GetConfigValue(args[0])
			if err != nil {
				return err
			}

			fmt.Println(value)
			return nil
		},
	}
}

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfger, err := newConfiger(cmd)
			if err != nil {
				return err
			}

			key, value := args[0], args[1]
			if err := cfger.SetConfigValue(key, value); err != nil {
				return err
			}

			fmt.Printf("%s %s = %s\n", cliui.SuccessMark, cliui.KeyStyle.Render(key), value)
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfger, err := newConfiger(cmd)
			if err != nil {
				return err
			}

			for _, key := range config.ValidConfigKeys() {
				value, err := cfger.GetConfigValue(key)
				if err != nil {
					return err
				}
				fmt.Printf("%s = %s\n", cliui.KeyStyle.Render(key), value)
			}

			return nil
		},
	}
}
