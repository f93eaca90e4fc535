// Package cmd holds the CLI commands.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "verity",
	Short: "Verity - conversational AI research assistant",
	Long: `Verity answers research questions with a hosted language model,
reaching for live web search and content extraction when a question needs
current information. Run "verity serve" to start the chat web UI, or
"verity ask" for a one-shot question in the terminal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// No subcommand starts the web server.
		return runServe()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
