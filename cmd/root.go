// Package cmd defines the askdoc command-line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "askdoc",
	Short: "askdoc - chat with your documents",
	Long: `askdoc answers questions grounded in your own documents.

Ingest files into a PostgreSQL knowledge base, embed them, then chat:
retrieval finds the most relevant chunks for each question and the model
answers from that context, citing sources.

Running askdoc without a subcommand starts the interactive chat.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
