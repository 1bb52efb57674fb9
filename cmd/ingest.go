package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askdoc/askdoc/internal/app"
	"github.com/askdoc/askdoc/internal/config"
	"github.com/askdoc/askdoc/internal/log"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Add files to the knowledge base",
	Long: `Reads each file and stores it as a document. Documents are embedded in a
separate pass; run 'askdoc embed' afterwards to make them searchable.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Embed all documents that are not searchable yet",
	RunE:  runEmbed,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(embedCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := log.New(log.Config{})

	a, cleanup, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	in, err := a.NewIngestor()
	if err != nil {
		return err
	}

	for _, path := range args {
		id, err := in.AddFile(ctx, path)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", path, err)
		}
		fmt.Printf("Ingested %s (document %d)\n", path, id)
	}

	fmt.Println("Run 'askdoc embed' to make the new documents searchable.")
	return nil
}

func runEmbed(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if err := checkAPIKey(); err != nil {
		return err
	}

	logger := log.New(log.Config{})

	a, cleanup, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	in, err := a.NewIngestor()
	if err != nil {
		return err
	}

	n, err := in.EmbedPending(ctx)
	if err != nil {
		return err
	}

	if n == 0 {
		fmt.Println("Nothing to embed.")
		return nil
	}
	fmt.Printf("Embedded %d document(s).\n", n)
	return nil
}
