package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/askdoc/askdoc/internal/app"
	"github.com/askdoc/askdoc/internal/config"
	"github.com/askdoc/askdoc/internal/log"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
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

	ctrl, err := a.NewSession()
	if err != nil {
		return err
	}

	question := strings.Join(args, " ")
	reply, err := ctrl.Handle(ctx, question)
	if err != nil {
		return err
	}

	fmt.Println(reply)
	return nil
}
