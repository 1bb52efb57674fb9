package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/askdoc/askdoc/internal/app"
	"github.com/askdoc/askdoc/internal/config"
	"github.com/askdoc/askdoc/internal/log"
	"github.com/askdoc/askdoc/internal/session"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat over the knowledge base",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
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

	printBanner(ctx, a, ctrl)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nYou: ")
		if !scanner.Scan() {
			fmt.Println("\nGoodbye!")
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(input) {
		case "quit", "exit", "bye", "q":
			fmt.Println("\nThank you for chatting! Goodbye!")
			return nil
		case "history":
			fmt.Println(ctrl.FormatHistory())
			continue
		case "settings":
			runSettings(scanner, os.Stdout, ctrl)
			continue
		case "help":
			printHelp(os.Stdout)
			continue
		case "":
			fmt.Println("Please enter a question or message.")
			continue
		}

		reply, err := ctrl.Handle(ctx, input)
		if err != nil {
			if errors.Is(err, session.ErrEmptyQuery) {
				fmt.Println("Please enter a question or message.")
				continue
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}

		fmt.Printf("\nAssistant: %s\n", reply)
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

// checkAPIKey fails early with setup instructions when the Gemini key is
// missing. Genkit reads the variable itself during provider init, but the
// error it produces there is far less actionable.
func checkAPIKey() error {
	if os.Getenv("GEMINI_API_KEY") != "" {
		return nil
	}
	fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY environment variable not set")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Please run:")
	fmt.Fprintln(os.Stderr, "  export GEMINI_API_KEY=your-api-key")
	return errors.New("GEMINI_API_KEY not set")
}

func printBanner(ctx context.Context, a *app.App, ctrl *session.Controller) {
	fmt.Println("askdoc - chat with your documents")
	fmt.Println(strings.Repeat("=", 60))

	count, err := a.Store.CountChunks(ctx)
	switch {
	case err != nil:
		a.Logger.Warn("could not count knowledge base chunks", "error", err)
	case count > 0:
		fmt.Printf("Knowledge base ready: %d embedded chunks\n", count)
	default:
		fmt.Println("No embeddings found in the knowledge base.")
		fmt.Println("The chat will work but answers without document context.")
		fmt.Println("Run 'askdoc ingest <file>' and 'askdoc embed' first.")
	}

	fmt.Printf("Session: %s\n", ctrl.ID())
	fmt.Println("Type 'quit', 'exit', or 'bye' to end the conversation.")
	fmt.Println("Type 'history' to see conversation history.")
	fmt.Println("Type 'settings' to adjust search parameters.")
	fmt.Println(strings.Repeat("=", 60))
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  history   show the conversation so far")
	fmt.Fprintln(out, "  settings  adjust similarity threshold and max context docs")
	fmt.Fprintln(out, "  help      show this message")
	fmt.Fprintln(out, "  quit      end the conversation (also: exit, bye, q)")
}

// runSettings drives the interactive settings dialogue: show the current
// values, then prompt for each parameter in turn. Empty input keeps a value.
func runSettings(scanner *bufio.Scanner, out io.Writer, ctrl *session.Controller) {
	params := ctrl.Params()
	fmt.Fprintln(out, "\nCurrent Settings:")
	fmt.Fprintf(out, "  Similarity threshold: %g\n", params.Threshold)
	fmt.Fprintf(out, "  Max context documents: %d\n", params.MaxDocs)

	fmt.Fprintf(out, "\nEnter new similarity threshold (%g-%g, current: %g): ",
		session.MinThreshold, session.MaxThreshold, params.Threshold)
	thresholdInput := readLine(scanner)

	fmt.Fprintf(out, "Enter max context documents (%d-%d, current: %d): ",
		session.MinDocs, session.MaxDocs, params.MaxDocs)
	docsInput := readLine(scanner)

	applySettings(ctrl, thresholdInput, docsInput, out)
}

func readLine(scanner *bufio.Scanner) string {
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}

// applySettings parses the two raw inputs and applies whatever is valid.
// Each parameter is handled independently: a bad threshold does not block a
// good docs value, matching session.Controller.AdjustParameters.
func applySettings(ctrl *session.Controller, thresholdInput, docsInput string, out io.Writer) {
	var (
		threshold *float64
		maxDocs   *int
	)

	if thresholdInput != "" {
		v, err := strconv.ParseFloat(thresholdInput, 64)
		if err != nil {
			fmt.Fprintf(out, "Invalid threshold %q. Value unchanged.\n", thresholdInput)
		} else {
			threshold = &v
		}
	}
	if docsInput != "" {
		v, err := strconv.Atoi(docsInput)
		if err != nil {
			fmt.Fprintf(out, "Invalid max documents %q. Value unchanged.\n", docsInput)
		} else {
			maxDocs = &v
		}
	}

	err := ctrl.AdjustParameters(threshold, maxDocs)
	if err != nil {
		fmt.Fprintf(out, "%v\n", err)
	}

	params := ctrl.Params()
	if threshold != nil && params.Threshold == *threshold {
		fmt.Fprintf(out, "Similarity threshold updated to %g\n", *threshold)
	}
	if maxDocs != nil && params.MaxDocs == *maxDocs {
		fmt.Fprintf(out, "Max context documents updated to %d\n", *maxDocs)
	}
}
