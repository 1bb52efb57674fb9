package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("askdoc %s\n", AppVersion)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

		key := os.Getenv("GEMINI_API_KEY")
		if len(key) >= 8 {
			fmt.Printf("GEMINI_API_KEY: %s...%s (configured)\n", key[:4], key[len(key)-4:])
		} else if key != "" {
			fmt.Println("GEMINI_API_KEY: configured")
		} else {
			fmt.Println("GEMINI_API_KEY: Not set")
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
