package main

import (
	"fmt"
	"os"

	"github.com/jerry-assistant/ragcore/internal/cli"
	"github.com/jerry-assistant/ragcore/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "ragctl",
		Short: "Client for the retrieval API",
		Long: `ragctl talks to a running ragcored instance.

Environment variables:
  RAGCORE_API_KEY   API key for authentication (optional)
  RAGCORE_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")

	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.ContextCmd())
	rootCmd.AddCommand(client.CacheCmd())

	cli.AddHelpJSONFlag(rootCmd)
	cli.CheckHelpJSON(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
