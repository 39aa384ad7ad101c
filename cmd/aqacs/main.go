package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/aqacs/internal/cli"
	"github.com/cloo-solutions/aqacs/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "aqacs",
		Short: "aqacs CLI - tariff lookup and QA",
		Long: `aqacs CLI queries an aqacs server for HTSUS tariff lines and answers.

Environment variables:
  AQACS_API_KEY   API key, when the server requires one
  AQACS_API_URL   API base URL (default: http://localhost:8080)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.TariffCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.SemanticCmd())
	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.HealthCmd())
	rootCmd.AddCommand(client.AuthCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
