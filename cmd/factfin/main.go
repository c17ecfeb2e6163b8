package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/factfin-ai/factfin/internal/cli"
	"github.com/factfin-ai/factfin/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "factfin",
		Short: "Factfin CLI - Verified answers to financial claims",
		Long: `Factfin CLI runs financial claims through the verification pipeline.

Environment variables:
  FACTFIN_API_URL    API base URL (default: http://localhost:8080)
  FACTFIN_CALLER_ID  Opaque caller identifier attached to requests`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	rootCmd.PersistentFlags().String("caller-id", "", "Caller identifier (overrides env)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.VerifyCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.StatsCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
