package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/factfin-ai/factfin/internal/cli"
	"github.com/factfin-ai/factfin/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "factfind",
		Short: "Factfin daemon",
		Long:  "Factfin daemon for running the claim verification API server",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
