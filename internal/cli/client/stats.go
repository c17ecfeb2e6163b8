package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// StatsResponse represents the index stats API response.
type StatsResponse struct {
	TotalChunks       int64 `json:"total_chunks"`
	MissingEmbeddings int64 `json:"missing_embeddings"`
	PendingBackfills  int64 `json:"pending_backfills"`
}

// StatsCmd creates the stats command.
func StatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show evidence index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runStats(cmd, outputJSON)
		},
	}
}

func runStats(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/index/stats")
	if err != nil {
		return err
	}

	var stats StatsResponse
	if err := json.Unmarshal(resp.Data, &stats); err != nil {
		return fmt.Errorf("failed to parse stats: %w", err)
	}

	if outputJSON {
		out, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("Chunks indexed:      %d\n", stats.TotalChunks)
	fmt.Printf("Missing embeddings:  %d\n", stats.MissingEmbeddings)
	fmt.Printf("Pending backfills:   %d\n", stats.PendingBackfills)
	return nil
}
