package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest represents the search API request.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// SearchResult represents one retrieved chunk.
type SearchResult struct {
	ChunkID       string  `json:"chunk_id"`
	Text          string  `json:"text"`
	URL           string  `json:"url"`
	Source        string  `json:"source"`
	Symbol        string  `json:"symbol,omitempty"`
	PublishedAt   string  `json:"published_at,omitempty"`
	Score         float32 `json:"score"`
	SemanticScore float32 `json:"semantic_score"`
	LexicalScore  float32 `json:"lexical_score"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the evidence index",
		Long:  "Searches indexed evidence with hybrid retrieval and prints the ranked chunks.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSearch(cmd, strings.Join(args, " "), topK, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "n", 0, "Maximum number of results (server default when 0)")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, topK int, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/search", SearchRequest{Query: query, TopK: topK})
	if err != nil {
		return err
	}

	var result SearchResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse search results: %w", err)
	}

	if outputJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(result.Results) == 0 {
		fmt.Println("No results.")
		return nil
	}

	for i, r := range result.Results {
		fmt.Printf("%d. [%.3f] %s\n", i+1, r.Score, excerpt(r.Text, 120))
		if r.Symbol != "" {
			fmt.Printf("   symbol: %s", r.Symbol)
			if r.PublishedAt != "" {
				fmt.Printf("  published: %s", r.PublishedAt)
			}
			fmt.Println()
		}
		fmt.Printf("   %s\n", r.URL)
	}

	return nil
}

func excerpt(text string, max int) string {
	text = strings.ReplaceAll(text, "\n", " ")
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
