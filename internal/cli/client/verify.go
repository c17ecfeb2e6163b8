package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// VerifyRequest represents the verify API request.
type VerifyRequest struct {
	Query   string `json:"query"`
	History []Turn `json:"history,omitempty"`
}

// Turn is one prior conversation message.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Citation is a source reference in a verdict.
type Citation struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// VerifyResponse represents the verify API response.
type VerifyResponse struct {
	Answer         string     `json:"answer"`
	Sources        []Citation `json:"sources"`
	SentimentScore int        `json:"sentiment_score"`
	SentimentLabel string     `json:"sentiment_label"`
	IsAccurate     bool       `json:"is_accurate"`
}

// VerifyCmd creates the verify command.
func VerifyCmd() *cobra.Command {
	var history []string

	cmd := &cobra.Command{
		Use:   "verify <query>",
		Short: "Verify a financial claim",
		Long:  "Runs the full verification pipeline for a query and prints the sourced verdict.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runVerify(cmd, strings.Join(args, " "), history, outputJSON)
		},
	}

	cmd.Flags().StringArrayVar(&history, "history", nil,
		"Prior conversation turn as 'role:content' (repeatable)")

	return cmd
}

func runVerify(cmd *cobra.Command, query string, history []string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	req := VerifyRequest{Query: query}
	for _, h := range history {
		role, content, found := strings.Cut(h, ":")
		if !found {
			return fmt.Errorf("invalid history entry %q (expected 'role:content')", h)
		}
		req.History = append(req.History, Turn{
			Role:    strings.TrimSpace(role),
			Content: strings.TrimSpace(content),
		})
	}

	resp, err := api.Post("/verify", req)
	if err != nil {
		return err
	}

	var verdict VerifyResponse
	if err := json.Unmarshal(resp.Data, &verdict); err != nil {
		return fmt.Errorf("failed to parse verdict: %w", err)
	}

	if outputJSON {
		out, err := json.MarshalIndent(verdict, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Println(verdict.Answer)
	fmt.Println()
	fmt.Printf("Sentiment: %s (%d/100)\n", verdict.SentimentLabel, verdict.SentimentScore)
	if verdict.IsAccurate {
		fmt.Println("Verification: passed")
	} else {
		fmt.Println("Verification: could not be confirmed")
	}

	if len(verdict.Sources) > 0 {
		fmt.Println("\nSources:")
		for i, src := range verdict.Sources {
			title := src.Title
			if title == "" {
				title = src.URL
			}
			fmt.Printf("  %d. %s\n     %s\n", i+1, title, src.URL)
		}
	}

	return nil
}
