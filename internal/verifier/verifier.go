// Package verifier cross-checks a generated answer against the retrieved
// evidence before it is returned.
package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/factfin-ai/factfin/internal/domain"
)

// CompletionClient runs JSON-mode chat completions.
type CompletionClient interface {
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}

// Verifier re-prompts the model with the answer and its evidence. It never
// blocks a response: any verification failure degrades to an unverified
// verdict carrying the original answer.
type Verifier struct {
	llm CompletionClient
}

// New creates a Verifier.
func New(llm CompletionClient) *Verifier {
	return &Verifier{llm: llm}
}

const systemPrompt = `You are a fact checker. You are given an answer and the evidence it was derived from. Decide whether every factual claim in the answer is supported by the evidence.

Respond with a JSON object:
{
  "accurate": <true if every claim is supported>,
  "corrected_answer": "<empty when accurate; otherwise a corrected answer using ONLY the evidence>",
  "corrected_sentiment_score": <integer 0-100, or null to keep the original>
}`

type verifyResponse struct {
	Accurate                bool   `json:"accurate"`
	CorrectedAnswer         string `json:"corrected_answer"`
	CorrectedSentimentScore *int   `json:"corrected_sentiment_score"`
}

// Verify returns the verdict with IsAccurate set, replacing the answer with
// corrected text when the model found unsupported claims.
func (v *Verifier) Verify(ctx context.Context, verdict *domain.Verdict, result domain.RetrievalResult) (*domain.Verdict, error) {
	if verdict == nil {
		return nil, domain.ErrMissingRequiredField
	}

	raw, err := v.llm.CompleteJSON(ctx, systemPrompt, buildUserPrompt(verdict, result))
	if err != nil {
		log.Printf("verifier: completion failed, returning unverified answer: %v", err)
		verdict.IsAccurate = false
		return verdict, nil
	}

	var resp verifyResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		log.Printf("verifier: malformed response, returning unverified answer: %v", err)
		verdict.IsAccurate = false
		return verdict, nil
	}

	if resp.Accurate {
		verdict.IsAccurate = true
		return verdict, nil
	}

	verdict.IsAccurate = false
	if corrected := strings.TrimSpace(resp.CorrectedAnswer); corrected != "" {
		verdict.AnswerMarkdown = corrected
	}
	if s := resp.CorrectedSentimentScore; s != nil && *s >= 0 && *s <= 100 {
		verdict.SentimentScore = *s
		verdict.SentimentLabel = domain.LabelForScore(*s)
	}
	return verdict, nil
}

func buildUserPrompt(verdict *domain.Verdict, result domain.RetrievalResult) string {
	var b strings.Builder

	b.WriteString("Answer to check:\n")
	b.WriteString(verdict.AnswerMarkdown)
	b.WriteString("\n")

	if len(result) > 0 {
		b.WriteString("\nEvidence:\n")
		for i, sc := range result {
			fmt.Fprintf(&b, "[%d] %s\n", i+1, strings.TrimSpace(sc.Chunk.Text))
		}
	} else {
		b.WriteString("\nEvidence: none.\n")
	}

	return b.String()
}
