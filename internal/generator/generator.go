// Package generator produces the sourced, sentiment-scored answer for a
// query from the retrieved evidence.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/factfin-ai/factfin/internal/domain"
)

// CompletionClient runs JSON-mode chat completions.
type CompletionClient interface {
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}

// Turn is one prior conversation message, folded into the prompt only.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateInput carries everything the generation prompt is built from.
type GenerateInput struct {
	Query   string
	Entity  *domain.Entity
	Facts   *domain.StructuredFacts
	Result  domain.RetrievalResult
	History []Turn
}

// Generator turns evidence into a structured verdict.
type Generator struct {
	llm CompletionClient
}

// New creates a Generator.
func New(llm CompletionClient) *Generator {
	return &Generator{llm: llm}
}

const systemPrompt = `You are a financial research assistant. Answer the user's question using ONLY the numbered evidence and structured facts provided. Be direct about uncertainty; never invent figures.

Respond with a JSON object:
{
  "answer_markdown": "concise markdown answer grounded in the evidence",
  "sentiment_score": <integer 0-100, 0 most bearish, 100 most bullish>,
  "sentiment_label": "Bearish" | "Neutral" | "Bullish",
  "source_ids": [<numbers of the evidence entries you relied on>]
}`

const strictSuffix = `

Your previous response did not match the required schema. Return ONLY the JSON object described above, with answer_markdown non-empty and sentiment_score an integer between 0 and 100.`

type generateResponse struct {
	AnswerMarkdown string `json:"answer_markdown"`
	SentimentScore int    `json:"sentiment_score"`
	SentimentLabel string `json:"sentiment_label"`
	SourceIDs      []int  `json:"source_ids"`
}

// Generate runs one JSON-mode completion and validates the result. A response
// that fails schema validation gets one retry with a stricter instruction
// before ErrGeneration is returned.
func (g *Generator) Generate(ctx context.Context, in GenerateInput) (*domain.Verdict, error) {
	user := buildUserPrompt(in)

	system := systemPrompt
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		raw, err := g.llm.CompleteJSON(ctx, system, user)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeGeneration, "completion call failed", err)
		}

		verdict, err := parseVerdict(raw, in.Result)
		if err == nil {
			return verdict, nil
		}
		lastErr = err
		system = systemPrompt + strictSuffix
	}

	return nil, domain.NewDomainErrorWithCause(domain.ErrCodeGeneration, "model output failed schema validation", lastErr)
}

func parseVerdict(raw string, result domain.RetrievalResult) (*domain.Verdict, error) {
	var resp generateResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if strings.TrimSpace(resp.AnswerMarkdown) == "" {
		return nil, domain.ErrMissingRequiredField
	}
	if resp.SentimentScore < 0 || resp.SentimentScore > 100 {
		return nil, domain.ErrInvalidSentimentScore
	}

	// Label always follows the score bands, overruling a disagreeing model.
	label := domain.LabelForScore(resp.SentimentScore)

	cited := make(domain.RetrievalResult, 0, len(resp.SourceIDs))
	for _, id := range resp.SourceIDs {
		if id < 1 || id > len(result) {
			continue
		}
		cited = append(cited, result[id-1])
	}
	if len(cited) == 0 {
		cited = result
	}

	verdict := &domain.Verdict{
		AnswerMarkdown: strings.TrimSpace(resp.AnswerMarkdown),
		SentimentScore: resp.SentimentScore,
		SentimentLabel: label,
		Sources:        cited.Citations(),
	}
	if err := domain.ValidateVerdict(verdict); err != nil {
		return nil, err
	}
	return verdict, nil
}

func buildUserPrompt(in GenerateInput) string {
	var b strings.Builder

	if len(in.History) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, turn := range in.History {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Question: %s\n", in.Query)

	if in.Entity != nil {
		fmt.Fprintf(&b, "\nResolved entity: %s", in.Entity.Symbol)
		if in.Entity.Name != "" {
			fmt.Fprintf(&b, " (%s)", in.Entity.Name)
		}
		if in.Entity.Exchange != "" {
			fmt.Fprintf(&b, " on %s", in.Entity.Exchange)
		}
		b.WriteString("\n")
	}

	writeFacts(&b, in.Facts)

	if len(in.Result) > 0 {
		b.WriteString("\nEvidence:\n")
		for i, sc := range in.Result {
			fmt.Fprintf(&b, "[%d] %s\n", i+1, strings.TrimSpace(sc.Chunk.Text))
		}
	} else {
		b.WriteString("\nEvidence: none retrieved.\n")
	}

	return b.String()
}

func writeFacts(b *strings.Builder, facts *domain.StructuredFacts) {
	if facts.Empty() {
		return
	}

	b.WriteString("\nStructured facts:\n")
	if q := facts.Quote; q != nil {
		fmt.Fprintf(b, "- Quote %s: price %.2f, change %+.2f (%+.2f%%), day range %.2f-%.2f, volume %d\n",
			q.Symbol, q.Price, q.Change, q.ChangePercent, q.DayLow, q.DayHigh, q.Volume)
	}
	if p := facts.Profile; p != nil {
		fmt.Fprintf(b, "- Profile: %s, %s / %s (%s)\n", p.CompanyName, p.Sector, p.Industry, p.Exchange)
	}
	if r := facts.Ratios; r != nil {
		fmt.Fprintf(b, "- Ratios: P/E %.2f, P/B %.2f, D/E %.2f, ROE %.2f, dividend yield %.2f\n",
			r.PERatio, r.PBRatio, r.DebtToEquity, r.ReturnOnEquity, r.DividendYield)
	}
}
