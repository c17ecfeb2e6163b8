package domain

// SentimentLabel classifies a verdict's sentiment.
type SentimentLabel string

const (
	SentimentBearish SentimentLabel = "Bearish"
	SentimentNeutral SentimentLabel = "Neutral"
	SentimentBullish SentimentLabel = "Bullish"
)

// Score bands used to keep label and score consistent.
const (
	bearishUpperBound = 39
	neutralUpperBound = 69
)

// LabelForScore returns the sentiment label for a 0-100 score.
func LabelForScore(score int) SentimentLabel {
	switch {
	case score <= bearishUpperBound:
		return SentimentBearish
	case score <= neutralUpperBound:
		return SentimentNeutral
	default:
		return SentimentBullish
	}
}

// Citation is a source reference attached to a verdict.
type Citation struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Verdict is the structured, sourced output of a pipeline run. It is the only
// artifact returned to the caller.
type Verdict struct {
	AnswerMarkdown string
	SentimentScore int
	SentimentLabel SentimentLabel
	IsAccurate     bool
	Sources        []Citation

	// ProviderFailures counts providers that failed during aggregation.
	// Internal metadata only; it never appears in the answer text.
	ProviderFailures int
}

// ValidateVerdict validates a Verdict instance
func ValidateVerdict(v *Verdict) error {
	if v == nil {
		return ErrMissingRequiredField
	}
	if v.AnswerMarkdown == "" {
		return ErrMissingRequiredField
	}
	if v.SentimentScore < 0 || v.SentimentScore > 100 {
		return ErrInvalidSentimentScore
	}
	switch v.SentimentLabel {
	case SentimentBearish, SentimentNeutral, SentimentBullish:
	default:
		return ErrInvalidSentimentLabel
	}
	return nil
}
