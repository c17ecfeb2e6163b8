package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelForScore(t *testing.T) {
	tests := []struct {
		name  string
		score int
		want  SentimentLabel
	}{
		{"zero is bearish", 0, SentimentBearish},
		{"upper bearish band", 39, SentimentBearish},
		{"lower neutral band", 40, SentimentNeutral},
		{"upper neutral band", 69, SentimentNeutral},
		{"lower bullish band", 70, SentimentBullish},
		{"max is bullish", 100, SentimentBullish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LabelForScore(tt.score))
		})
	}
}

func TestValidateVerdict(t *testing.T) {
	valid := &Verdict{
		AnswerMarkdown: "## Answer",
		SentimentScore: 72,
		SentimentLabel: SentimentBullish,
		IsAccurate:     true,
	}
	assert.NoError(t, ValidateVerdict(valid))

	tests := []struct {
		name    string
		mutate  func(v *Verdict)
		wantErr error
	}{
		{"empty answer", func(v *Verdict) { v.AnswerMarkdown = "" }, ErrMissingRequiredField},
		{"score below range", func(v *Verdict) { v.SentimentScore = -1 }, ErrInvalidSentimentScore},
		{"score above range", func(v *Verdict) { v.SentimentScore = 101 }, ErrInvalidSentimentScore},
		{"unknown label", func(v *Verdict) { v.SentimentLabel = "Euphoric" }, ErrInvalidSentimentLabel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := *valid
			tt.mutate(&v)
			assert.ErrorIs(t, ValidateVerdict(&v), tt.wantErr)
		})
	}
}

func TestValidateVerdict_Nil(t *testing.T) {
	assert.Error(t, ValidateVerdict(nil))
}
