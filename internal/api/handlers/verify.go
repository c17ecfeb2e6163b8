package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/factfin-ai/factfin/internal/api"
	"github.com/factfin-ai/factfin/internal/domain"
	"github.com/factfin-ai/factfin/internal/generator"
	"github.com/factfin-ai/factfin/internal/pipeline"
)

// VerifyRunner submits a verification run and waits for its verdict.
type VerifyRunner interface {
	Submit(ctx context.Context, in pipeline.RunInput) (*domain.Verdict, error)
}

type VerifyHandler struct {
	runner VerifyRunner
}

func NewVerifyHandler(runner VerifyRunner) *VerifyHandler {
	return &VerifyHandler{runner: runner}
}

type VerifyRequest struct {
	Query   string           `json:"query"`
	History []generator.Turn `json:"history,omitempty"`
}

type VerdictResponse struct {
	Answer         string            `json:"answer"`
	Sources        []domain.Citation `json:"sources"`
	SentimentScore int               `json:"sentiment_score"`
	SentimentLabel string            `json:"sentiment_label"`
	IsAccurate     bool              `json:"is_accurate"`
}

func verdictToResponse(v *domain.Verdict) *VerdictResponse {
	sources := v.Sources
	if sources == nil {
		sources = []domain.Citation{}
	}
	return &VerdictResponse{
		Answer:         v.AnswerMarkdown,
		Sources:        sources,
		SentimentScore: v.SentimentScore,
		SentimentLabel: string(v.SentimentLabel),
		IsAccurate:     v.IsAccurate,
	}
}

func (h *VerifyHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	verdict, err := h.runner.Submit(r.Context(), pipeline.RunInput{
		Query:   req.Query,
		History: req.History,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, verdictToResponse(verdict))
}
