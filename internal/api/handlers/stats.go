package handlers

import (
	"context"
	"net/http"

	"github.com/factfin-ai/factfin/internal/api"
	"github.com/factfin-ai/factfin/internal/repository"
)

// IndexStatsProvider reports chunk and backfill counts.
type IndexStatsProvider interface {
	Count(ctx context.Context) (*repository.Stats, error)
}

type StatsHandler struct {
	stats IndexStatsProvider
}

func NewStatsHandler(stats IndexStatsProvider) *StatsHandler {
	return &StatsHandler{stats: stats}
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Count(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, stats)
}
