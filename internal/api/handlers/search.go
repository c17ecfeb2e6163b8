package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/factfin-ai/factfin/internal/api"
	"github.com/factfin-ai/factfin/internal/domain"
)

// ChunkSearcher runs a hybrid search over the index.
type ChunkSearcher interface {
	Search(ctx context.Context, query string, topK int) (domain.RetrievalResult, error)
}

// SearchHandler exposes the retriever directly for debugging what the
// generation stage would see.
type SearchHandler struct {
	searcher ChunkSearcher
}

func NewSearchHandler(searcher ChunkSearcher) *SearchHandler {
	return &SearchHandler{searcher: searcher}
}

type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

type SearchResultItem struct {
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

type SearchResponse struct {
	Results []SearchResultItem `json:"results"`
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	result, err := h.searcher.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]SearchResultItem, 0, len(result))
	for _, sc := range result {
		item := SearchResultItem{
			ChunkID:       sc.Chunk.ChunkID,
			Text:          sc.Chunk.Text,
			URL:           sc.Chunk.URL,
			Source:        sc.Chunk.Source,
			Symbol:        sc.Chunk.Symbol,
			Score:         sc.Score,
			SemanticScore: sc.SemanticScore,
			LexicalScore:  sc.LexicalScore,
		}
		if !sc.Chunk.Date.IsZero() {
			item.PublishedAt = sc.Chunk.Date.Format(time.RFC3339)
		}
		items = append(items, item)
	}

	api.Success(w, http.StatusOK, SearchResponse{Results: items})
}
