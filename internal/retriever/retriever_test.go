package retriever

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factfin-ai/factfin/internal/domain"
)

type stubSearcher struct {
	semantic      []domain.ScoredChunk
	lexical       []domain.Chunk
	semanticLimit int
	lexicalTerms  []string
	semanticErr   error
}

func (s *stubSearcher) SearchSemantic(ctx context.Context, embedding []float32, limit int) ([]domain.ScoredChunk, error) {
	s.semanticLimit = limit
	return s.semantic, s.semanticErr
}

func (s *stubSearcher) SearchLexical(ctx context.Context, terms []string, limit int) ([]domain.Chunk, error) {
	s.lexicalTerms = terms
	return s.lexical, nil
}

type stubEmbedder struct {
	err error
}

func (e *stubEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []float32{0.1, 0.2}, nil
}

func chunk(id, text string, date time.Time) domain.Chunk {
	return domain.Chunk{ChunkID: id, Text: text, URL: "https://example.com/" + id, Date: date}
}

func TestSearchCombinesSemanticAndLexical(t *testing.T) {
	now := time.Now().UTC()
	searcher := &stubSearcher{
		semantic: []domain.ScoredChunk{
			{Chunk: chunk("sem-high", "unrelated words entirely", now), SemanticScore: 0.9},
			{Chunk: chunk("sem-mid", "tesla delivery guidance raised", now), SemanticScore: 0.5},
		},
		lexical: []domain.Chunk{
			chunk("lex-only", "tesla delivery numbers disappoint", now),
		},
	}

	r := New(searcher, &stubEmbedder{}, 0, 0)
	results, err := r.Search(context.Background(), "tesla delivery guidance", 10)

	require.NoError(t, err)
	require.Len(t, results, 3)

	byID := map[string]domain.ScoredChunk{}
	for _, sc := range results {
		byID[sc.Chunk.ChunkID] = sc
	}

	// sem-mid matches all three terms lexically on top of its semantic score.
	assert.InDelta(t, 1.0, float64(byID["sem-mid"].LexicalScore), 1e-6)
	assert.InDelta(t, 0.0, float64(byID["sem-high"].LexicalScore), 1e-6)
	assert.Equal(t, float32(0), byID["lex-only"].SemanticScore)

	// Combined score: 0.5 + 0.85*1.0 > 0.9 + 0.
	assert.Equal(t, "sem-mid", results[0].Chunk.ChunkID)
	assert.Equal(t, "sem-high", results[1].Chunk.ChunkID)
}

func TestSearchScoreMonotonicInEachComponent(t *testing.T) {
	now := time.Now().UTC()
	searcher := &stubSearcher{
		semantic: []domain.ScoredChunk{
			{Chunk: chunk("a", "dividend yield discussion", now), SemanticScore: 0.4},
			{Chunk: chunk("b", "dividend yield discussion", now), SemanticScore: 0.6},
			{Chunk: chunk("c", "no matching terms here", now), SemanticScore: 0.6},
		},
	}

	r := New(searcher, &stubEmbedder{}, 0, 0)
	results, err := r.Search(context.Background(), "dividend yield", 10)
	require.NoError(t, err)

	byID := map[string]domain.ScoredChunk{}
	for _, sc := range results {
		byID[sc.Chunk.ChunkID] = sc
	}

	// Same lexical score, higher semantic → higher combined.
	assert.Greater(t, byID["b"].Score, byID["a"].Score)
	// Same semantic score, higher lexical → higher combined.
	assert.Greater(t, byID["b"].Score, byID["c"].Score)
}

func TestSearchTiesBreakByRecency(t *testing.T) {
	older := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	searcher := &stubSearcher{
		semantic: []domain.ScoredChunk{
			{Chunk: chunk("old", "identical text", older), SemanticScore: 0.5},
			{Chunk: chunk("new", "identical text", newer), SemanticScore: 0.5},
		},
	}

	r := New(searcher, &stubEmbedder{}, 0, 0)
	results, err := r.Search(context.Background(), "something else entirely", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "new", results[0].Chunk.ChunkID)
	assert.Equal(t, "old", results[1].Chunk.ChunkID)
}

func TestSearchCandidateLimitClamped(t *testing.T) {
	searcher := &stubSearcher{}
	r := New(searcher, &stubEmbedder{}, 0, 0)

	_, err := r.Search(context.Background(), "query words here", 2)
	require.NoError(t, err)
	assert.Equal(t, minCandidates, searcher.semanticLimit)

	_, err = r.Search(context.Background(), "query words here", 100)
	require.NoError(t, err)
	assert.Equal(t, maxCandidates, searcher.semanticLimit)
}

func TestSearchTruncatesToTopK(t *testing.T) {
	now := time.Now().UTC()
	var semantic []domain.ScoredChunk
	for i := 0; i < 30; i++ {
		semantic = append(semantic, domain.ScoredChunk{
			Chunk:         chunk(string(rune('a'+i)), "text", now),
			SemanticScore: float32(30-i) / 30,
		})
	}
	searcher := &stubSearcher{semantic: semantic}

	r := New(searcher, &stubEmbedder{}, 0, 0)
	results, err := r.Search(context.Background(), "irrelevant filler query", 5)
	require.NoError(t, err)
	assert.Len(t, results, 5)
}

func TestSearchEmptyQuery(t *testing.T) {
	r := New(&stubSearcher{}, &stubEmbedder{}, 0, 0)
	_, err := r.Search(context.Background(), "   ", 10)
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
}

func TestSearchEmbeddingFailureFallsBackToLexical(t *testing.T) {
	now := time.Now().UTC()
	searcher := &stubSearcher{
		lexical: []domain.Chunk{chunk("lex", "nvidia guidance beat", now)},
	}

	r := New(searcher, &stubEmbedder{err: errors.New("provider down")}, 0, 0)
	results, err := r.Search(context.Background(), "nvidia guidance", 10)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "lex", results[0].Chunk.ChunkID)
	assert.Greater(t, results[0].Score, float32(0))
}

func TestQueryTerms(t *testing.T) {
	terms := queryTerms("Will TSLA's deliveries beat the market this quarter?")
	assert.Equal(t, []string{"tsla", "deliveries", "beat", "market", "quarter"}, terms)

	assert.Empty(t, queryTerms("is it of an"))
}
