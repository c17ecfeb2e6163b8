// Package retriever ranks indexed chunks for a query by combining vector
// similarity with keyword overlap.
package retriever

import (
	"context"
	"log"
	"sort"
	"strings"

	"github.com/factfin-ai/factfin/internal/domain"
)

const (
	// DefaultTopK is how many chunks a search returns by default.
	DefaultTopK = 10

	// DefaultSemanticWeight scales the vector similarity component.
	DefaultSemanticWeight = 1.0

	// DefaultLexicalWeight scales the keyword overlap component.
	DefaultLexicalWeight = 0.85

	candidateMultiplier = 4
	minCandidates       = 20
	maxCandidates       = 200
)

// ChunkSearcher provides the two index shortlists.
type ChunkSearcher interface {
	SearchSemantic(ctx context.Context, embedding []float32, limit int) ([]domain.ScoredChunk, error)
	SearchLexical(ctx context.Context, terms []string, limit int) ([]domain.Chunk, error)
}

// Embedder computes the query embedding.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Retriever performs hybrid search over the chunk index. It is read-only:
// searches never mutate the index.
type Retriever struct {
	repo           ChunkSearcher
	embedder       Embedder
	semanticWeight float32
	lexicalWeight  float32
}

// New creates a Retriever. Non-positive weights select the defaults.
func New(repo ChunkSearcher, embedder Embedder, semanticWeight, lexicalWeight float64) *Retriever {
	if semanticWeight <= 0 {
		semanticWeight = DefaultSemanticWeight
	}
	if lexicalWeight <= 0 {
		lexicalWeight = DefaultLexicalWeight
	}
	return &Retriever{
		repo:           repo,
		embedder:       embedder,
		semanticWeight: float32(semanticWeight),
		lexicalWeight:  float32(lexicalWeight),
	}
}

// Search returns the topK chunks ranked by combined score. The semantic
// shortlist is oversampled, the lexical shortlist is merged in, and every
// candidate is scored on both components. Ties break toward newer documents.
func (r *Retriever) Search(ctx context.Context, query string, topK int) (domain.RetrievalResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	candidateLimit := topK * candidateMultiplier
	if candidateLimit < minCandidates {
		candidateLimit = minCandidates
	}
	if candidateLimit > maxCandidates {
		candidateLimit = maxCandidates
	}

	terms := queryTerms(query)
	pool := make(map[string]*domain.ScoredChunk)
	order := make([]string, 0, candidateLimit)

	if r.embedder != nil {
		embedding, err := r.embedder.GenerateEmbedding(ctx, query)
		if err != nil {
			// Lexical-only degradation keeps search usable while the
			// embedding provider is down.
			log.Printf("retriever: query embedding failed, lexical only: %v", err)
		} else {
			semantic, err := r.repo.SearchSemantic(ctx, embedding, candidateLimit)
			if err != nil {
				return nil, err
			}
			for i := range semantic {
				sc := semantic[i]
				if _, ok := pool[sc.Chunk.ChunkID]; !ok {
					pool[sc.Chunk.ChunkID] = &sc
					order = append(order, sc.Chunk.ChunkID)
				}
			}
		}
	}

	if len(terms) > 0 {
		lexical, err := r.repo.SearchLexical(ctx, terms, candidateLimit)
		if err != nil {
			return nil, err
		}
		for _, c := range lexical {
			if _, ok := pool[c.ChunkID]; !ok {
				pool[c.ChunkID] = &domain.ScoredChunk{Chunk: c}
				order = append(order, c.ChunkID)
			}
		}
	}

	results := make(domain.RetrievalResult, 0, len(order))
	for _, id := range order {
		sc := pool[id]
		sc.LexicalScore = overlapScore(sc.Chunk.Text, terms)
		sc.Score = r.semanticWeight*sc.SemanticScore + r.lexicalWeight*sc.LexicalScore
		results = append(results, *sc)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.Date.After(results[j].Chunk.Date)
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "was": true,
	"were": true, "will": true, "with": true, "this": true, "that": true,
	"what": true, "when": true, "how": true, "why": true, "does": true,
	"from": true, "its": true, "has": true, "have": true, "about": true,
	"going": true, "should": true, "could": true, "would": true,
}

// queryTerms tokenizes a query into lowercase terms worth matching on.
func queryTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '.' && r != '-'
	})

	terms := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".-")
		if len(f) < 3 || stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}

// overlapScore is the fraction of query terms present in the chunk text.
func overlapScore(text string, terms []string) float32 {
	if len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	matched := 0
	for _, t := range terms {
		if strings.Contains(lower, t) {
			matched++
		}
	}
	return float32(matched) / float32(len(terms))
}
