// Package resolver maps free-text queries to tradable symbols.
package resolver

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/factfin-ai/factfin/internal/domain"
)

const (
	// DefaultExtractionTimeout bounds the single LLM extraction call.
	DefaultExtractionTimeout = 4 * time.Second

	extractionSystemPrompt = "You identify the company or tradable asset a financial question is about. " +
		"Respond with JSON: {\"candidate\": \"<ticker or company name>\"}. " +
		"Use an empty candidate when the text names no company or asset."
)

// SymbolDirectory is the known-symbol lookup.
type SymbolDirectory interface {
	Lookup(text string) *domain.Entity
}

// ExtractionClient is the LLM capability used for the ambiguous-entity fallback.
type ExtractionClient interface {
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}

// Resolver resolves a query to an Entity or determines none applies.
type Resolver struct {
	directory SymbolDirectory
	extractor ExtractionClient
	timeout   time.Duration
}

// NewResolver creates a Resolver. extractor may be nil, in which case the
// LLM fallback is skipped.
func NewResolver(directory SymbolDirectory, extractor ExtractionClient) *Resolver {
	return NewResolverWithTimeout(directory, extractor, DefaultExtractionTimeout)
}

// NewResolverWithTimeout creates a Resolver with an explicit extraction timeout.
func NewResolverWithTimeout(directory SymbolDirectory, extractor ExtractionClient, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultExtractionTimeout
	}
	return &Resolver{
		directory: directory,
		extractor: extractor,
		timeout:   timeout,
	}
}

type extractionResponse struct {
	Candidate string `json:"candidate"`
}

// Resolve maps query text to an Entity. A nil Entity with nil error means the
// query resolved to none; extraction failures are swallowed and treated as
// unresolved, never surfaced as pipeline errors.
func (r *Resolver) Resolve(ctx context.Context, query string) (*domain.Entity, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}

	if entity := r.directory.Lookup(query); entity != nil {
		return entity, nil
	}

	if r.extractor == nil {
		return nil, nil
	}

	candidate := r.extractCandidate(ctx, query)
	if candidate == "" {
		return nil, nil
	}

	return r.directory.Lookup(candidate), nil
}

// extractCandidate issues the single short-timeout extraction call. Absence
// is a normal outcome, not an error.
func (r *Resolver) extractCandidate(ctx context.Context, query string) string {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.extractor.CompleteJSON(callCtx, extractionSystemPrompt, query)
	if err != nil {
		log.Printf("resolver: extraction call failed, treating as unresolved: %v", err)
		return ""
	}

	var resp extractionResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		log.Printf("resolver: malformed extraction output, treating as unresolved: %v", err)
		return ""
	}

	return strings.TrimSpace(resp.Candidate)
}
