// Package pipeline orchestrates one verification run from raw query to
// verified verdict.
package pipeline

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"github.com/factfin-ai/factfin/internal/aggregator"
	"github.com/factfin-ai/factfin/internal/domain"
	"github.com/factfin-ai/factfin/internal/generator"
	"github.com/factfin-ai/factfin/internal/telemetry"
)

// DefaultTopK is how many chunks are retrieved for generation.
const DefaultTopK = 10

// EntityResolver maps a query to a known instrument, or nil for none.
type EntityResolver interface {
	Resolve(ctx context.Context, query string) (*domain.Entity, error)
}

// SourceAggregator collects evidence for a query.
type SourceAggregator interface {
	Fetch(ctx context.Context, query string, entity *domain.Entity) (*aggregator.Evidence, error)
}

// Ingester writes fetched documents into the chunk index.
type Ingester interface {
	Ingest(ctx context.Context, docs []domain.RawDocument) ([]domain.Chunk, error)
}

// Searcher retrieves ranked chunks for a query.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) (domain.RetrievalResult, error)
}

// AnswerGenerator produces the structured verdict.
type AnswerGenerator interface {
	Generate(ctx context.Context, in generator.GenerateInput) (*domain.Verdict, error)
}

// AnswerVerifier fact-checks a verdict against its evidence.
type AnswerVerifier interface {
	Verify(ctx context.Context, verdict *domain.Verdict, result domain.RetrievalResult) (*domain.Verdict, error)
}

// Archiver stores the raw evidence for a run. Optional.
type Archiver interface {
	Put(ctx context.Context, runID string, evidence any) error
}

// RunInput is one verification request.
type RunInput struct {
	Query   string
	History []generator.Turn
}

// Pipeline wires the stages together. Stage order is fixed; each run gets a
// uuid and a span per stage.
type Pipeline struct {
	resolver   EntityResolver
	aggregator SourceAggregator
	indexer    Ingester
	retriever  Searcher
	generator  AnswerGenerator
	verifier   AnswerVerifier
	archive    Archiver
	topK       int
}

// New creates a Pipeline. archive may be nil; topK <= 0 selects the default.
func New(
	resolver EntityResolver,
	agg SourceAggregator,
	indexer Ingester,
	retriever Searcher,
	gen AnswerGenerator,
	verifier AnswerVerifier,
	archive Archiver,
	topK int,
) *Pipeline {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Pipeline{
		resolver:   resolver,
		aggregator: agg,
		indexer:    indexer,
		retriever:  retriever,
		generator:  gen,
		verifier:   verifier,
		archive:    archive,
		topK:       topK,
	}
}

// Run executes one verification: resolve, aggregate, archive, ingest,
// retrieve, generate, verify. An irrelevant query short-circuits to a fixed
// verdict without any generation call. Generation is the only stage whose
// failure aborts the run; everything downstream of a degraded stage works
// with what it has.
func (p *Pipeline) Run(ctx context.Context, in RunInput) (*domain.Verdict, error) {
	if in.Query == "" {
		return nil, domain.ErrEmptyQuery
	}

	runID := uuid.NewString()
	attrs := telemetry.SpanAttributes{RunID: runID, Operation: "verify"}

	entity := p.resolve(ctx, runID, attrs, in.Query)
	if entity != nil {
		attrs.Symbol = entity.Symbol
	}

	evidence, err := p.aggregate(ctx, runID, attrs, in.Query, entity)
	if err != nil {
		if errors.Is(err, domain.ErrIrrelevantQuery) {
			log.Printf("pipeline: irrelevant query, skipping generation (run: %s)", runID)
			return irrelevantVerdict(), nil
		}
		return nil, err
	}

	p.archiveEvidence(ctx, runID, attrs, evidence)
	p.ingest(ctx, runID, attrs, evidence.Documents)
	result := p.retrieve(ctx, runID, attrs, in.Query)

	verdict, err := p.generate(ctx, attrs, generator.GenerateInput{
		Query:   in.Query,
		Entity:  entity,
		Facts:   evidence.Facts,
		Result:  result,
		History: in.History,
	})
	if err != nil {
		return nil, err
	}

	verdict, err = p.verify(ctx, attrs, verdict, result)
	if err != nil {
		return nil, err
	}

	verdict.ProviderFailures = evidence.ProviderFailures
	return verdict, nil
}

func (p *Pipeline) resolve(ctx context.Context, runID string, attrs telemetry.SpanAttributes, query string) *domain.Entity {
	attrs.Stage = "resolve"
	spanCtx, span := telemetry.StartSpan(ctx, "pipeline.resolve", attrs)
	defer span.End()

	entity, err := p.resolver.Resolve(spanCtx, query)
	if err != nil {
		// Resolution never blocks a run; an unresolved query follows the
		// no-entity path.
		log.Printf("pipeline: resolution failed, continuing without entity (run: %s): %v", runID, err)
		span.SetError(err)
		return nil
	}
	return entity
}

func (p *Pipeline) aggregate(ctx context.Context, runID string, attrs telemetry.SpanAttributes, query string, entity *domain.Entity) (*aggregator.Evidence, error) {
	attrs.Stage = "aggregate"
	spanCtx, span := telemetry.StartSpan(ctx, "pipeline.aggregate", attrs)
	defer span.End()

	evidence, err := p.aggregator.Fetch(spanCtx, query, entity)
	if err != nil {
		if !errors.Is(err, domain.ErrIrrelevantQuery) {
			span.SetError(err)
		}
		return nil, err
	}

	if evidence.ProviderFailures > 0 {
		log.Printf("pipeline: %d provider(s) failed during aggregation (run: %s)", evidence.ProviderFailures, runID)
	}
	return evidence, nil
}

func (p *Pipeline) archiveEvidence(ctx context.Context, runID string, attrs telemetry.SpanAttributes, evidence *aggregator.Evidence) {
	if p.archive == nil {
		return
	}

	attrs.Stage = "archive"
	spanCtx, span := telemetry.StartSpan(ctx, "pipeline.archive", attrs)
	defer span.End()

	if err := p.archive.Put(spanCtx, runID, evidence); err != nil {
		// The archive is an audit trail; losing an entry never fails a run.
		log.Printf("pipeline: evidence archive failed (run: %s): %v", runID, err)
		span.SetError(err)
	}
}

func (p *Pipeline) ingest(ctx context.Context, runID string, attrs telemetry.SpanAttributes, docs []domain.RawDocument) {
	attrs.Stage = "ingest"
	spanCtx, span := telemetry.StartSpan(ctx, "pipeline.ingest", attrs)
	defer span.End()

	if _, err := p.indexer.Ingest(spanCtx, docs); err != nil {
		// Upserts are idempotent; a partial ingest leaves the index valid
		// and retrieval still works over older chunks.
		log.Printf("pipeline: ingest failed, retrieving over existing index (run: %s): %v", runID, err)
		span.SetError(err)
	}
}

func (p *Pipeline) retrieve(ctx context.Context, runID string, attrs telemetry.SpanAttributes, query string) domain.RetrievalResult {
	attrs.Stage = "retrieve"
	spanCtx, span := telemetry.StartSpan(ctx, "pipeline.retrieve", attrs)
	defer span.End()

	result, err := p.retriever.Search(spanCtx, query, p.topK)
	if err != nil {
		log.Printf("pipeline: retrieval failed, generating from structured facts only (run: %s): %v", runID, err)
		span.SetError(err)
		return nil
	}
	return result
}

func (p *Pipeline) generate(ctx context.Context, attrs telemetry.SpanAttributes, in generator.GenerateInput) (*domain.Verdict, error) {
	attrs.Stage = "generate"
	spanCtx, span := telemetry.StartSpan(ctx, "pipeline.generate", attrs)
	defer span.End()

	verdict, err := p.generator.Generate(spanCtx, in)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return verdict, nil
}

func (p *Pipeline) verify(ctx context.Context, attrs telemetry.SpanAttributes, verdict *domain.Verdict, result domain.RetrievalResult) (*domain.Verdict, error) {
	attrs.Stage = "verify"
	spanCtx, span := telemetry.StartSpan(ctx, "pipeline.verify", attrs)
	defer span.End()

	verified, err := p.verifier.Verify(spanCtx, verdict, result)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return verified, nil
}

// irrelevantVerdict is the fixed response for queries that fail the
// financial-relevance filter. No model call is made for these.
func irrelevantVerdict() *domain.Verdict {
	return &domain.Verdict{
		AnswerMarkdown: "This query is not financially relevant, so no verification was performed.",
		SentimentScore: 50,
		SentimentLabel: domain.SentimentNeutral,
		IsAccurate:     true,
		Sources:        []domain.Citation{},
	}
}
