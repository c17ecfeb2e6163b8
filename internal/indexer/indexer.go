// Package indexer turns fetched documents into embedded chunks in the index.
package indexer

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/factfin-ai/factfin/internal/domain"
)

const (
	// maxBodyChars caps how much of a document body is indexed per chunk.
	maxBodyChars = 4000

	// minCutChars is the earliest point a truncation may cut at whitespace.
	minCutChars = 400
)

// ChunkStore persists chunks.
type ChunkStore interface {
	Upsert(ctx context.Context, chunks []domain.Chunk) (int, error)
}

// BackfillStore enqueues embedding backfill jobs.
type BackfillStore interface {
	Create(ctx context.Context, job *domain.BackfillJob) error
}

// Embedder computes embedding vectors for chunk text.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// TxRunner runs fn against chunk and job stores bound to one transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(chunks ChunkStore, jobs BackfillStore) error) error
}

// Indexer ingests raw documents into the chunk index. Ingestion is
// idempotent: identical content maps to the same chunk id and upserts are
// conflict-free.
type Indexer struct {
	chunks   ChunkStore
	jobs     BackfillStore
	tx       TxRunner
	embedder Embedder
}

// New creates an Indexer. embedder may be nil, in which case every chunk is
// stored without an embedding and queued for backfill. tx may be nil, in
// which case the upsert and the backfill enqueue run as separate calls.
func New(chunks ChunkStore, jobs BackfillStore, tx TxRunner, embedder Embedder) *Indexer {
	return &Indexer{chunks: chunks, jobs: jobs, tx: tx, embedder: embedder}
}

// Ingest converts each document into one chunk, embeds it, and upserts the
// batch. An embedding failure stores the chunk without a vector and enqueues
// a backfill job; it never blocks sibling documents.
func (ix *Indexer) Ingest(ctx context.Context, docs []domain.RawDocument) ([]domain.Chunk, error) {
	seen := make(map[string]bool, len(docs))
	chunks := make([]domain.Chunk, 0, len(docs))
	var missing []string

	for _, doc := range docs {
		text := buildChunkText(doc)
		if text == "" {
			continue
		}

		chunkID := domain.ChunkID(doc.URL, text)
		if seen[chunkID] {
			continue
		}
		seen[chunkID] = true

		chunk := domain.Chunk{
			ChunkID:   chunkID,
			Text:      text,
			URL:       doc.URL,
			Source:    doc.Provider,
			Type:      doc.Type,
			Symbol:    doc.Symbol,
			Date:      doc.PublishedAt,
			CreatedAt: time.Now().UTC(),
		}

		if ix.embedder != nil {
			embedding, err := ix.embedder.GenerateEmbedding(ctx, text)
			if err != nil {
				log.Printf("indexer: embedding failed for chunk %s: %v", chunkID, err)
				missing = append(missing, chunkID)
			} else {
				chunk.Embedding = embedding
			}
		} else {
			missing = append(missing, chunkID)
		}

		chunks = append(chunks, chunk)
	}

	if len(chunks) == 0 {
		return nil, nil
	}

	if err := ix.persist(ctx, chunks, missing); err != nil {
		return nil, err
	}
	return chunks, nil
}

// persist writes the chunk batch and its backfill jobs. With a TxRunner both
// land in one transaction, so a crash between them can never strand an
// embedding-less chunk without a job to heal it.
func (ix *Indexer) persist(ctx context.Context, chunks []domain.Chunk, missing []string) error {
	store := func(chunkStore ChunkStore, jobStore BackfillStore) error {
		if _, err := chunkStore.Upsert(ctx, chunks); err != nil {
			return err
		}
		if jobStore == nil {
			return nil
		}
		for _, chunkID := range missing {
			job := &domain.BackfillJob{
				ID:        uuid.NewString(),
				ChunkID:   chunkID,
				Status:    domain.BackfillJobStatusPending,
				CreatedAt: time.Now().UTC(),
			}
			if err := jobStore.Create(ctx, job); err != nil {
				return fmt.Errorf("enqueue backfill for chunk %s: %w", chunkID, err)
			}
		}
		return nil
	}

	if ix.tx != nil {
		return ix.tx.WithTx(ctx, store)
	}
	return store(ix.chunks, ix.jobs)
}

func buildChunkText(doc domain.RawDocument) string {
	title := strings.TrimSpace(doc.Title)
	body := truncateAtSpace(strings.TrimSpace(doc.Body), maxBodyChars)

	switch {
	case title == "" && body == "":
		return ""
	case title == "":
		return body
	case body == "":
		return title
	}
	return title + "\n\n" + body
}

// truncateAtSpace cuts text to at most max runes, preferring a whitespace
// boundary past minCutChars.
func truncateAtSpace(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}

	cut := max
	for i := max; i > minCutChars; i-- {
		if unicode.IsSpace(runes[i-1]) {
			cut = i - 1
			break
		}
	}
	return strings.TrimSpace(string(runes[:cut]))
}
