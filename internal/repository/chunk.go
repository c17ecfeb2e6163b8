package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/factfin-ai/factfin/internal/domain"
)

// ChunkRepository handles persistence of evidence chunks and their embeddings.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// Upsert inserts chunks, skipping any whose content hash is already stored.
// Returns the number of rows actually inserted.
func (r *ChunkRepository) Upsert(ctx context.Context, chunks []domain.Chunk) (int, error) {
	inserted := 0
	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		var embedding *pgvector.Vector
		if len(c.Embedding) > 0 {
			vec := pgvector.NewVector(c.Embedding)
			embedding = &vec
		}

		cmdTag, err := r.db.Exec(ctx,
			`INSERT INTO chunks
				(chunk_id, content, url, source, doc_type, symbol, published_at, embedding, created_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (chunk_id) DO NOTHING`,
			c.ChunkID,
			c.Text,
			c.URL,
			c.Source,
			c.Type,
			c.Symbol,
			nullableTime(c.Date),
			embedding,
			createdAt,
		)
		if err != nil {
			return inserted, err
		}
		inserted += int(cmdTag.RowsAffected())
	}

	return inserted, nil
}

// GetByID returns a single chunk by its content hash.
func (r *ChunkRepository) GetByID(ctx context.Context, chunkID string) (*domain.Chunk, error) {
	row := r.db.QueryRow(ctx,
		`SELECT chunk_id, content, url, source, doc_type, symbol, published_at, embedding, created_at
		 FROM chunks WHERE chunk_id = $1`,
		chunkID,
	)

	chunk, err := scanChunk(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChunkNotFound
		}
		return nil, err
	}
	return chunk, nil
}

// SearchSemantic returns the chunks nearest to the query embedding by cosine
// distance, scored into (0, 1]. Chunks without embeddings are excluded.
func (r *ChunkRepository) SearchSemantic(ctx context.Context, embedding []float32, limit int) ([]domain.ScoredChunk, error) {
	if limit <= 0 {
		limit = 20
	}

	vec := pgvector.NewVector(embedding)

	rows, err := r.db.Query(ctx,
		`SELECT chunk_id, content, url, source, doc_type, symbol, published_at, embedding, created_at,
		        1.0 / (1.0 + (embedding <=> $1)) AS score
		 FROM chunks
		 WHERE embedding IS NOT NULL
		 ORDER BY score DESC
		 LIMIT $2`,
		vec, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.ScoredChunk
	for rows.Next() {
		var (
			c         domain.Chunk
			emb       pgvector.Vector
			published *time.Time
			score     float64
		)
		if err := rows.Scan(&c.ChunkID, &c.Text, &c.URL, &c.Source, &c.Type, &c.Symbol, &published, &emb, &c.CreatedAt, &score); err != nil {
			return nil, err
		}
		c.Embedding = emb.Slice()
		if published != nil {
			c.Date = *published
		}
		results = append(results, domain.ScoredChunk{Chunk: c, SemanticScore: float32(score)})
	}

	return results, rows.Err()
}

// SearchLexical returns chunks whose content matches any of the given terms,
// newest first. Used as a keyword shortlist alongside the semantic candidates.
func (r *ChunkRepository) SearchLexical(ctx context.Context, terms []string, limit int) ([]domain.Chunk, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	patterns := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		patterns = append(patterns, "%"+t+"%")
	}
	if len(patterns) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT chunk_id, content, url, source, doc_type, symbol, published_at, embedding, created_at
		 FROM chunks
		 WHERE content ILIKE ANY($1)
		 ORDER BY published_at DESC NULLS LAST, created_at DESC
		 LIMIT $2`,
		patterns, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	return chunks, rows.Err()
}

// UpdateEmbedding sets the embedding for a chunk that was stored without one.
func (r *ChunkRepository) UpdateEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE chunks SET embedding = $1 WHERE chunk_id = $2`,
		pgvector.NewVector(embedding), chunkID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

// Stats summarizes the index contents.
type Stats struct {
	TotalChunks       int64 `json:"total_chunks"`
	MissingEmbeddings int64 `json:"missing_embeddings"`
	PendingBackfills  int64 `json:"pending_backfills"`
}

// Count returns index-level statistics.
func (r *ChunkRepository) Count(ctx context.Context) (*Stats, error) {
	var stats Stats
	err := r.db.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM chunks),
			(SELECT COUNT(*) FROM chunks WHERE embedding IS NULL),
			(SELECT COUNT(*) FROM backfill_jobs WHERE status = 'pending')`,
	).Scan(&stats.TotalChunks, &stats.MissingEmbeddings, &stats.PendingBackfills)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChunk(row rowScanner) (*domain.Chunk, error) {
	var (
		c         domain.Chunk
		published *time.Time
		embedding *pgvector.Vector
	)
	if err := row.Scan(&c.ChunkID, &c.Text, &c.URL, &c.Source, &c.Type, &c.Symbol, &published, &embedding, &c.CreatedAt); err != nil {
		return nil, err
	}
	if published != nil {
		c.Date = *published
	}
	if embedding != nil {
		c.Embedding = embedding.Slice()
	}
	return &c, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
