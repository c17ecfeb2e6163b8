package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/factfin-ai/factfin/internal/domain"
)

var ErrBackfillJobNotFound = errors.New("backfill job not found")

type BackfillJobRepository struct {
	db dbtx
}

func NewBackfillJobRepository(pool *pgxpool.Pool) *BackfillJobRepository {
	return &BackfillJobRepository{db: pool}
}

func NewBackfillJobRepositoryWithTx(tx pgx.Tx) *BackfillJobRepository {
	return &BackfillJobRepository{db: tx}
}

func (r *BackfillJobRepository) Create(ctx context.Context, job *domain.BackfillJob) error {
	if err := domain.ValidateBackfillJob(job); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO backfill_jobs (id, chunk_id, status, retries, error, created_at, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (chunk_id) DO NOTHING`,
		job.ID, job.ChunkID, job.Status, job.Retries, job.Error, job.CreatedAt, job.ProcessedAt,
	)
	return err
}

func (r *BackfillJobRepository) GetByID(ctx context.Context, id string) (*domain.BackfillJob, error) {
	var job domain.BackfillJob
	var errMsg pgtype.Text
	err := r.db.QueryRow(ctx,
		`SELECT id, chunk_id, status, retries, error, created_at, processed_at
		 FROM backfill_jobs WHERE id = $1`,
		id,
	).Scan(&job.ID, &job.ChunkID, &job.Status, &job.Retries, &errMsg, &job.CreatedAt, &job.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBackfillJobNotFound
		}
		return nil, err
	}
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	return &job, nil
}

// ClaimPending atomically marks up to limit pending jobs as processing and
// returns them. Concurrent workers never claim the same job.
func (r *BackfillJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.BackfillJob, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM backfill_jobs
			 WHERE status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE backfill_jobs
		 SET status = $3,
		     error = NULL,
		     processed_at = NULL
		 FROM cte
		 WHERE backfill_jobs.id = cte.id
		 RETURNING backfill_jobs.id, backfill_jobs.chunk_id, backfill_jobs.status,
		           backfill_jobs.retries, backfill_jobs.error, backfill_jobs.created_at, backfill_jobs.processed_at`,
		domain.BackfillJobStatusPending, limit, domain.BackfillJobStatusProcessing,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.BackfillJob
	for rows.Next() {
		var job domain.BackfillJob
		var errMsg pgtype.Text
		if err := rows.Scan(&job.ID, &job.ChunkID, &job.Status, &job.Retries, &errMsg, &job.CreatedAt, &job.ProcessedAt); err != nil {
			return nil, err
		}
		if errMsg.Valid {
			job.Error = errMsg.String
		}
		jobs = append(jobs, &job)
	}

	return jobs, rows.Err()
}

func (r *BackfillJobRepository) UpdateStatus(ctx context.Context, id string, status domain.BackfillJobStatus, errMsg string) error {
	var processedAt *time.Time
	if status == domain.BackfillJobStatusCompleted || status == domain.BackfillJobStatusFailed {
		now := time.Now().UTC()
		processedAt = &now
	}

	var errPtr *string
	if errMsg != "" {
		errPtr = &errMsg
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE backfill_jobs SET status = $1, error = $2, processed_at = $3 WHERE id = $4`,
		status, errPtr, processedAt, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrBackfillJobNotFound
	}
	return nil
}

func (r *BackfillJobRepository) IncrementRetries(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE backfill_jobs SET retries = retries + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrBackfillJobNotFound
	}
	return nil
}
