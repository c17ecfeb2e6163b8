package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/factfin-ai/factfin/internal/domain"
)

const (
	// MaxRetries is the maximum number of retries for a failed job
	MaxRetries = 3

	// claimBatchSize bounds how many jobs one poll cycle claims
	claimBatchSize = 50
)

// BackfillJobRepository defines the interface for backfill job persistence
type BackfillJobRepository interface {
	// ClaimPending atomically claims up to limit pending jobs
	ClaimPending(ctx context.Context, limit int) ([]*domain.BackfillJob, error)

	// UpdateStatus updates the status of a backfill job
	UpdateStatus(ctx context.Context, id string, status domain.BackfillJobStatus, errMsg string) error

	// IncrementRetries increments the retry count for a job
	IncrementRetries(ctx context.Context, id string) error
}

// ChunkStore provides access to chunks awaiting embeddings
type ChunkStore interface {
	GetByID(ctx context.Context, chunkID string) (*domain.Chunk, error)
	UpdateEmbedding(ctx context.Context, chunkID string, embedding []float32) error
}

// Embedder computes embedding vectors
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// BackfillWorker fills in embeddings for chunks that were ingested without
// one because the embedding call failed at ingest time.
type BackfillWorker struct {
	repo     BackfillJobRepository
	chunks   ChunkStore
	embedder Embedder
}

// NewBackfillWorker creates a new BackfillWorker instance
func NewBackfillWorker(repo BackfillJobRepository, chunks ChunkStore, embedder Embedder) *BackfillWorker {
	return &BackfillWorker{
		repo:     repo,
		chunks:   chunks,
		embedder: embedder,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *BackfillWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.ClaimPending(ctx, claimBatchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("Processing %d pending backfill jobs", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("Error processing job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (w *BackfillWorker) processJob(ctx context.Context, job *domain.BackfillJob) error {
	chunk, err := w.chunks.GetByID(ctx, job.ChunkID)
	if err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	embedding, err := w.embedder.GenerateEmbedding(ctx, chunk.Text)
	if err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.chunks.UpdateEmbedding(ctx, job.ChunkID, embedding); err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.UpdateStatus(ctx, job.ID, domain.BackfillJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	log.Printf("Job %s completed: chunk %s embedded", job.ID, job.ChunkID)
	return nil
}

// handleJobFailure handles a failed job with retry logic
func (w *BackfillWorker) handleJobFailure(ctx context.Context, job *domain.BackfillJob, jobErr error) error {
	log.Printf("Job %s failed: %v", job.ID, jobErr)

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if job.Retries+1 >= MaxRetries {
		log.Printf("Job %s exceeded max retries (%d), marking as failed", job.ID, MaxRetries)
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.repo.UpdateStatus(ctx, job.ID, domain.BackfillJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	log.Printf("Job %s will be retried (attempt %d/%d)", job.ID, job.Retries+1, MaxRetries)
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.UpdateStatus(ctx, job.ID, domain.BackfillJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}
