package domain

import (
	"fmt"
	"time"
)

// BackfillJobStatus represents the status of an embedding backfill job
type BackfillJobStatus string

const (
	BackfillJobStatusPending    BackfillJobStatus = "pending"
	BackfillJobStatusProcessing BackfillJobStatus = "processing"
	BackfillJobStatusCompleted  BackfillJobStatus = "completed"
	BackfillJobStatusFailed     BackfillJobStatus = "failed"
)

// BackfillJob represents an async embedding backfill for a chunk whose
// embedding computation failed during ingestion.
type BackfillJob struct {
	ID          string
	ChunkID     string
	Status      BackfillJobStatus
	Retries     int32
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// ValidateBackfillJob validates a BackfillJob instance
func ValidateBackfillJob(j *BackfillJob) error {
	if j == nil || j.ID == "" || j.ChunkID == "" {
		return ErrMissingRequiredField
	}
	if !isValidBackfillJobStatus(j.Status) {
		return ErrInvalidBackfillStatus
	}
	if j.Retries < 0 {
		return fmt.Errorf("backfill job Retries cannot be negative")
	}
	return nil
}

func isValidBackfillJobStatus(s BackfillJobStatus) bool {
	switch s {
	case BackfillJobStatusPending, BackfillJobStatusProcessing,
		BackfillJobStatusCompleted, BackfillJobStatusFailed:
		return true
	}
	return false
}
