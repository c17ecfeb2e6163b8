package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateBackfillJob(t *testing.T) {
	valid := &BackfillJob{ID: "job-1", ChunkID: "chunk-1", Status: BackfillJobStatusPending}
	assert.NoError(t, ValidateBackfillJob(valid))

	assert.ErrorIs(t, ValidateBackfillJob(nil), ErrMissingRequiredField)
	assert.ErrorIs(t, ValidateBackfillJob(&BackfillJob{ChunkID: "chunk-1", Status: BackfillJobStatusPending}), ErrMissingRequiredField)
	assert.ErrorIs(t, ValidateBackfillJob(&BackfillJob{ID: "job-1", Status: BackfillJobStatusPending}), ErrMissingRequiredField)
	assert.ErrorIs(t, ValidateBackfillJob(&BackfillJob{ID: "job-1", ChunkID: "chunk-1", Status: "queued"}), ErrInvalidBackfillStatus)
}
