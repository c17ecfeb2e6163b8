//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factfin-ai/factfin/internal/domain"
	"github.com/factfin-ai/factfin/internal/testutil"
)

func TestTxRunner_CommitsChunkAndJobTogether(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	runner := NewTxRunner(pool)
	chunk := testChunk("https://example.com/tx", "Buybacks resumed this quarter.", nil)

	err := runner.WithTx(ctx, func(repos TxRepositories) error {
		if _, err := repos.Chunks().Upsert(ctx, []domain.Chunk{chunk}); err != nil {
			return err
		}
		return repos.BackfillJobs().Create(ctx, &domain.BackfillJob{
			ID:        uuid.NewString(),
			ChunkID:   chunk.ChunkID,
			Status:    domain.BackfillJobStatusPending,
			CreatedAt: time.Now().UTC(),
		})
	})
	require.NoError(t, err)

	stored, err := NewChunkRepository(pool).GetByID(ctx, chunk.ChunkID)
	require.NoError(t, err)
	assert.Equal(t, chunk.ChunkID, stored.ChunkID)

	jobs, err := NewBackfillJobRepository(pool).ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, chunk.ChunkID, jobs[0].ChunkID)
}

func TestTxRunner_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	runner := NewTxRunner(pool)
	chunk := testChunk("https://example.com/rollback", "Guidance was withdrawn.", nil)

	err := runner.WithTx(ctx, func(repos TxRepositories) error {
		if _, err := repos.Chunks().Upsert(ctx, []domain.Chunk{chunk}); err != nil {
			return err
		}
		return errors.New("enqueue failed")
	})
	require.Error(t, err)

	_, err = NewChunkRepository(pool).GetByID(ctx, chunk.ChunkID)
	assert.ErrorIs(t, err, domain.ErrChunkNotFound)
}
