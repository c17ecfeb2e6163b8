package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/factfin-ai/factfin/internal/domain"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockBackfillJobRepository is a mock implementation of BackfillJobRepository
type MockBackfillJobRepository struct {
	mock.Mock
}

func (m *MockBackfillJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.BackfillJob, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.BackfillJob), args.Error(1)
}

func (m *MockBackfillJobRepository) UpdateStatus(ctx context.Context, id string, status domain.BackfillJobStatus, errMsg string) error {
	args := m.Called(ctx, id, status, errMsg)
	return args.Error(0)
}

func (m *MockBackfillJobRepository) IncrementRetries(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockChunkStore is a mock implementation of ChunkStore
type MockChunkStore struct {
	mock.Mock
}

func (m *MockChunkStore) GetByID(ctx context.Context, chunkID string) (*domain.Chunk, error) {
	args := m.Called(ctx, chunkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chunk), args.Error(1)
}

func (m *MockChunkStore) UpdateEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	args := m.Called(ctx, chunkID, embedding)
	return args.Error(0)
}

// MockEmbedder is a mock implementation of Embedder
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// TestWorker_StartStop tests the worker start and stop functionality
func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(250 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestWorker_ContextCancellation tests worker stops on context cancellation
func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(150 * time.Millisecond)

	cancel()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestBackfillWorker_ProcessJobs_NoPendingJobs tests when there are no pending jobs
func TestBackfillWorker_ProcessJobs_NoPendingJobs(t *testing.T) {
	mockRepo := new(MockBackfillJobRepository)
	mockChunks := new(MockChunkStore)
	mockEmbedder := new(MockEmbedder)

	mockRepo.On("ClaimPending", mock.Anything, claimBatchSize).Return([]*domain.BackfillJob{}, nil)

	worker := NewBackfillWorker(mockRepo, mockChunks, mockEmbedder)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockEmbedder.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
}

// TestBackfillWorker_ProcessJobs_Success tests successful job processing
func TestBackfillWorker_ProcessJobs_Success(t *testing.T) {
	mockRepo := new(MockBackfillJobRepository)
	mockChunks := new(MockChunkStore)
	mockEmbedder := new(MockEmbedder)

	job := &domain.BackfillJob{
		ID:      "job-1",
		ChunkID: "chunk-1",
		Status:  domain.BackfillJobStatusProcessing,
		Retries: 0,
	}
	chunk := &domain.Chunk{ChunkID: "chunk-1", Text: "chunk text"}

	mockRepo.On("ClaimPending", mock.Anything, claimBatchSize).Return([]*domain.BackfillJob{job}, nil)
	mockChunks.On("GetByID", mock.Anything, "chunk-1").Return(chunk, nil)
	mockEmbedder.On("GenerateEmbedding", mock.Anything, "chunk text").Return([]float32{0.1, 0.2}, nil)
	mockChunks.On("UpdateEmbedding", mock.Anything, "chunk-1", []float32{0.1, 0.2}).Return(nil)
	mockRepo.On("UpdateStatus", mock.Anything, "job-1", domain.BackfillJobStatusCompleted, "").Return(nil)

	worker := NewBackfillWorker(mockRepo, mockChunks, mockEmbedder)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockChunks.AssertExpectations(t)
	mockEmbedder.AssertExpectations(t)
}

// TestBackfillWorker_ProcessJobs_FailureWithRetry tests job failure with retry
func TestBackfillWorker_ProcessJobs_FailureWithRetry(t *testing.T) {
	mockRepo := new(MockBackfillJobRepository)
	mockChunks := new(MockChunkStore)
	mockEmbedder := new(MockEmbedder)

	job := &domain.BackfillJob{
		ID:      "job-1",
		ChunkID: "chunk-1",
		Status:  domain.BackfillJobStatusProcessing,
		Retries: 0,
	}
	chunk := &domain.Chunk{ChunkID: "chunk-1", Text: "chunk text"}

	mockRepo.On("ClaimPending", mock.Anything, claimBatchSize).Return([]*domain.BackfillJob{job}, nil)
	mockChunks.On("GetByID", mock.Anything, "chunk-1").Return(chunk, nil)
	mockEmbedder.On("GenerateEmbedding", mock.Anything, "chunk text").Return(nil, errors.New("embedding failed"))
	mockRepo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
	mockRepo.On("UpdateStatus", mock.Anything, "job-1", domain.BackfillJobStatusPending, mock.MatchedBy(func(msg string) bool {
		return msg != ""
	})).Return(nil)

	worker := NewBackfillWorker(mockRepo, mockChunks, mockEmbedder)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockEmbedder.AssertExpectations(t)
}

// TestBackfillWorker_ProcessJobs_MaxRetriesExceeded tests job failure after max retries
func TestBackfillWorker_ProcessJobs_MaxRetriesExceeded(t *testing.T) {
	mockRepo := new(MockBackfillJobRepository)
	mockChunks := new(MockChunkStore)
	mockEmbedder := new(MockEmbedder)

	job := &domain.BackfillJob{
		ID:      "job-1",
		ChunkID: "chunk-1",
		Status:  domain.BackfillJobStatusProcessing,
		Retries: 2, // Already retried twice
	}

	mockRepo.On("ClaimPending", mock.Anything, claimBatchSize).Return([]*domain.BackfillJob{job}, nil)
	mockChunks.On("GetByID", mock.Anything, "chunk-1").Return(nil, errors.New("chunk missing"))
	mockRepo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
	mockRepo.On("UpdateStatus", mock.Anything, "job-1", domain.BackfillJobStatusFailed, mock.MatchedBy(func(msg string) bool {
		return msg != ""
	})).Return(nil)

	worker := NewBackfillWorker(mockRepo, mockChunks, mockEmbedder)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

// TestBackfillWorker_ProcessJobs_MultipleJobs tests processing multiple jobs
func TestBackfillWorker_ProcessJobs_MultipleJobs(t *testing.T) {
	mockRepo := new(MockBackfillJobRepository)
	mockChunks := new(MockChunkStore)
	mockEmbedder := new(MockEmbedder)

	jobs := []*domain.BackfillJob{
		{ID: "job-1", ChunkID: "chunk-1", Status: domain.BackfillJobStatusProcessing},
		{ID: "job-2", ChunkID: "chunk-2", Status: domain.BackfillJobStatusProcessing},
	}

	mockRepo.On("ClaimPending", mock.Anything, claimBatchSize).Return(jobs, nil)

	mockChunks.On("GetByID", mock.Anything, "chunk-1").Return(&domain.Chunk{ChunkID: "chunk-1", Text: "one"}, nil)
	mockEmbedder.On("GenerateEmbedding", mock.Anything, "one").Return([]float32{0.1}, nil)
	mockChunks.On("UpdateEmbedding", mock.Anything, "chunk-1", []float32{0.1}).Return(nil)
	mockRepo.On("UpdateStatus", mock.Anything, "job-1", domain.BackfillJobStatusCompleted, "").Return(nil)

	mockChunks.On("GetByID", mock.Anything, "chunk-2").Return(&domain.Chunk{ChunkID: "chunk-2", Text: "two"}, nil)
	mockEmbedder.On("GenerateEmbedding", mock.Anything, "two").Return([]float32{0.2}, nil)
	mockChunks.On("UpdateEmbedding", mock.Anything, "chunk-2", []float32{0.2}).Return(nil)
	mockRepo.On("UpdateStatus", mock.Anything, "job-2", domain.BackfillJobStatusCompleted, "").Return(nil)

	worker := NewBackfillWorker(mockRepo, mockChunks, mockEmbedder)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockChunks.AssertExpectations(t)
	mockEmbedder.AssertExpectations(t)
}

// TestBackfillWorker_ProcessJobs_RepositoryError tests repository error handling
func TestBackfillWorker_ProcessJobs_RepositoryError(t *testing.T) {
	mockRepo := new(MockBackfillJobRepository)
	mockChunks := new(MockChunkStore)
	mockEmbedder := new(MockEmbedder)

	mockRepo.On("ClaimPending", mock.Anything, claimBatchSize).Return(nil, errors.New("database error"))

	worker := NewBackfillWorker(mockRepo, mockChunks, mockEmbedder)
	err := worker.ProcessJobs(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to claim pending jobs")
	mockRepo.AssertExpectations(t)
}
