package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/factfin-ai/factfin/internal/domain"
	"github.com/factfin-ai/factfin/internal/symbols"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockExtractionClient is a mock implementation of ExtractionClient
type MockExtractionClient struct {
	mock.Mock
}

func (m *MockExtractionClient) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	args := m.Called(ctx, system, user)
	return args.String(0), args.Error(1)
}

func newDirectory(t *testing.T) *symbols.Directory {
	t.Helper()
	d, err := symbols.NewDirectory()
	require.NoError(t, err)
	return d
}

func TestResolve_DirectLookup(t *testing.T) {
	extractor := new(MockExtractionClient)
	r := NewResolver(newDirectory(t), extractor)

	entity, err := r.Resolve(context.Background(), "Is Tesla stock a buy right now?")
	require.NoError(t, err)
	require.NotNil(t, entity)
	assert.Equal(t, "TSLA", entity.Symbol)

	// Direct hits must not spend an LLM call.
	extractor.AssertNotCalled(t, "CompleteJSON", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolve_ExtractionFallback(t *testing.T) {
	extractor := new(MockExtractionClient)
	extractor.On("CompleteJSON", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"candidate": "Apple"}`, nil).Once()

	r := NewResolver(newDirectory(t), extractor)

	entity, err := r.Resolve(context.Background(), "should I hold the iphone maker through earnings?")
	require.NoError(t, err)
	require.NotNil(t, entity)
	assert.Equal(t, "AAPL", entity.Symbol)
	extractor.AssertExpectations(t)
}

func TestResolve_ExtractionReturnsNoCandidate(t *testing.T) {
	extractor := new(MockExtractionClient)
	extractor.On("CompleteJSON", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"candidate": ""}`, nil).Once()

	r := NewResolver(newDirectory(t), extractor)

	entity, err := r.Resolve(context.Background(), "will rates fall this year?")
	require.NoError(t, err)
	assert.Nil(t, entity)
}

func TestResolve_ExtractionFailureSwallowed(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
	}{
		{"call error", "", errors.New("timeout")},
		{"malformed output", `not json at all`, nil},
		{"unknown candidate", `{"candidate": "Some Obscure Private Co"}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := new(MockExtractionClient)
			extractor.On("CompleteJSON", mock.Anything, mock.Anything, mock.Anything).
				Return(tt.response, tt.err).Once()

			r := NewResolver(newDirectory(t), extractor)

			entity, err := r.Resolve(context.Background(), "opaque question about some company")
			require.NoError(t, err, "extraction failures must never surface as pipeline errors")
			assert.Nil(t, entity)
		})
	}
}

func TestResolve_ExtractionTimeout(t *testing.T) {
	extractor := new(MockExtractionClient)
	extractor.On("CompleteJSON", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).
		Return("", context.DeadlineExceeded).Once()

	r := NewResolverWithTimeout(newDirectory(t), extractor, 10*time.Millisecond)

	start := time.Now()
	entity, err := r.Resolve(context.Background(), "opaque question about some company")
	require.NoError(t, err)
	assert.Nil(t, entity)
	assert.Less(t, time.Since(start), time.Second)
}

func TestResolve_EmptyQuery(t *testing.T) {
	r := NewResolver(newDirectory(t), nil)

	_, err := r.Resolve(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
}

func TestResolve_NilExtractor(t *testing.T) {
	r := NewResolver(newDirectory(t), nil)

	entity, err := r.Resolve(context.Background(), "some unresolvable text")
	require.NoError(t, err)
	assert.Nil(t, entity)
}
