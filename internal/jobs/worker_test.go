package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jerry-assistant/ragcore/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockJobProcessor struct {
	mock.Mock
	calls atomic.Int32
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	m.calls.Add(1)
	args := m.Called(ctx)
	return args.Error(0)
}

func TestWorker_StartStop(t *testing.T) {
	processor := new(MockJobProcessor)
	processor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(processor, 10*time.Millisecond, slog.New(slog.DiscardHandler))

	go worker.Start(context.Background())

	// Let the ticker fire a few times before stopping.
	time.Sleep(50 * time.Millisecond)
	worker.Stop()

	assert.GreaterOrEqual(t, processor.calls.Load(), int32(1))
}

func TestWorker_ContextCancellation(t *testing.T) {
	processor := new(MockJobProcessor)
	processor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(processor, 10*time.Millisecond, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}

func TestWorker_ContinuesAfterProcessorError(t *testing.T) {
	processor := new(MockJobProcessor)
	processor.On("ProcessJobs", mock.Anything).Return(errors.New("transient failure"))

	worker := NewWorker(processor, 10*time.Millisecond, slog.New(slog.DiscardHandler))

	go worker.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	worker.Stop()

	// Errors are logged, not fatal: the loop keeps polling.
	assert.GreaterOrEqual(t, processor.calls.Load(), int32(2))
}

type stubOptimizer struct {
	result *cache.OptimizeResult
	err    error
}

func (s stubOptimizer) Optimize(context.Context) (*cache.OptimizeResult, error) {
	return s.result, s.err
}

func TestCacheMaintenance_ProcessJobs(t *testing.T) {
	maintenance := NewCacheMaintenance(stubOptimizer{
		result: &cache.OptimizeResult{ExpiredRemoved: 3, Evicted: 1},
	}, slog.New(slog.DiscardHandler))

	require.NoError(t, maintenance.ProcessJobs(context.Background()))
}

func TestCacheMaintenance_PropagatesError(t *testing.T) {
	maintenance := NewCacheMaintenance(stubOptimizer{
		err: errors.New("database locked"),
	}, slog.New(slog.DiscardHandler))

	err := maintenance.ProcessJobs(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to optimize cache")
}
