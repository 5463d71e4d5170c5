package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"onlyjobs-backend/internal/email/domain"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type countingFetch struct {
	runs atomic.Int32
	mode atomic.Value
	err  error
}

func (c *countingFetch) Fetch(context.Context, string, domain.FetchMode) (int, error) { return 0, nil }

func (c *countingFetch) FetchAll(_ context.Context, mode domain.FetchMode, _ string) (*domain.FetchSummary, error) {
	c.runs.Add(1)
	c.mode.Store(mode)
	if c.err != nil {
		return nil, c.err
	}
	return &domain.FetchSummary{Status: "complete"}, nil
}

func TestSchedulerRunsIncrementalFetches(t *testing.T) {
	fetch := &countingFetch{}
	s := NewFetchScheduler(fetch, 5*time.Millisecond, zap.NewNop())

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return fetch.runs.Load() >= 2 }, time.Second, time.Millisecond)
	s.Stop()

	assert.Equal(t, domain.FetchIncremental, fetch.mode.Load())
	stopped := fetch.runs.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, fetch.runs.Load(), "no runs after Stop")
}

func TestSchedulerKeepsRunningAfterFailure(t *testing.T) {
	fetch := &countingFetch{err: errors.New("firestore unavailable")}
	s := NewFetchScheduler(fetch, 5*time.Millisecond, zap.NewNop())

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return fetch.runs.Load() >= 2 }, time.Second, time.Millisecond)
	s.Stop()
}

func TestSchedulerStopsWithContext(t *testing.T) {
	fetch := &countingFetch{}
	s := NewFetchScheduler(fetch, time.Hour, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	s.Start(ctx)
	cancel()

	select {
	case <-s.done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	s.Stop()
}

func TestSchedulerDisabledWithoutInterval(t *testing.T) {
	fetch := &countingFetch{}
	s := NewFetchScheduler(fetch, 0, zap.NewNop())

	s.Start(context.Background())
	s.Stop()

	assert.Zero(t, fetch.runs.Load())
}
