package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner counts cycles and signals each one on a channel.
type fakeRunner struct {
	cycles atomic.Int64
	err    error
	ran    chan struct{}
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{ran: make(chan struct{}, 16)}
}

func (f *fakeRunner) RunCycle(_ context.Context) error {
	f.cycles.Add(1)
	select {
	case f.ran <- struct{}{}:
	default:
	}
	return f.err
}

func waitForCycle(t *testing.T, runner *fakeRunner) {
	t.Helper()
	select {
	case <-runner.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a refresh cycle")
	}
}

func TestSchedulerRunsInitialCycleImmediately(t *testing.T) {
	runner := newFakeRunner()
	s := New(runner, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	waitForCycle(t, runner)
	assert.Equal(t, int64(1), runner.cycles.Load())
	assert.True(t, s.IsRunning())
	require.NotNil(t, s.LastRefreshAt())

	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, s.IsRunning())
}

func TestSchedulerRunsOnInterval(t *testing.T) {
	runner := newFakeRunner()
	s := New(runner, 20*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)

	// Initial cycle plus at least two timer-driven cycles.
	waitForCycle(t, runner)
	waitForCycle(t, runner)
	waitForCycle(t, runner)
	assert.GreaterOrEqual(t, runner.cycles.Load(), int64(3))
}

func TestTriggerRefreshRunsExtraCycle(t *testing.T) {
	runner := newFakeRunner()
	s := New(runner, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)

	waitForCycle(t, runner)
	require.Eventually(t, func() bool {
		return !s.NextRefreshAt().IsZero()
	}, 2*time.Second, 5*time.Millisecond)
	next := s.NextRefreshAt()

	s.TriggerRefresh()
	waitForCycle(t, runner)

	assert.Equal(t, int64(2), runner.cycles.Load())
	// An explicit refresh does not reschedule the next timed one.
	assert.Equal(t, next, s.NextRefreshAt())
}

func TestTriggerRefreshCoalescesWhenNotRunning(t *testing.T) {
	s := New(newFakeRunner(), time.Hour, zerolog.Nop())

	// Both calls must return immediately even without a running loop.
	s.TriggerRefresh()
	s.TriggerRefresh()
}

func TestSchedulerContinuesAfterFailedCycle(t *testing.T) {
	runner := newFakeRunner()
	runner.err = errors.New("refresh failed")
	s := New(runner, 20*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)

	waitForCycle(t, runner)
	waitForCycle(t, runner)
	assert.GreaterOrEqual(t, runner.cycles.Load(), int64(2))
	assert.True(t, s.IsRunning())
}
