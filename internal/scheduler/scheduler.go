// Package scheduler provides the fixed-interval refresh loop.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Runner runs one complete refresh cycle.
type Runner interface {
	RunCycle(ctx context.Context) error
}

// Scheduler drives refresh cycles on a fixed interval and on explicit
// request. At most one cycle is in flight at a time.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   zerolog.Logger

	refreshCh chan struct{}

	mu            sync.RWMutex
	nextRefreshAt time.Time
	lastRefreshAt *time.Time
	running       bool
}

// New creates a new Scheduler.
func New(runner Runner, interval time.Duration, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		runner:    runner,
		interval:  interval,
		logger:    logger.With().Str("component", "scheduler").Logger(),
		refreshCh: make(chan struct{}, 1),
	}
}

// Start starts the scheduler and blocks until the context is cancelled.
// An initial cycle runs immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info().Dur("interval", s.interval).Msg("starting scheduler")

	s.runCycle(ctx)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()
	s.setNextRefresh(time.Now().Add(s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return ctx.Err()

		case <-timer.C:
			s.runCycle(ctx)
			timer.Reset(s.interval)
			s.setNextRefresh(time.Now().Add(s.interval))

		case <-s.refreshCh:
			s.logger.Info().Msg("explicit refresh requested")
			s.runCycle(ctx)
			// The scheduled cadence is unchanged by explicit requests.
		}
	}
}

// TriggerRefresh requests an immediate refresh cycle. A request arriving
// while one is already pending is coalesced.
func (s *Scheduler) TriggerRefresh() {
	select {
	case s.refreshCh <- struct{}{}:
	default:
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	now := time.Now()
	s.mu.Lock()
	s.lastRefreshAt = &now
	s.mu.Unlock()

	if err := s.runner.RunCycle(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error().Err(err).Msg("refresh cycle failed")
	}
}

func (s *Scheduler) setNextRefresh(t time.Time) {
	s.mu.Lock()
	s.nextRefreshAt = t
	s.mu.Unlock()
}

// NextRefreshAt returns the time of the next scheduled refresh.
func (s *Scheduler) NextRefreshAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextRefreshAt
}

// LastRefreshAt returns the time the last cycle started.
func (s *Scheduler) LastRefreshAt() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRefreshAt
}

// IsRunning returns whether the scheduler loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
