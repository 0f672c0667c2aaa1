// Package coordinator orchestrates refresh cycles against the Tankille
// API: authentication, station fetching with bounded retry, and snapshot
// construction.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mtoivanen/fuelwatch/internal/api"
	"github.com/mtoivanen/fuelwatch/internal/config"
	"github.com/mtoivanen/fuelwatch/internal/models"
)

const (
	// DefaultMaxRetries bounds fetch attempts within one refresh cycle.
	DefaultMaxRetries = 3
	// backoffUnit is the base of the exponential backoff (2^n units).
	backoffUnit = time.Second
)

// StationClient is the API surface the coordinator depends on.
type StationClient interface {
	HasToken() bool
	Authenticate(ctx context.Context) error
	GetStations(ctx context.Context) ([]models.Station, error)
	GetStationsByLocation(ctx context.Context, lat, lon float64, distance int) ([]models.Station, error)
	FindStationsByName(ctx context.Context, names []string) ([]models.Station, error)
}

// UpdateFailedError is the single externally visible failure signal of a
// refresh cycle. It wraps the underlying cause; callers never see raw
// transport errors.
type UpdateFailedError struct {
	Cause string
	Err   error
}

// Error implements the error interface.
func (e *UpdateFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("update failed: %s: %v", e.Cause, e.Err)
	}
	return fmt.Sprintf("update failed: %s", e.Cause)
}

// Unwrap returns the wrapped error.
func (e *UpdateFailedError) Unwrap() error {
	return e.Err
}

// Coordinator runs refresh cycles. The host scheduler guarantees at most
// one in-flight refresh per instance; the mutex only guards the filter and
// retry counter against concurrent configuration updates.
type Coordinator struct {
	client     StationClient
	logger     zerolog.Logger
	maxRetries int

	// sleep is replaced in tests to observe backoff waits.
	sleep func(ctx context.Context, d time.Duration) error

	mu         sync.Mutex
	filter     config.Filter
	retryCount int
}

// New creates a Coordinator.
func New(client StationClient, filter config.Filter, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		client:     client,
		logger:     logger.With().Str("component", "coordinator").Logger(),
		maxRetries: DefaultMaxRetries,
		sleep:      sleepContext,
		filter:     filter,
	}
}

// Filter returns the active filter configuration.
func (c *Coordinator) Filter() config.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// SetFilter replaces the filter configuration used by subsequent cycles.
func (c *Coordinator) SetFilter(filter config.Filter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = filter
}

// Refresh runs one refresh cycle and returns a station snapshot.
//
// Transient failures (timeouts, API errors) are retried in a bounded loop
// with exponential backoff; an authentication failure triggers exactly one
// re-authentication followed by one retry of the whole fetch. Every
// failure path surfaces as an UpdateFailedError. An empty fetch result is
// a successful cycle yielding an empty snapshot.
func (c *Coordinator) Refresh(ctx context.Context) (models.Snapshot, error) {
	c.mu.Lock()
	c.retryCount = 0
	filter := c.filter
	c.mu.Unlock()

	if !c.client.HasToken() {
		c.logger.Info().Msg("no access token held, authenticating")
		if err := c.client.Authenticate(ctx); err != nil {
			c.logger.Error().Err(err).Msg("authentication failed")
			return nil, &UpdateFailedError{Cause: "authentication error", Err: err}
		}
	}

	reauthenticated := false
	for {
		stations, err := fetchStations(ctx, c.client, filter)
		if err == nil {
			if len(stations) == 0 {
				// Deliberate: an empty result clears all exposed
				// sensors, e.g. a location filter matching nothing.
				c.logger.Warn().Msg("no stations returned from API")
			}
			return c.buildSnapshot(stations), nil
		}

		switch {
		case api.IsAuthError(err):
			if reauthenticated {
				c.logger.Error().Err(err).Msg("authentication failed after re-authentication")
				return nil, &UpdateFailedError{Cause: "authentication failed", Err: err}
			}
			reauthenticated = true
			c.logger.Warn().Err(err).Msg("authentication error during fetch, re-authenticating")
			if authErr := c.client.Authenticate(ctx); authErr != nil {
				c.logger.Error().Err(authErr).Msg("re-authentication failed")
				return nil, &UpdateFailedError{Cause: "authentication failed", Err: authErr}
			}

		case api.IsAPIError(err):
			c.mu.Lock()
			c.retryCount++
			attempt := c.retryCount
			c.mu.Unlock()

			wait := (1 << attempt) * backoffUnit
			c.logger.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("maxRetries", c.maxRetries).
				Dur("backoff", wait).
				Msg("fetch failed, backing off")

			if sleepErr := c.sleep(ctx, wait); sleepErr != nil {
				return nil, &UpdateFailedError{Cause: "refresh cancelled", Err: sleepErr}
			}
			if attempt >= c.maxRetries {
				cause := "repeated API errors"
				if api.IsTimeout(err) {
					cause = "repeated timeouts while fetching station data"
				}
				return nil, &UpdateFailedError{Cause: cause, Err: err}
			}

		default:
			c.logger.Error().Err(err).Msg("unexpected error during refresh")
			return nil, &UpdateFailedError{Cause: "unexpected error", Err: err}
		}
	}
}

// buildSnapshot keys fetched stations by id. Stations without an id are
// logged and dropped; they never enter the snapshot.
func (c *Coordinator) buildSnapshot(stations []models.Station) models.Snapshot {
	snapshot := make(models.Snapshot, len(stations))
	priceCount := 0

	for _, st := range stations {
		if st.ID == "" {
			c.logger.Warn().Str("name", st.Name).Msg("station missing id, dropping")
			continue
		}
		if _, ok := snapshot[st.ID]; ok {
			continue
		}
		snapshot[st.ID] = st
		priceCount += len(st.Prices)
	}

	c.mu.Lock()
	c.retryCount = 0
	c.mu.Unlock()

	c.logger.Info().
		Int("stations", len(snapshot)).
		Int("prices", priceCount).
		Msg("refresh cycle complete")
	return snapshot
}

// sleepContext sleeps for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
