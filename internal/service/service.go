// Package service wires the refresh coordinator, sensor registry and
// price recorder into complete refresh cycles, and carries the live
// filter-reconfiguration path.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mtoivanen/fuelwatch/internal/config"
	"github.com/mtoivanen/fuelwatch/internal/coordinator"
	"github.com/mtoivanen/fuelwatch/internal/models"
	"github.com/mtoivanen/fuelwatch/internal/reconciler"
	"github.com/mtoivanen/fuelwatch/internal/registry"
)

// Recorder persists the prices of a snapshot.
type Recorder interface {
	RecordSnapshot(ctx context.Context, snapshot models.Snapshot) error
}

// MetricsRecorder receives per-cycle metrics updates.
type MetricsRecorder interface {
	RecordRefresh(success bool, seconds float64)
	RecordFuelPrice(stationID, stationName, fuelType string, price float64)
	RecordGauges(sensors, stations int)
}

// Service runs complete refresh cycles: coordinator refresh, registry
// reconciliation, optional price recording, metrics and status tracking.
type Service struct {
	coordinator *coordinator.Coordinator
	registry    *registry.Registry
	recorder    Recorder
	metrics     MetricsRecorder
	logger      zerolog.Logger

	mu    sync.RWMutex
	stats models.RefreshStatus
}

// New creates a Service. Recorder and metrics are optional and attached
// with the setters below.
func New(coord *coordinator.Coordinator, reg *registry.Registry, logger zerolog.Logger) *Service {
	return &Service{
		coordinator: coord,
		registry:    reg,
		logger:      logger.With().Str("component", "service").Logger(),
	}
}

// SetRecorder attaches a price recorder.
func (s *Service) SetRecorder(r Recorder) {
	s.recorder = r
}

// SetMetrics attaches a metrics recorder.
func (s *Service) SetMetrics(m MetricsRecorder) {
	s.metrics = m
}

// Registry returns the sensor registry.
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// Filter returns the active filter configuration.
func (s *Service) Filter() config.Filter {
	return s.coordinator.Filter()
}

// RunCycle runs one refresh cycle. On failure the sensors are marked
// unavailable and the UpdateFailedError is returned for the scheduler to
// log; the next scheduled cycle is unaffected.
func (s *Service) RunCycle(ctx context.Context) error {
	start := time.Now()
	snapshot, err := s.coordinator.Refresh(ctx)
	elapsed := time.Since(start)

	if err != nil {
		s.registry.MarkRefreshFailed()
		s.recordCycle(false, elapsed, err)
		return err
	}

	filter := s.coordinator.Filter()
	s.registry.Update(snapshot, filter)
	s.recordCycle(true, elapsed, nil)

	if s.metrics != nil {
		for _, station := range snapshot {
			for _, price := range station.Prices {
				s.metrics.RecordFuelPrice(station.ID, station.Name, price.Tag, price.Price)
			}
		}
	}

	if s.recorder != nil {
		if err := s.recorder.RecordSnapshot(ctx, snapshot); err != nil {
			// Recording is best effort; the refresh cycle already succeeded.
			s.logger.Error().Err(err).Msg("failed to record snapshot prices")
		}
	}

	return nil
}

// UpdateFilter applies a new filter configuration without a reload:
// subsequent cycles use it, and the sensor set is reconciled against the
// live snapshot immediately.
func (s *Service) UpdateFilter(filter config.Filter) (reconciler.Diff, error) {
	if err := filter.Validate(); err != nil {
		return reconciler.Diff{}, err
	}

	s.coordinator.SetFilter(filter)
	diff := s.registry.Reconcile(filter)

	s.mu.Lock()
	s.stats.SensorCount = s.registry.Count()
	s.mu.Unlock()

	s.logger.Info().
		Int("removed", len(diff.Remove)).
		Int("added", len(diff.Add)).
		Msg("filter configuration updated")
	return diff, nil
}

func (s *Service) recordCycle(success bool, elapsed time.Duration, err error) {
	now := time.Now()

	s.mu.Lock()
	s.stats.LastRefreshAt = &now
	s.stats.LastRefreshSuccess = success
	s.stats.TotalRefreshes++
	if success {
		s.stats.LastError = nil
	} else {
		s.stats.TotalFailures++
		msg := err.Error()
		s.stats.LastError = &msg
	}
	s.stats.StationCount = len(s.registry.Snapshot())
	s.stats.SensorCount = s.registry.Count()
	sensors, stations := s.stats.SensorCount, s.stats.StationCount
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordRefresh(success, elapsed.Seconds())
		s.metrics.RecordGauges(sensors, stations)
	}
}

// Status returns a copy of the refresh statistics.
func (s *Service) Status() models.RefreshStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}
