// Package registry owns the set of exposed sensors and the latest station
// snapshot, and applies reconciliation diffs to keep them consistent.
package registry

import (
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/mtoivanen/fuelwatch/internal/config"
	"github.com/mtoivanen/fuelwatch/internal/models"
	"github.com/mtoivanen/fuelwatch/internal/reconciler"
	"github.com/mtoivanen/fuelwatch/internal/sensor"
)

// ChangeListener is notified after a reconciliation diff has been applied.
// It replaces the add-entities callback of the hosting platform; passing
// it at construction keeps registry instances isolated and testable.
type ChangeListener func(diff reconciler.Diff)

// Registry holds the exposed sensors and the latest snapshot. Snapshot
// replacement is an atomic pointer swap, so concurrent state readers never
// observe a partially built snapshot.
type Registry struct {
	logger   zerolog.Logger
	onChange ChangeListener

	snapshot atomic.Pointer[models.Snapshot]
	healthy  atomic.Bool

	mu      sync.RWMutex
	sensors reconciler.Set
}

// New creates a Registry. listener may be nil.
func New(logger zerolog.Logger, listener ChangeListener) *Registry {
	r := &Registry{
		logger:   logger.With().Str("component", "registry").Logger(),
		onChange: listener,
		sensors:  make(reconciler.Set),
	}
	empty := make(models.Snapshot)
	r.snapshot.Store(&empty)
	return r
}

// Snapshot returns the latest snapshot.
func (r *Registry) Snapshot() models.Snapshot {
	return *r.snapshot.Load()
}

// Keys returns a copy of the exposed sensor key set.
func (r *Registry) Keys() reconciler.Set {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make(reconciler.Set, len(r.sensors))
	for k := range r.sensors {
		keys[k] = struct{}{}
	}
	return keys
}

// Count returns the number of exposed sensors.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sensors)
}

// Healthy reports whether the latest refresh cycle succeeded.
func (r *Registry) Healthy() bool {
	return r.healthy.Load()
}

// MarkRefreshFailed records a failed refresh cycle. The snapshot and the
// sensor set are kept, but every sensor reads unavailable until the next
// successful cycle.
func (r *Registry) MarkRefreshFailed() {
	r.healthy.Store(false)
}

// Update swaps in a new snapshot and reconciles the sensor set against it.
func (r *Registry) Update(snapshot models.Snapshot, filter config.Filter) reconciler.Diff {
	r.snapshot.Store(&snapshot)
	r.healthy.Store(true)
	return r.applyReconcile(snapshot, filter)
}

// Reconcile re-runs reconciliation against the current snapshot, e.g.
// after a filter configuration change. No refresh is required.
func (r *Registry) Reconcile(filter config.Filter) reconciler.Diff {
	return r.applyReconcile(r.Snapshot(), filter)
}

func (r *Registry) applyReconcile(snapshot models.Snapshot, filter config.Filter) reconciler.Diff {
	r.mu.Lock()
	diff := reconciler.Reconcile(r.sensors, snapshot, filter)

	// Remove before add so a key never exists twice.
	for k := range diff.Remove {
		delete(r.sensors, k)
	}
	for k := range diff.Add {
		r.sensors[k] = struct{}{}
	}
	count := len(r.sensors)
	r.mu.Unlock()

	if !diff.Empty() {
		r.logger.Info().
			Int("removed", len(diff.Remove)).
			Int("added", len(diff.Add)).
			Int("sensors", count).
			Msg("reconciled sensors")
	}

	if r.onChange != nil && !diff.Empty() {
		r.onChange(diff)
	}
	return diff
}

// States projects every exposed sensor to its externally visible state.
// Results are ordered by station name, then station id, then fuel type.
func (r *Registry) States(now time.Time) []models.SensorState {
	snapshot := r.Snapshot()
	healthy := r.healthy.Load()

	r.mu.RLock()
	keys := make([]reconciler.Key, 0, len(r.sensors))
	for k := range r.sensors {
		keys = append(keys, k)
	}
	r.mu.RUnlock()

	states := make([]models.SensorState, 0, len(keys))
	for _, key := range keys {
		states = append(states, r.project(key, snapshot, healthy, now))
	}

	sort.Slice(states, func(i, j int) bool {
		a, b := states[i], states[j]
		if a.StationName != b.StationName {
			return a.StationName < b.StationName
		}
		if a.StationID != b.StationID {
			return a.StationID < b.StationID
		}
		return a.FuelType < b.FuelType
	})
	return states
}

// project computes one sensor's state. Availability is tied to the last
// refresh succeeding and the station still being present in the snapshot.
func (r *Registry) project(key reconciler.Key, snapshot models.Snapshot, healthy bool, now time.Time) models.SensorState {
	state := models.SensorState{
		StationID: key.StationID,
		FuelType:  key.FuelType,
	}

	station, present := snapshot[key.StationID]
	state.Available = healthy && present
	if !present {
		return state
	}

	state.StationName = station.Name
	if key.IsLastUpdated() {
		state.Name = station.Name + " Last Updated"
	} else {
		state.Name = sensor.DisplayName(station, key.FuelType)
	}
	if !state.Available {
		return state
	}

	if key.IsLastUpdated() {
		state.State = sensor.LastUpdatedState(station)
		state.Attributes = sensor.LastUpdatedAttributes(station, now)
		return state
	}

	if price, ok := sensor.CurrentPrice(station, key.FuelType); ok {
		state.State = strconv.FormatFloat(price, 'f', 3, 64)
	}
	state.Attributes = sensor.Attributes(station, key.FuelType, now)
	return state
}
