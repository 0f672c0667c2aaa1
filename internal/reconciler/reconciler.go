// Package reconciler computes the minimal sensor add/remove set that keeps
// the exposed sensors consistent with the latest station snapshot and the
// current filter configuration.
package reconciler

import (
	"strings"

	"github.com/mtoivanen/fuelwatch/internal/config"
	"github.com/mtoivanen/fuelwatch/internal/models"
)

// SentinelLastUpdated is the fuel slot of the per-station last-updated
// sensor. Every non-ignored station gets one, independent of fuel
// selection.
const SentinelLastUpdated = "last_updated"

// Key uniquely identifies an exposed sensor.
type Key struct {
	StationID string
	// FuelType is a fuel type code, or SentinelLastUpdated.
	FuelType string
}

// FuelKey returns the key of a fuel price sensor.
func FuelKey(stationID, fuelType string) Key {
	return Key{StationID: stationID, FuelType: fuelType}
}

// LastUpdatedKey returns the key of a station's last-updated sensor.
func LastUpdatedKey(stationID string) Key {
	return Key{StationID: stationID, FuelType: SentinelLastUpdated}
}

// IsLastUpdated reports whether the key identifies a last-updated sensor.
func (k Key) IsLastUpdated() bool {
	return k.FuelType == SentinelLastUpdated
}

// Set is a set of sensor keys.
type Set map[Key]struct{}

// NewSet builds a Set from keys.
func NewSet(keys ...Key) Set {
	s := make(Set, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Contains reports whether the set holds the key.
func (s Set) Contains(k Key) bool {
	_, ok := s[k]
	return ok
}

// Diff is the change set produced by one reconciliation. Apply order is
// remove-then-add to avoid transient duplicate identifiers.
type Diff struct {
	Remove Set
	Add    Set
}

// Empty reports whether the diff changes nothing.
func (d Diff) Empty() bool {
	return len(d.Remove) == 0 && len(d.Add) == 0
}

// Reconcile diffs the existing sensor keys against the snapshot and filter.
//
// Sensors are removed when their station left the snapshot, when the
// station is now chain-ignored, or when a fuel sensor's fuel type is no
// longer selected. Sensors are added for every non-ignored station's
// last-updated slot and for every selected fuel the station offers.
func Reconcile(existing Set, snapshot models.Snapshot, filter config.Filter) Diff {
	diff := Diff{
		Remove: make(Set),
		Add:    make(Set),
	}

	selected := make(map[string]bool, len(filter.Fuels))
	for _, f := range filter.Fuels {
		selected[f] = true
	}

	for key := range existing {
		station, ok := snapshot[key.StationID]
		if !ok {
			diff.Remove[key] = struct{}{}
			continue
		}
		if IsIgnored(station, filter.IgnoredChains) {
			diff.Remove[key] = struct{}{}
			continue
		}
		if !key.IsLastUpdated() && !selected[key.FuelType] {
			diff.Remove[key] = struct{}{}
		}
	}

	for id, station := range snapshot {
		if IsIgnored(station, filter.IgnoredChains) {
			continue
		}

		// A station with zero matching fuels still gets its
		// last-updated sensor.
		if lu := LastUpdatedKey(id); !existing.Contains(lu) {
			diff.Add[lu] = struct{}{}
		}

		for _, fuel := range station.Fuels {
			if !selected[fuel] {
				continue
			}
			if k := FuelKey(id, fuel); !existing.Contains(k) {
				diff.Add[k] = struct{}{}
			}
		}
	}

	return diff
}

// IsIgnored reports whether any ignored-chain entry occurs as a
// case-insensitive substring of the station's name, brand or chain.
// "neste" matches "Neste Express".
func IsIgnored(station models.Station, ignoredChains []string) bool {
	if len(ignoredChains) == 0 {
		return false
	}

	name := strings.ToLower(station.Name)
	brand := strings.ToLower(station.Brand)
	chain := strings.ToLower(station.Chain)

	for _, ignored := range ignoredChains {
		ignored = strings.ToLower(ignored)
		if ignored == "" {
			continue
		}
		if strings.Contains(name, ignored) || strings.Contains(brand, ignored) || strings.Contains(chain, ignored) {
			return true
		}
	}
	return false
}
