package reconciler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtoivanen/fuelwatch/internal/config"
	"github.com/mtoivanen/fuelwatch/internal/models"
)

func station(id, name, brand, chain string, fuels ...string) models.Station {
	return models.Station{
		ID:    id,
		Name:  name,
		Brand: brand,
		Chain: chain,
		Fuels: fuels,
	}
}

// applyDiff mirrors what the registry does: remove, then add.
func applyDiff(existing Set, diff Diff) Set {
	out := make(Set, len(existing))
	for k := range existing {
		out[k] = struct{}{}
	}
	for k := range diff.Remove {
		delete(out, k)
	}
	for k := range diff.Add {
		out[k] = struct{}{}
	}
	return out
}

func TestReconcileAddsSensorsForNewStation(t *testing.T) {
	snapshot := models.Snapshot{
		"s1": station("s1", "Shell Kamppi", "Shell", "Shell", "95", "dsl"),
	}
	filter := config.Filter{Fuels: []string{"95"}}

	diff := Reconcile(NewSet(), snapshot, filter)

	assert.Empty(t, diff.Remove)
	assert.Len(t, diff.Add, 2)
	assert.True(t, diff.Add.Contains(FuelKey("s1", "95")))
	assert.True(t, diff.Add.Contains(LastUpdatedKey("s1")))
}

func TestReconcileRemovesAllWhenSnapshotEmpty(t *testing.T) {
	existing := NewSet(FuelKey("s1", "95"), LastUpdatedKey("s1"))

	diff := Reconcile(existing, models.Snapshot{}, config.Filter{Fuels: []string{"95"}})

	assert.Empty(t, diff.Add)
	assert.Len(t, diff.Remove, 2)
	assert.True(t, diff.Remove.Contains(FuelKey("s1", "95")))
	assert.True(t, diff.Remove.Contains(LastUpdatedKey("s1")))
}

func TestReconcileIsIdempotent(t *testing.T) {
	snapshot := models.Snapshot{
		"s1": station("s1", "Shell Kamppi", "Shell", "Shell", "95", "98", "dsl"),
		"s2": station("s2", "St1 Ruoholahti", "St1", "St1", "95", "dsl"),
	}
	filter := config.Filter{Fuels: []string{"95", "dsl"}}

	first := Reconcile(NewSet(), snapshot, filter)
	require.NotEmpty(t, first.Add)

	exposed := applyDiff(NewSet(), first)
	second := Reconcile(exposed, snapshot, filter)

	assert.Empty(t, second.Remove)
	assert.Empty(t, second.Add)
}

func TestIgnoreByChainSubstring(t *testing.T) {
	tests := []struct {
		name    string
		station models.Station
		chains  []string
		ignored bool
	}{
		{
			name:    "substring match on name",
			station: station("s1", "Neste Express Tikkurila", "Neste Express", "Neste"),
			chains:  []string{"neste"},
			ignored: true,
		},
		{
			name:    "case-insensitive",
			station: station("s1", "NESTE EXPRESS TIKKURILA", "", ""),
			chains:  []string{"Neste"},
			ignored: true,
		},
		{
			name:    "match on chain field only",
			station: station("s1", "Kamppi Asema", "", "Teboil"),
			chains:  []string{"teboil"},
			ignored: true,
		},
		{
			name:    "match on brand field only",
			station: station("s1", "Kamppi Asema", "ABC", ""),
			chains:  []string{"abc"},
			ignored: true,
		},
		{
			name:    "no match",
			station: station("s1", "Shell Kamppi", "Shell", "Shell"),
			chains:  []string{"neste", "st1"},
			ignored: false,
		},
		{
			name:    "empty chain list",
			station: station("s1", "Neste Express Tikkurila", "Neste", "Neste"),
			chains:  nil,
			ignored: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ignored, IsIgnored(tt.station, tt.chains))
		})
	}
}

func TestReconcileAppliesFuelAllowList(t *testing.T) {
	snapshot := models.Snapshot{
		"s1": station("s1", "Shell Kamppi", "Shell", "Shell", "95", "98", "dsl"),
	}
	filter := config.Filter{Fuels: []string{"95"}}

	diff := Reconcile(NewSet(), snapshot, filter)

	// Exactly one fuel sensor plus the last-updated sensor.
	assert.Len(t, diff.Add, 2)
	assert.True(t, diff.Add.Contains(FuelKey("s1", "95")))
	assert.False(t, diff.Add.Contains(FuelKey("s1", "98")))
	assert.False(t, diff.Add.Contains(FuelKey("s1", "dsl")))
	assert.True(t, diff.Add.Contains(LastUpdatedKey("s1")))
}

func TestReconcileRemovesDeselectedFuelSensors(t *testing.T) {
	snapshot := models.Snapshot{
		"s1": station("s1", "Shell Kamppi", "Shell", "Shell", "95", "98"),
	}
	existing := NewSet(FuelKey("s1", "95"), FuelKey("s1", "98"), LastUpdatedKey("s1"))

	diff := Reconcile(existing, snapshot, config.Filter{Fuels: []string{"95"}})

	assert.Len(t, diff.Remove, 1)
	assert.True(t, diff.Remove.Contains(FuelKey("s1", "98")))
	assert.Empty(t, diff.Add)
}

func TestReconcileRemovesEverySensorOfNewlyIgnoredStation(t *testing.T) {
	snapshot := models.Snapshot{
		"s1": station("s1", "Neste Malmi", "Neste", "Neste", "95"),
		"s2": station("s2", "Shell Kamppi", "Shell", "Shell", "95"),
	}
	existing := NewSet(
		FuelKey("s1", "95"), LastUpdatedKey("s1"),
		FuelKey("s2", "95"), LastUpdatedKey("s2"),
	)

	diff := Reconcile(existing, snapshot, config.Filter{
		Fuels:         []string{"95"},
		IgnoredChains: []string{"neste"},
	})

	assert.Len(t, diff.Remove, 2)
	assert.True(t, diff.Remove.Contains(FuelKey("s1", "95")))
	assert.True(t, diff.Remove.Contains(LastUpdatedKey("s1")))
	assert.Empty(t, diff.Add)
}

func TestReconcileIgnoredStationGetsNoSensors(t *testing.T) {
	snapshot := models.Snapshot{
		"s1": station("s1", "Neste Express Tikkurila", "Neste", "Neste", "95", "dsl"),
	}

	diff := Reconcile(NewSet(), snapshot, config.Filter{
		Fuels:         []string{"95"},
		IgnoredChains: []string{"neste"},
	})

	assert.Empty(t, diff.Add)
	assert.Empty(t, diff.Remove)
}

func TestReconcileStationWithoutMatchingFuelsKeepsLastUpdated(t *testing.T) {
	snapshot := models.Snapshot{
		"s1": station("s1", "Gasum Vuosaari", "Gasum", "Gasum", "ngas", "bgas"),
	}

	diff := Reconcile(NewSet(), snapshot, config.Filter{Fuels: []string{"95"}})

	assert.Len(t, diff.Add, 1)
	assert.True(t, diff.Add.Contains(LastUpdatedKey("s1")))
}

func TestReconcileRemovesSensorsOfVanishedStation(t *testing.T) {
	snapshot := models.Snapshot{
		"s2": station("s2", "Shell Kamppi", "Shell", "Shell", "95"),
	}
	existing := NewSet(FuelKey("s1", "95"), LastUpdatedKey("s1"), FuelKey("s2", "95"), LastUpdatedKey("s2"))

	diff := Reconcile(existing, snapshot, config.Filter{Fuels: []string{"95"}})

	assert.Len(t, diff.Remove, 2)
	assert.True(t, diff.Remove.Contains(FuelKey("s1", "95")))
	assert.True(t, diff.Remove.Contains(LastUpdatedKey("s1")))
	assert.Empty(t, diff.Add)
}

func TestKeyIsLastUpdated(t *testing.T) {
	assert.True(t, LastUpdatedKey("s1").IsLastUpdated())
	assert.False(t, FuelKey("s1", "95").IsLastUpdated())
}
