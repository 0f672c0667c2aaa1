package coordinator

import (
	"context"

	"github.com/mtoivanen/fuelwatch/internal/config"
	"github.com/mtoivanen/fuelwatch/internal/models"
)

// fetchMode enumerates the station fetch strategies selected by the
// filter configuration.
type fetchMode int

const (
	// fetchCatalog fetches the full station catalog.
	fetchCatalog fetchMode = iota
	// fetchByLocation fetches stations within the configured radius.
	fetchByLocation
	// fetchByNames fetches only the explicitly named stations.
	fetchByNames
)

// modeFor selects the fetch mode for a filter configuration.
func modeFor(filter config.Filter) fetchMode {
	switch {
	case filter.HasLocation():
		return fetchByLocation
	case len(filter.StationNames) == 0:
		return fetchCatalog
	default:
		return fetchByNames
	}
}

// fetchStations issues the API calls the filter configuration asks for and
// merges the results. Name-matched stations are fetched in addition to a
// location result; duplicates are resolved by station id with the first
// occurrence winning, so location-sourced entries take precedence.
func fetchStations(ctx context.Context, client StationClient, filter config.Filter) ([]models.Station, error) {
	var base []models.Station
	var err error

	switch modeFor(filter) {
	case fetchByLocation:
		base, err = client.GetStationsByLocation(ctx, *filter.Latitude, *filter.Longitude, filter.RadiusMeters)
		if err != nil {
			return nil, err
		}
		if len(filter.StationNames) > 0 {
			named, err := client.FindStationsByName(ctx, filter.StationNames)
			if err != nil {
				return nil, err
			}
			base = append(base, named...)
		}

	case fetchCatalog:
		base, err = client.GetStations(ctx)
		if err != nil {
			return nil, err
		}

	case fetchByNames:
		base, err = client.FindStationsByName(ctx, filter.StationNames)
		if err != nil {
			return nil, err
		}
	}

	return dedupeByID(base), nil
}

// dedupeByID drops later occurrences of an already-seen station id,
// preserving order.
func dedupeByID(stations []models.Station) []models.Station {
	seen := make(map[string]bool, len(stations))
	out := make([]models.Station, 0, len(stations))
	for _, st := range stations {
		if st.ID != "" && seen[st.ID] {
			continue
		}
		seen[st.ID] = true
		out = append(out, st)
	}
	return out
}
