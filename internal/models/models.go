// Package models provides shared data types for fuelwatch.
package models

import (
	"time"
)

// Fuel type codes as used by the Tankille API.
const (
	Fuel95         = "95"
	Fuel98         = "98"
	Fuel98Plus     = "98+"
	FuelDiesel     = "dsl"
	FuelDieselPlus = "dsl+"
	FuelNaturalGas = "ngas"
	FuelBiogas     = "bgas"
	FuelE85        = "85"
	FuelHVO        = "hvo"
)

// FuelTypes lists every fuel type code the API reports.
var FuelTypes = []string{
	Fuel95,
	Fuel98,
	Fuel98Plus,
	FuelDiesel,
	FuelDieselPlus,
	FuelNaturalGas,
	FuelBiogas,
	FuelE85,
	FuelHVO,
}

// FuelTypeNames maps fuel type codes to display names.
var FuelTypeNames = map[string]string{
	Fuel95:         "95E10",
	Fuel98:         "98E5",
	Fuel98Plus:     "98 Premium",
	FuelDiesel:     "Diesel",
	FuelDieselPlus: "Diesel Premium",
	FuelNaturalGas: "Natural Gas",
	FuelBiogas:     "Biogas",
	FuelE85:        "E85",
	FuelHVO:        "HVO Diesel",
}

// DefaultFuelTypes is the fuel selection used when none is configured.
var DefaultFuelTypes = []string{Fuel95, Fuel98, FuelDiesel}

// IsKnownFuelType reports whether code is part of the API's fuel enumeration.
func IsKnownFuelType(code string) bool {
	for _, f := range FuelTypes {
		if f == code {
			return true
		}
	}
	return false
}

// Address is the postal address of a station.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	Zipcode string `json:"zipcode"`
}

// Location holds GeoJSON-style coordinates: [longitude, latitude].
type Location struct {
	Coordinates []float64 `json:"coordinates"`
}

// Price is a single reported price for one fuel type at one station.
type Price struct {
	// Tag is the fuel type code (e.g. "95", "dsl").
	Tag string `json:"tag"`
	// Price in EUR per liter.
	Price float64 `json:"price"`
	// Updated is when this price was reported.
	Updated time.Time `json:"updated"`
	// Reporter is the username that reported the price.
	Reporter string `json:"reporter"`
	// Delta is the change against the previous report.
	Delta float64 `json:"delta"`
}

// Station is a fuel station record as returned by the API.
// Immutable once part of a snapshot.
type Station struct {
	ID       string    `json:"_id"`
	Name     string    `json:"name"`
	Brand    string    `json:"brand"`
	Chain    string    `json:"chain"`
	Address  *Address  `json:"address,omitempty"`
	Location *Location `json:"location,omitempty"`
	Fuels    []string  `json:"fuels"`
	Prices   []Price   `json:"price"`
	Updated  time.Time `json:"updated"`
}

// HasFuel reports whether the station offers the given fuel type.
func (s *Station) HasFuel(code string) bool {
	for _, f := range s.Fuels {
		if f == code {
			return true
		}
	}
	return false
}

// Coordinates returns the (longitude, latitude) pair if present.
func (s *Station) Coordinates() (lon, lat float64, ok bool) {
	if s.Location == nil || len(s.Location.Coordinates) < 2 {
		return 0, 0, false
	}
	return s.Location.Coordinates[0], s.Location.Coordinates[1], true
}

// Snapshot is the immutable result of one successful refresh cycle,
// keyed by station id. It replaces the previous snapshot wholesale.
type Snapshot map[string]Station

// SensorState is one exposed sensor's externally visible state.
type SensorState struct {
	Name        string         `json:"name"`
	StationID   string         `json:"station_id"`
	StationName string         `json:"station_name"`
	FuelType    string         `json:"fuel_type"`
	State       string         `json:"state"`
	Available   bool           `json:"available"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}

// RefreshStatus holds the operational state of the refresh coordinator.
type RefreshStatus struct {
	LastRefreshAt      *time.Time `json:"last_refresh_at"`
	LastRefreshSuccess bool       `json:"last_refresh_success"`
	LastError          *string    `json:"last_error"`
	TotalRefreshes     int64      `json:"total_refreshes"`
	TotalFailures      int64      `json:"total_failures"`
	StationCount       int        `json:"station_count"`
	SensorCount        int        `json:"sensor_count"`
}

// StatusResponse is the response for the /status endpoint.
type StatusResponse struct {
	Status           string         `json:"status"`
	UptimeSeconds    int64          `json:"uptime_seconds"`
	SchedulerRunning bool           `json:"scheduler_running"`
	NextRefreshAt    *time.Time     `json:"next_refresh_at,omitempty"`
	LastRefreshAt    *time.Time     `json:"last_refresh_at,omitempty"`
	Refresh          RefreshStatus  `json:"refresh"`
	Database         DatabaseStatus `json:"database"`
}

// DatabaseStatus holds the price recorder state.
type DatabaseStatus struct {
	Enabled           bool  `json:"enabled"`
	Connected         bool  `json:"connected"`
	TotalPricesStored int64 `json:"total_prices_stored"`
}
