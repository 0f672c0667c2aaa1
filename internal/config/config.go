// Package config provides configuration structures and loading for fuelwatch.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mtoivanen/fuelwatch/internal/models"
)

const (
	// DefaultScanInterval is the refresh interval in seconds.
	DefaultScanInterval = 3600
	// DefaultRadiusMeters is the location filter radius.
	DefaultRadiusMeters = 5000
	// MinRadiusMeters and MaxRadiusMeters bound the location filter radius.
	MinRadiusMeters = 1000
	MaxRadiusMeters = 50000
)

// Filter holds the user-configurable station and fuel filtering.
// Read-only during a refresh/reconcile cycle.
type Filter struct {
	// UseLocationFilter enables the geographic radius filter.
	UseLocationFilter bool
	// Latitude and Longitude of the filter center. Nil when not configured.
	Latitude  *float64
	Longitude *float64
	// RadiusMeters is the search radius around the filter center.
	RadiusMeters int
	// StationNames are exact station names fetched in addition to the
	// location or catalog result.
	StationNames []string
	// IgnoredChains are lowercase substrings matched against station
	// name, brand and chain; matching stations get no sensors.
	IgnoredChains []string
	// Fuels is the fuel type allow-list for price sensors.
	Fuels []string
}

// HasLocation reports whether the location filter is enabled and complete.
func (f Filter) HasLocation() bool {
	return f.UseLocationFilter && f.Latitude != nil && f.Longitude != nil
}

// Config holds all configuration for fuelwatch.
type Config struct {
	// Tankille account credentials
	Email    string
	Password string
	// Scan interval in seconds
	ScanInterval int
	// Log level (debug, info, warn, error)
	LogLevel string
	// Log format (json, console)
	LogFormat string
	// HTTP server address
	HTTPAddr string
	// PostgreSQL connection string; empty disables the price recorder
	PostgresDSN string
	// API endpoint override, empty for the default
	APIBaseURL string
	// Station and fuel filtering
	Filter Filter
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		ScanInterval: DefaultScanInterval,
		LogLevel:     "info",
		LogFormat:    "json",
		HTTPAddr:     ":8080",
		Filter: Filter{
			RadiusMeters: DefaultRadiusMeters,
			Fuels:        models.DefaultFuelTypes,
		},
	}
}

// LoadFromEnv loads configuration from environment variables.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("TANKILLE_EMAIL"); v != "" {
		c.Email = v
	}
	if v := os.Getenv("TANKILLE_PASSWORD"); v != "" {
		c.Password = v
	}
	if v := os.Getenv("SCAN_INTERVAL"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			c.ScanInterval = i
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.PostgresDSN = v
	}
	if v := os.Getenv("API_BASE_URL"); v != "" {
		c.APIBaseURL = v
	}
	if v := os.Getenv("USE_LOCATION_FILTER"); v != "" {
		c.Filter.UseLocationFilter = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("LATITUDE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Filter.Latitude = &f
		}
	}
	if v := os.Getenv("LONGITUDE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Filter.Longitude = &f
		}
	}
	if v := os.Getenv("RADIUS_METERS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			c.Filter.RadiusMeters = i
		}
	}
	if v := os.Getenv("STATION_NAMES"); v != "" {
		c.Filter.StationNames = ParseList(v)
	}
	if v := os.Getenv("IGNORED_CHAINS"); v != "" {
		c.Filter.IgnoredChains = ParseChainList(v)
	}
	if v := os.Getenv("FUELS"); v != "" {
		c.Filter.Fuels = ParseList(v)
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Email == "" || c.Password == "" {
		return fmt.Errorf("email and password are required")
	}
	if c.ScanInterval <= 0 {
		return fmt.Errorf("scan interval must be positive, got %d", c.ScanInterval)
	}
	return c.Filter.Validate()
}

// Validate checks the filter configuration.
func (f Filter) Validate() error {
	if f.UseLocationFilter {
		if f.Latitude == nil || f.Longitude == nil {
			return fmt.Errorf("location filter requires latitude and longitude")
		}
		if *f.Latitude < -90 || *f.Latitude > 90 {
			return fmt.Errorf("latitude out of range: %f", *f.Latitude)
		}
		if *f.Longitude < -180 || *f.Longitude > 180 {
			return fmt.Errorf("longitude out of range: %f", *f.Longitude)
		}
		if f.RadiusMeters < MinRadiusMeters || f.RadiusMeters > MaxRadiusMeters {
			return fmt.Errorf("radius must be between %d and %d meters, got %d",
				MinRadiusMeters, MaxRadiusMeters, f.RadiusMeters)
		}
	}
	for _, fuel := range f.Fuels {
		if !models.IsKnownFuelType(fuel) {
			return fmt.Errorf("unknown fuel type: %q", fuel)
		}
	}
	return nil
}

// ParseList splits a comma-separated value into trimmed non-empty entries.
func ParseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseChainList parses ignored chains, lowercasing each entry since
// chain matching is case-insensitive.
func ParseChainList(s string) []string {
	parts := ParseList(s)
	for i := range parts {
		parts[i] = strings.ToLower(parts[i])
	}
	return parts
}
