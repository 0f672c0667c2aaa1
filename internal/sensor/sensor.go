// Package sensor provides pure projections from station records to sensor
// states and attributes.
package sensor

import (
	"fmt"
	"strings"
	"time"

	"github.com/mtoivanen/fuelwatch/internal/models"
)

// Attribute keys of the exposed sensor attribute map.
const (
	AttrStationName    = "station_name"
	AttrBrand          = "brand"
	AttrChain          = "chain"
	AttrAvailableFuels = "available_fuels"
	AttrStreet         = "street"
	AttrCity           = "city"
	AttrZipcode        = "zipcode"
	AttrAddress        = "address"
	AttrLatitude       = "latitude"
	AttrLongitude      = "longitude"
	AttrUpdated        = "updated"
	AttrUpdatedAgo     = "updated_ago"
	AttrPriceUpdated   = "price_updated"
	AttrPriceAgo       = "price_updated_ago"
	AttrPriceReporter  = "price_reporter"
	AttrPriceDelta     = "price_delta"
)

// CurrentPrice returns the current price for the fuel type, scanning the
// station's price list in stored order. The first entry with a matching
// tag wins; the API returns at most one live entry per fuel type, so
// first-match is the deterministic contract.
func CurrentPrice(station models.Station, fuelType string) (float64, bool) {
	for _, p := range station.Prices {
		if p.Tag == fuelType {
			return p.Price, true
		}
	}
	return 0, false
}

// currentPriceEntry returns the first price entry matching the fuel type.
func currentPriceEntry(station models.Station, fuelType string) (models.Price, bool) {
	for _, p := range station.Prices {
		if p.Tag == fuelType {
			return p, true
		}
	}
	return models.Price{}, false
}

// Attributes derives the attribute map of a fuel price sensor.
func Attributes(station models.Station, fuelType string, now time.Time) map[string]any {
	attrs := stationAttributes(station, now)

	if p, ok := currentPriceEntry(station, fuelType); ok {
		attrs[AttrPriceUpdated] = p.Updated.UTC().Format(time.RFC3339)
		attrs[AttrPriceAgo] = RelativeTime(p.Updated, now)
		attrs[AttrPriceReporter] = p.Reporter
		attrs[AttrPriceDelta] = p.Delta
	}

	return attrs
}

// LastUpdatedAttributes derives the attribute map of a station's
// last-updated sensor.
func LastUpdatedAttributes(station models.Station, now time.Time) map[string]any {
	return stationAttributes(station, now)
}

func stationAttributes(station models.Station, now time.Time) map[string]any {
	attrs := map[string]any{
		AttrStationName:    station.Name,
		AttrBrand:          station.Brand,
		AttrChain:          station.Chain,
		AttrAvailableFuels: strings.Join(station.Fuels, ", "),
	}

	if station.Address != nil {
		attrs[AttrStreet] = station.Address.Street
		attrs[AttrCity] = station.Address.City
		attrs[AttrZipcode] = station.Address.Zipcode
		attrs[AttrAddress] = FormatAddress(*station.Address)
	}

	if lon, lat, ok := station.Coordinates(); ok {
		attrs[AttrLongitude] = lon
		attrs[AttrLatitude] = lat
	}

	if !station.Updated.IsZero() {
		attrs[AttrUpdated] = station.Updated.UTC().Format(time.RFC3339)
		attrs[AttrUpdatedAgo] = RelativeTime(station.Updated, now)
	}

	return attrs
}

// FormatAddress composes a one-line address: "street, city zipcode".
func FormatAddress(a models.Address) string {
	return fmt.Sprintf("%s, %s %s", a.Street, a.City, a.Zipcode)
}

// LastUpdatedState renders the state of a last-updated sensor.
func LastUpdatedState(station models.Station) string {
	return station.Updated.UTC().Format(time.RFC3339)
}

// DisplayName renders a sensor name from the station and fuel type,
// using the friendly fuel names where known.
func DisplayName(station models.Station, fuelType string) string {
	if name, ok := models.FuelTypeNames[fuelType]; ok {
		return fmt.Sprintf("%s %s", station.Name, name)
	}
	return fmt.Sprintf("%s %s", station.Name, fuelType)
}

// RelativeTime renders a human-relative "time ago" string.
func RelativeTime(t, now time.Time) string {
	if t.IsZero() || now.Before(t) {
		return "just now"
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < 2*time.Minute:
		return "1 minute ago"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case d < 2*time.Hour:
		return "1 hour ago"
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	case d < 48*time.Hour:
		return "1 day ago"
	default:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	}
}
