// Package http provides the HTTP surface of fuelwatch: metrics, status,
// sensor states, explicit refresh and live filter updates.
package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for fuelwatch.
type Metrics struct {
	RefreshTotal    *prometheus.CounterVec
	RefreshDuration prometheus.Histogram

	FuelPriceEUR    *prometheus.GaugeVec
	SensorsExposed  prometheus.Gauge
	StationsTracked prometheus.Gauge
}

// NewMetrics creates and registers Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RefreshTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelwatch_refresh_total",
				Help: "Total number of refresh cycles by outcome",
			},
			[]string{"status"},
		),
		RefreshDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fuelwatch_refresh_duration_seconds",
				Help:    "Refresh cycle duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		FuelPriceEUR: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fuelwatch_fuel_price_eur",
				Help: "Current fuel price in EUR per liter",
			},
			[]string{"station_id", "station_name", "fuel_type"},
		),
		SensorsExposed: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "fuelwatch_sensors_exposed",
				Help: "Number of currently exposed sensors",
			},
		),
		StationsTracked: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "fuelwatch_stations_tracked",
				Help: "Number of stations in the latest snapshot",
			},
		),
	}
}

// RecordRefresh records the outcome and duration of a refresh cycle.
func (m *Metrics) RecordRefresh(success bool, seconds float64) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.RefreshTotal.WithLabelValues(status).Inc()
	m.RefreshDuration.Observe(seconds)
}

// RecordFuelPrice records the current price of one station/fuel pair.
func (m *Metrics) RecordFuelPrice(stationID, stationName, fuelType string, price float64) {
	m.FuelPriceEUR.WithLabelValues(stationID, stationName, fuelType).Set(price)
}

// RecordGauges records the exposed sensor and tracked station counts.
func (m *Metrics) RecordGauges(sensors, stations int) {
	m.SensorsExposed.Set(float64(sensors))
	m.StationsTracked.Set(float64(stations))
}
