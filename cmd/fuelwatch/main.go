// Package main provides the entry point for the fuelwatch CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mtoivanen/fuelwatch/internal/api"
	"github.com/mtoivanen/fuelwatch/internal/config"
)

var (
	// Version is set at build time.
	Version = "dev"
	// Commit is set at build time.
	Commit = "none"
	// BuildDate is set at build time.
	BuildDate = "unknown"
)

var cfg *config.Config

func main() {
	cfg = config.DefaultConfig()
	cfg.LoadFromEnv()

	rootCmd := &cobra.Command{
		Use:   "fuelwatch",
		Short: "Fuelwatch - fuel price sensors for Finnish stations",
		Long: `Fuelwatch polls the Tankille fuel price API and maintains a set of
per-station, per-fuel-type price sensors with configurable filtering.

Features:
  - Geographic radius filter, explicit station names, chain exclusion
  - Fuel type selection over the full Tankille fuel enumeration
  - Live filter reconfiguration without restart
  - Prometheus metrics and JSON status/sensor endpoints
  - Optional price history recording to PostgreSQL`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.Email, "email", cfg.Email, "Tankille account email")
	rootCmd.PersistentFlags().StringVar(&cfg.Password, "password", cfg.Password, "Tankille account password")
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (json, console)")
	rootCmd.PersistentFlags().StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP server address for /metrics, /status, /sensors")
	rootCmd.PersistentFlags().StringVar(&cfg.PostgresDSN, "postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string (empty disables price recording)")
	rootCmd.PersistentFlags().StringVar(&cfg.APIBaseURL, "api-base-url", cfg.APIBaseURL, "Tankille API endpoint override")

	// Add subcommands
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogger() zerolog.Logger {
	var logger zerolog.Logger

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Set log format
	if cfg.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	return logger
}

func newClient(logger zerolog.Logger) *api.Client {
	var opts []api.Option
	if cfg.APIBaseURL != "" {
		opts = append(opts, api.WithBaseURL(cfg.APIBaseURL))
	}
	return api.NewClient(logger, opts...)
}

// addFilterFlags registers the station/fuel filter flags shared by the
// run and fetch commands. applyFilterFlags must be called from RunE.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("use-location-filter", cfg.Filter.UseLocationFilter, "Only fetch stations within a radius of a location")
	cmd.Flags().Float64("latitude", 0, "Latitude of the location filter center")
	cmd.Flags().Float64("longitude", 0, "Longitude of the location filter center")
	cmd.Flags().Int("radius", cfg.Filter.RadiusMeters, "Location filter radius in meters (1000-50000)")
	cmd.Flags().String("station-names", "", "Comma-separated exact station names to fetch in addition")
	cmd.Flags().String("ignored-chains", "", "Comma-separated chain substrings to exclude (case-insensitive)")
	cmd.Flags().String("fuels", "", "Comma-separated fuel type codes to expose (default 95,98,dsl)")
}

func applyFilterFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()

	if flags.Changed("use-location-filter") {
		v, _ := flags.GetBool("use-location-filter")
		cfg.Filter.UseLocationFilter = v
	}
	if flags.Changed("latitude") {
		v, _ := flags.GetFloat64("latitude")
		cfg.Filter.Latitude = &v
	}
	if flags.Changed("longitude") {
		v, _ := flags.GetFloat64("longitude")
		cfg.Filter.Longitude = &v
	}
	if flags.Changed("radius") {
		v, _ := flags.GetInt("radius")
		cfg.Filter.RadiusMeters = v
	}
	if flags.Changed("station-names") {
		v, _ := flags.GetString("station-names")
		cfg.Filter.StationNames = config.ParseList(v)
	}
	if flags.Changed("ignored-chains") {
		v, _ := flags.GetString("ignored-chains")
		cfg.Filter.IgnoredChains = config.ParseChainList(v)
	}
	if flags.Changed("fuels") {
		v, _ := flags.GetString("fuels")
		cfg.Filter.Fuels = config.ParseList(v)
	}

	return cfg.Validate()
}
