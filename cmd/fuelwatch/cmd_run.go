package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mtoivanen/fuelwatch/internal/config"
	"github.com/mtoivanen/fuelwatch/internal/coordinator"
	"github.com/mtoivanen/fuelwatch/internal/database"
	"github.com/mtoivanen/fuelwatch/internal/http"
	"github.com/mtoivanen/fuelwatch/internal/reconciler"
	"github.com/mtoivanen/fuelwatch/internal/registry"
	"github.com/mtoivanen/fuelwatch/internal/scheduler"
	"github.com/mtoivanen/fuelwatch/internal/service"
)

func runCmd() *cobra.Command {
	var scanInterval int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the continuous sensor service",
		Long:  "Starts fuelwatch with an internal scheduler that refreshes station data at the configured interval.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			if cmd.Flags().Changed("scan-interval") {
				cfg.ScanInterval = scanInterval
			}
			if err := applyFilterFlags(cmd); err != nil {
				return err
			}

			logger.Info().
				Str("version", Version).
				Str("commit", Commit).
				Str("buildDate", BuildDate).
				Str("httpAddr", cfg.HTTPAddr).
				Int("scanInterval", cfg.ScanInterval).
				Bool("locationFilter", cfg.Filter.UseLocationFilter).
				Strs("fuels", cfg.Filter.Fuels).
				Strs("ignoredChains", cfg.Filter.IgnoredChains).
				Msg("starting fuelwatch")

			// Create API client and authenticate with fresh tokens
			client := newClient(logger)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if err := client.Login(ctx, cfg.Email, cfg.Password, true); err != nil {
				return fmt.Errorf("authenticating with Tankille API: %w", err)
			}

			// Create coordinator and registry. The registry change
			// listener drops stale price series from the metrics when
			// sensors go away; the metrics are attached after the HTTP
			// server exists.
			coord := coordinator.New(client, cfg.Filter, logger)

			var metrics *http.Metrics
			reg := registry.New(logger, func(diff reconciler.Diff) {
				if metrics == nil {
					return
				}
				for key := range diff.Remove {
					if !key.IsLastUpdated() {
						metrics.FuelPriceEUR.DeletePartialMatch(map[string]string{
							"station_id": key.StationID,
							"fuel_type":  key.FuelType,
						})
					}
				}
			})

			svc := service.New(coord, reg, logger)

			// Connect the optional price recorder
			var db *database.DB
			if cfg.PostgresDSN != "" {
				var err error
				db, err = database.New(cfg.PostgresDSN, logger)
				if err != nil {
					return fmt.Errorf("connecting to database: %w", err)
				}
				defer db.Close()
				svc.SetRecorder(db)
			}

			// Create scheduler
			sched := scheduler.New(svc, time.Duration(cfg.ScanInterval)*time.Second, logger)

			// Create HTTP server and wire Prometheus metrics
			httpServer := http.NewServer(cfg.HTTPAddr, svc, sched, db, logger)
			metrics = httpServer.Metrics()
			svc.SetMetrics(metrics)

			// Setup signal handling
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			// Start HTTP server in goroutine
			go func() {
				if err := httpServer.Start(); err != nil {
					logger.Error().Err(err).Msg("HTTP server error")
					cancel()
				}
			}()

			// Start scheduler in goroutine
			go func() {
				if err := sched.Start(ctx); err != nil && err != context.Canceled {
					logger.Error().Err(err).Msg("scheduler error")
					cancel()
				}
			}()

			// Wait for signal
			select {
			case sig := <-sigCh:
				logger.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
			case <-ctx.Done():
			}

			// Graceful shutdown
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("HTTP server shutdown error")
			}

			logger.Info().Msg("shutdown complete")
			return nil
		},
	}

	cmd.Flags().IntVar(&scanInterval, "scan-interval", config.DefaultScanInterval, "Refresh interval in seconds")
	addFilterFlags(cmd)

	return cmd
}
