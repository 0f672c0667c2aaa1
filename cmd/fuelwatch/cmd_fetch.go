package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mtoivanen/fuelwatch/internal/coordinator"
	"github.com/mtoivanen/fuelwatch/internal/models"
	"github.com/mtoivanen/fuelwatch/internal/reconciler"
	"github.com/mtoivanen/fuelwatch/internal/sensor"
)

func fetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Run a one-time fetch",
		Long:  "Runs a single refresh cycle and prints the matched stations and prices. Useful for testing credentials and filters.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			if err := applyFilterFlags(cmd); err != nil {
				return err
			}

			client := newClient(logger)
			ctx := context.Background()

			if err := client.Login(ctx, cfg.Email, cfg.Password, true); err != nil {
				return fmt.Errorf("authenticating with Tankille API: %w", err)
			}

			coord := coordinator.New(client, cfg.Filter, logger)
			snapshot, err := coord.Refresh(ctx)
			if err != nil {
				return fmt.Errorf("fetching stations: %w", err)
			}

			diff := reconciler.Reconcile(reconciler.NewSet(), snapshot, cfg.Filter)

			ids := make([]string, 0, len(snapshot))
			for id := range snapshot {
				ids = append(ids, id)
			}
			sort.Slice(ids, func(i, j int) bool {
				return snapshot[ids[i]].Name < snapshot[ids[j]].Name
			})

			for _, id := range ids {
				station := snapshot[id]
				ignored := ""
				if reconciler.IsIgnored(station, cfg.Filter.IgnoredChains) {
					ignored = " [ignored]"
				}

				fmt.Printf("%s (%s)%s\n", station.Name, station.Chain, ignored)
				if station.Address != nil {
					fmt.Printf("  %s\n", sensor.FormatAddress(*station.Address))
				}
				for _, fuel := range cfg.Filter.Fuels {
					if price, ok := sensor.CurrentPrice(station, fuel); ok {
						name := fuel
						if friendly, ok := models.FuelTypeNames[fuel]; ok {
							name = friendly
						}
						fmt.Printf("  %-14s %.3f EUR\n", name, price)
					}
				}
			}

			fmt.Printf("\n%d stations, %d sensors would be exposed\n", len(snapshot), len(diff.Add))
			return nil
		},
	}

	addFilterFlags(cmd)

	return cmd
}
