// Package database provides PostgreSQL storage for observed fuel prices.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	"github.com/mtoivanen/fuelwatch/internal/models"
)

// DB wraps the PostgreSQL connection and records price observations.
type DB struct {
	db     *sql.DB
	logger zerolog.Logger
}

// New creates a new database connection.
func New(dsn string, logger zerolog.Logger) (*DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database connection: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{
		db:     db,
		logger: logger.With().Str("component", "database").Logger(),
	}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks if the database connection is alive.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// RecordSnapshot upserts the current price of every station/fuel pair in
// the snapshot. A price report is identified by (station, fuel, updated),
// so re-recording an unchanged snapshot is a no-op per row.
func (d *DB) RecordSnapshot(ctx context.Context, snapshot models.Snapshot) error {
	fetchedAt := time.Now()
	inserted := 0

	for _, station := range snapshot {
		for _, price := range station.Prices {
			if err := d.insertPrice(ctx, station, price, fetchedAt); err != nil {
				return err
			}
			inserted++
		}
	}

	d.logger.Debug().
		Int("stations", len(snapshot)).
		Int("prices", inserted).
		Msg("recorded snapshot prices")
	return nil
}

func (d *DB) insertPrice(ctx context.Context, station models.Station, price models.Price, fetchedAt time.Time) error {
	query := `
		INSERT INTO fuel_prices (station_id, station_name, chain, fuel_type, price_eur, reporter, delta, reported_at, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (station_id, fuel_type, reported_at)
		DO UPDATE SET
			price_eur = EXCLUDED.price_eur,
			reporter = EXCLUDED.reporter,
			delta = EXCLUDED.delta,
			fetched_at = EXCLUDED.fetched_at
	`

	_, err := d.db.ExecContext(ctx, query,
		station.ID,
		station.Name,
		station.Chain,
		price.Tag,
		price.Price,
		price.Reporter,
		price.Delta,
		price.Updated,
		fetchedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting price: %w", err)
	}
	return nil
}

// GetTotalPricesCount returns the total number of price records stored.
func (d *DB) GetTotalPricesCount(ctx context.Context) (int64, error) {
	var count int64
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fuel_prices").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting prices: %w", err)
	}
	return count, nil
}
