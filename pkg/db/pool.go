// Package db provides the allocator's Postgres storage via pgx: inbox slots and the credit ledger.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const logPrefix = "db:pool"

// ApplicationName is reported to Postgres so allocator sessions show up in pg_stat_activity.
const ApplicationName = "coretime-allocator"

// Slot swaps and deposits are single short statements.
const (
	poolMaxConns          = 8
	poolMinConns          = 1
	poolHealthCheckPeriod = 30 * time.Second
)

// NewPool opens a pgx pool on databaseURL and pings it once.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := poolConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	slog.Info(fmt.Sprintf("%s - Connecting to %s/%s", logPrefix, config.ConnConfig.Host, config.ConnConfig.Database))

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to create pool: %w", logPrefix, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s - failed to ping database: %w", logPrefix, err)
	}
	return pool, nil
}

func poolConfig(databaseURL string) (*pgxpool.Config, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("%s - database URL is empty", logPrefix)
	}
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to parse database URL: %w", logPrefix, err)
	}
	config.MaxConns = poolMaxConns
	config.MinConns = poolMinConns
	config.HealthCheckPeriod = poolHealthCheckPeriod
	if _, ok := config.ConnConfig.RuntimeParams["application_name"]; !ok {
		config.ConnConfig.RuntimeParams["application_name"] = ApplicationName
	}
	return config, nil
}
