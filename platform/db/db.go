// Package db opens the Postgres pool and applies the embedded schema.
package db

import (
	"context"
	"time"

	"leadledger_backend/platform/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultMaxConns = 25
	minIdleConns    = 2
)

// NewPool connects and pings. Unlock and wallet writes hold a row lock for
// the length of one transaction, so MaxConns bounds concurrent spenders.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDatabaseURL())
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = defaultMaxConns
	if n := cfg.GetDatabaseMaxConns(); n > 0 {
		poolConfig.MaxConns = int32(n)
	}
	poolConfig.MinConns = min(minIdleConns, poolConfig.MaxConns)
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
