// Package bootstrap holds start-up helpers shared by the binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadledger_backend/internal/plans"
	"leadledger_backend/internal/unlock"
	"leadledger_backend/internal/unlock/cache"
	"leadledger_backend/platform/config"
	"leadledger_backend/platform/db"
	"leadledger_backend/platform/logger"
	"leadledger_backend/platform/redisx"

	"github.com/jackc/pgx/v5/pgxpool"
)

// WithRetry runs fn up to attempts times with quadratic backoff.
func WithRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}

// ConnectDatabase opens the pool, retrying while the database starts, and
// applies migrations when migrate is set.
func ConnectDatabase(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger, migrate bool) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	if err := WithRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		return nil, err
	}
	log.Info("database connection established")

	if !migrate {
		return pool, nil
	}
	if err := WithRetry(ctx, log, "database migrations", 3, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool)
	}); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info("database migrations complete")
	return pool, nil
}

// LoadPlans reads the plan catalog named by the config, or the embedded default.
func LoadPlans(cfg config.PlansConfig, log *logger.Logger) (*plans.Catalog, error) {
	catalog, err := plans.Load(cfg.GetPlansFile())
	if err != nil {
		return nil, err
	}
	log.Info("plan catalog loaded", "plans", len(catalog.Plans), "source", planSource(cfg.GetPlansFile()))
	return catalog, nil
}

func planSource(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}

// GrantCache returns the Redis grant cache, or nil when caching is disabled.
// The returned close func is never nil.
func GrantCache(cfg config.CacheConfig, log *logger.Logger) (unlock.GrantCache, func()) {
	if !cfg.IsGrantCacheEnabled() {
		log.Info("unlock grant cache disabled")
		return nil, func() {}
	}
	client, err := redisx.NewClient(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		log.Warn("unlock grant cache disabled", "error", err)
		return nil, func() {}
	}
	return cache.New(client, cfg.GetGrantCacheTTL()), func() { _ = client.Close() }
}
