// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
	GetDatabaseMaxConns() int
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
	GetUnlockRatePerMinute() int
}

// SchedulerConfig provides settings for the asynq client, worker and periodic sweeps.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetPostingSweepSpec() string
	GetTrialSweepSpec() string
}

// CacheConfig provides settings for the unlock grant cache.
type CacheConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetGrantCacheTTL() time.Duration
	IsGrantCacheEnabled() bool
}

// BillingConfig provides settings for the billing event consumer.
type BillingConfig interface {
	GetAMQPURL() string
	GetBillingExchange() string
	GetBillingQueue() string
	IsBillingConsumerEnabled() bool
}

// PlansConfig provides the location of the subscription plan catalog.
type PlansConfig interface {
	GetPlansFile() string
}

// CatalogConfig provides settings for lead listing.
type CatalogConfig interface {
	GetCatalogMaxScan() int
}

// LeadIntakeConfig provides settings used when leads are ingested.
type LeadIntakeConfig interface {
	GetPhoneRegion() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                 string
	HTTPAddr            string
	DatabaseURL         string
	DatabaseMaxConns    int
	JWTAccessSecret     string
	CORSAllowAll        bool
	CORSOrigins         []string
	CORSAllowCreds      bool
	UnlockRatePerMinute int
	RedisURL            string
	RedisTLSInsecure    bool
	AsynqQueueName      string
	AsynqConcurrency    int
	PostingSweepSpec    string
	TrialSweepSpec      string
	GrantCacheTTL       time.Duration
	AMQPURL             string
	BillingExchange     string
	BillingQueue        string
	BillingConsumer     bool
	PlansFile           string
	CatalogMaxScan      int
	PhoneRegion         string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string   { return c.DatabaseURL }
func (c *Config) GetDatabaseMaxConns() int { return c.DatabaseMaxConns }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string         { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool       { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string    { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool     { return c.CORSAllowCreds }
func (c *Config) GetUnlockRatePerMinute() int { return c.UnlockRatePerMinute }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string         { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool   { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string   { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int    { return c.AsynqConcurrency }
func (c *Config) GetPostingSweepSpec() string { return c.PostingSweepSpec }
func (c *Config) GetTrialSweepSpec() string   { return c.TrialSweepSpec }

// CacheConfig implementation
func (c *Config) GetGrantCacheTTL() time.Duration { return c.GrantCacheTTL }
func (c *Config) IsGrantCacheEnabled() bool {
	return c.RedisURL != "" && c.GrantCacheTTL > 0
}

// BillingConfig implementation
func (c *Config) GetAMQPURL() string             { return c.AMQPURL }
func (c *Config) GetBillingExchange() string     { return c.BillingExchange }
func (c *Config) GetBillingQueue() string        { return c.BillingQueue }
func (c *Config) IsBillingConsumerEnabled() bool { return c.BillingConsumer && c.AMQPURL != "" }

// PlansConfig implementation
func (c *Config) GetPlansFile() string { return c.PlansFile }

// CatalogConfig implementation
func (c *Config) GetCatalogMaxScan() int { return c.CatalogMaxScan }

// LeadIntakeConfig implementation
func (c *Config) GetPhoneRegion() string { return c.PhoneRegion }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                 getEnv("APP_ENV", "development"),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		DatabaseMaxConns:    mustInt(getEnv("DATABASE_MAX_CONNS", "25")),
		JWTAccessSecret:     getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:        corsAllowAll,
		CORSOrigins:         corsOrigins,
		CORSAllowCreds:      strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		UnlockRatePerMinute: mustInt(getEnv("UNLOCK_RATE_PER_MINUTE", "30")),
		RedisURL:            getEnv("REDIS_URL", ""),
		RedisTLSInsecure:    strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:      getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:    mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		PostingSweepSpec:    getEnv("POSTING_SWEEP_SPEC", "@every 15m"),
		TrialSweepSpec:      getEnv("TRIAL_SWEEP_SPEC", "@every 1h"),
		GrantCacheTTL:       mustDuration(getEnv("GRANT_CACHE_TTL", "24h")),
		AMQPURL:             getEnv("AMQP_URL", ""),
		BillingExchange:     getEnv("BILLING_EXCHANGE", "ex.billing"),
		BillingQueue:        getEnv("BILLING_QUEUE", "q.billing.events"),
		BillingConsumer:     strings.EqualFold(getEnv("BILLING_CONSUMER_ENABLED", "false"), "true"),
		PlansFile:           getEnv("PLANS_FILE", ""),
		CatalogMaxScan:      mustInt(getEnv("CATALOG_MAX_SCAN", "5000")),
		PhoneRegion:         strings.ToUpper(getEnv("PHONE_REGION", "US")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if !cfg.CORSAllowAll && len(cfg.CORSOrigins) == 0 {
		return nil, fmt.Errorf("CORS_ORIGINS must list at least one origin")
	}
	if cfg.CatalogMaxScan <= 0 {
		return nil, fmt.Errorf("CATALOG_MAX_SCAN must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
