// Package logger wraps log/slog with the fields the ledger services log on
// every credit movement and request.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const (
	// RequestIDKey carries the X-Request-ID of the inbound request.
	RequestIDKey contextKey = "request_id"
	// AccountIDKey carries the account whose credits a request spends.
	AccountIDKey contextKey = "account_id"
)

type Logger struct {
	*slog.Logger
}

// New returns a text logger at debug level for development and a JSON logger otherwise.
func New(env string) *Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var handler slog.Handler
	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// WithAccount stores the spending account on ctx for later log lines.
func WithAccount(ctx context.Context, accountID uuid.UUID) context.Context {
	return context.WithValue(ctx, AccountIDKey, accountID.String())
}

// WithContext returns a logger carrying the request and account ids found on ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	var attrs []any
	if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	if id, ok := ctx.Value(AccountIDKey).(string); ok && id != "" {
		attrs = append(attrs, slog.String("account_id", id))
	}
	if len(attrs) == 0 {
		return l
	}
	return &Logger{Logger: l.With(attrs...)}
}

func (l *Logger) HTTPRequest(ctx context.Context, method, route string, status int, latencyMs float64, clientIP string) {
	level := slog.LevelInfo
	if status >= 500 {
		level = slog.LevelError
	}
	l.WithContext(ctx).Log(ctx, level, "http_request",
		slog.String("method", method),
		slog.String("route", route),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// CreditEvent logs one ledger entry.
func (l *Logger) CreditEvent(ctx context.Context, op string, accountID uuid.UUID, delta, spendableAfter int) {
	l.WithContext(ctx).Info("credit_event",
		slog.String("op", op),
		slog.String("wallet", accountID.String()),
		slog.Int("delta", delta),
		slog.Int("spendable_after", spendableAfter),
	)
}

func (l *Logger) UnlockEvent(ctx context.Context, accountID, leadID uuid.UUID, cost int, replayed bool) {
	l.WithContext(ctx).Info("unlock_event",
		slog.String("wallet", accountID.String()),
		slog.String("lead_id", leadID.String()),
		slog.Int("cost", cost),
		slog.Bool("replayed", replayed),
	)
}

// RateLimitExceeded logs a throttled spend; key is the account or client IP.
func (l *Logger) RateLimitExceeded(ctx context.Context, key, path string) {
	l.WithContext(ctx).Warn("rate_limit_exceeded",
		slog.String("key", key),
		slog.String("path", path),
	)
}
