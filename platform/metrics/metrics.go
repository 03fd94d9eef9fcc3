// Package metrics exposes Prometheus collectors for HTTP traffic and the credit flow.
// This is part of the platform layer and contains no business logic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	unlocksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_unlocks_total",
			Help: "Unlock attempts by outcome",
		},
		[]string{"outcome"},
	)

	creditsSpent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "credits_spent_total",
			Help: "Credits debited from spendable balances",
		},
	)

	addOnRedemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "addon_redemptions_total",
			Help: "Add-on redemptions by kind",
		},
		[]string{"kind"},
	)

	leadsPosted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leads_posted_total",
			Help: "Leads moved from pending to posted",
		},
	)

	trialsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wallet_trials_expired_total",
			Help: "Trial wallets expired by the sweep",
		},
	)

	billingEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_events_total",
			Help: "Billing events consumed by type and result",
		},
		[]string{"type", "result"},
	)
)

// Unlock outcomes.
const (
	OutcomeGranted      = "granted"
	OutcomeReplayed     = "replayed"
	OutcomeInsufficient = "insufficient_credits"
	OutcomeUnavailable  = "lead_unavailable"
	OutcomeConflict     = "conflict"
	OutcomeError        = "error"
)

// Middleware records request counts and latency labelled by the matched route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordUnlock(outcome string) {
	unlocksTotal.WithLabelValues(outcome).Inc()
}

func RecordCreditsSpent(amount int) {
	if amount > 0 {
		creditsSpent.Add(float64(amount))
	}
}

func RecordAddOnRedemption(kind string) {
	addOnRedemptions.WithLabelValues(kind).Inc()
}

func RecordLeadsPosted(n int) {
	if n > 0 {
		leadsPosted.Add(float64(n))
	}
}

func RecordTrialsExpired(n int) {
	if n > 0 {
		trialsExpired.Add(float64(n))
	}
}

func RecordBillingEvent(eventType, result string) {
	billingEvents.WithLabelValues(eventType, result).Inc()
}
