// Package middleware - Prometheus metrics.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coinvault",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "coinvault",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "coinvault",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)
)

// Business metrics, incremented by the wallet handlers.
var (
	// TransfersTotal counts postings by kind and outcome.
	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coinvault",
			Subsystem: "ledger",
			Name:      "transfers_total",
			Help:      "Total number of transfer postings",
		},
		[]string{"kind", "outcome"},
	)

	// IdempotentReplaysTotal counts requests answered from the replay cache.
	IdempotentReplaysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coinvault",
			Subsystem: "ledger",
			Name:      "idempotent_replays_total",
			Help:      "Total number of responses replayed by idempotency key",
		},
		[]string{"kind"},
	)
)

// Metrics records request count, latency and in-flight gauge per request.
// The path label uses the route template, not the raw URL, to keep
// cardinality bounded.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpRequestsInFlight.Inc()

		c.Next()

		httpRequestsInFlight.Dec()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
