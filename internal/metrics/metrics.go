// Package metrics provides Prometheus instrumentation for the payout services.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ClosuresTotal counts processed closures by kind and outcome.
	ClosuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payout_closures_total",
		Help: "Total closures processed",
	}, []string{"kind", "status"})

	// ClosureDuration tracks end-to-end closure processing time.
	ClosureDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payout_closure_duration_seconds",
		Help:    "Closure processing duration in seconds",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"kind"})

	// DistributedCents accumulates the money written to the ledger per role.
	DistributedCents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payout_distributed_cents_total",
		Help: "Cents written to the ledger",
	}, []string{"role"})

	// ResidualCents accumulates rounding residuals credited to the platform.
	ResidualCents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payout_residual_cents_total",
		Help: "Rounding residual credited to the platform",
	})

	// DuplicateClosures counts closures skipped because their ledger lines exist.
	DuplicateClosures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payout_duplicate_closures_total",
		Help: "Closures skipped as already processed",
	})

	// OutboxPublished counts outbox messages by publishing outcome.
	OutboxPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payout_outbox_messages_total",
		Help: "Outbox messages by publishing outcome",
	}, []string{"outcome"})

	// HTTPRequestsTotal counts HTTP requests by method, route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payout_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payout_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus scrape endpoint as a gin handler.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// Middleware records request metrics labelled with the matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
