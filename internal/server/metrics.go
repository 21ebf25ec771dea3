package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	chainlogRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chainlog_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	chainlogRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chainlog_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	chainlogAppendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chainlog_appends_total",
		Help: "Total append attempts by result (ok, invalid, error).",
	}, []string{"result"})

	chainlogQueriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chainlog_queries_total",
		Help: "Total entry queries served.",
	})

	chainlogEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chainlog_entries",
		Help: "Number of entries in the chain log.",
	})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		chainlogRequestsTotal.WithLabelValues(method, path, status).Inc()
		chainlogRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordAppend records an append outcome. It matches chainlog.MetricsRecorder.
func RecordAppend(result string) {
	chainlogAppendsTotal.WithLabelValues(result).Inc()
}

// RecordQuery records a served query.
func RecordQuery() {
	chainlogQueriesTotal.Inc()
}

// SetEntriesGauge sets the chain length gauge.
func SetEntriesGauge(count float64) {
	chainlogEntries.Set(count)
}
