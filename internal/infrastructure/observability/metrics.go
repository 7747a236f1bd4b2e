// Package observability holds the Prometheus metrics and tracing setup for
// the data layer and its admin API.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the migration data layer. The
// secondary-write counters are the drift alarm for the dual-write path:
// external monitoring alerts on the failure counter.
type Collector struct {
	registry *prometheus.Registry

	// Dual-write metrics
	SecondaryWriteSuccess *prometheus.CounterVec
	SecondaryWriteFailure *prometheus.CounterVec
	DualWriteDuration     *prometheus.HistogramVec

	// Consistency-check metrics
	ConsistencyChecks *prometheus.CounterVec

	// Admin API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewCollector creates a collector with its own registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	secondarySuccess := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "secondary_write_success_total",
			Help:      "Secondary backend writes that completed during dual-write",
		},
		[]string{"entity_type", "phase"},
	)

	secondaryFailure := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "secondary_write_failure_total",
			Help:      "Secondary backend writes abandoned after the resilience pipeline gave up",
		},
		[]string{"entity_type", "phase", "reason"},
	)

	dualWriteDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "secondary_write_duration_seconds",
			Help:      "Wall time of secondary write attempts including retries",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"entity_type", "operation"},
	)

	consistencyChecks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consistency_checks_total",
			Help:      "Cross-backend consistency checks by outcome",
		},
		[]string{"entity_type", "result"},
	)

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of admin API requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Admin API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	registry.MustRegister(
		secondarySuccess,
		secondaryFailure,
		dualWriteDuration,
		consistencyChecks,
		httpRequests,
		httpDuration,
	)

	return &Collector{
		registry:              registry,
		SecondaryWriteSuccess: secondarySuccess,
		SecondaryWriteFailure: secondaryFailure,
		DualWriteDuration:     dualWriteDuration,
		ConsistencyChecks:     consistencyChecks,
		HTTPRequests:          httpRequests,
		HTTPDuration:          httpDuration,
	}
}

// Registry returns the Prometheus registry backing this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns the scrape handler for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordSecondarySuccess counts a completed secondary write.
func (c *Collector) RecordSecondarySuccess(entityType, phase string) {
	c.SecondaryWriteSuccess.WithLabelValues(entityType, phase).Inc()
}

// RecordSecondaryFailure counts an abandoned secondary write with its reason.
func (c *Collector) RecordSecondaryFailure(entityType, phase, reason string) {
	c.SecondaryWriteFailure.WithLabelValues(entityType, phase, reason).Inc()
}

// ObserveSecondaryWrite records how long a secondary write attempt took.
func (c *Collector) ObserveSecondaryWrite(entityType, operation string, d time.Duration) {
	c.DualWriteDuration.WithLabelValues(entityType, operation).Observe(d.Seconds())
}

// RecordConsistencyCheck counts a consistency check by outcome.
func (c *Collector) RecordConsistencyCheck(entityType string, consistent bool) {
	result := "consistent"
	if !consistent {
		result = "inconsistent"
	}
	c.ConsistencyChecks.WithLabelValues(entityType, result).Inc()
}

// HTTPMiddleware records request counts and latency per route.
func (c *Collector) HTTPMiddleware(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(ww.status)).Inc()
			c.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
