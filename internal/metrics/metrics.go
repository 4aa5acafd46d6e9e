package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors holds the Prometheus instruments for the ingest pipeline.
type Collectors struct {
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	fetches          *prometheus.CounterVec
	featuresUpserted *prometheus.CounterVec
	upsertErrors     *prometheus.CounterVec
	featuresSkipped  *prometheus.CounterVec
	pollCycles       *prometheus.CounterVec
	pollDuration     *prometheus.HistogramVec

	dbQueries     *prometheus.CounterVec
	dbConnsActive prometheus.Gauge

	registry *prometheus.Registry
}

var global *Collectors

// Init creates and registers all collectors. Safe to call once at startup;
// callers before Init hit nil-guarded no-ops.
func Init() {
	if global != nil {
		return
	}
	global = newCollectors(prometheus.NewRegistry())
}

func newCollectors(reg *prometheus.Registry) *Collectors {
	c := &Collectors{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wxrouter",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests served.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wxrouter",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}, []string{"method", "path"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wxrouter",
			Name:      "feed_fetches_total",
			Help:      "Outbound feed fetches by source and outcome.",
		}, []string{"source", "status"}),
		featuresUpserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wxrouter",
			Name:      "features_upserted_total",
			Help:      "Features successfully upserted, by table.",
		}, []string{"table"}),
		upsertErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wxrouter",
			Name:      "upsert_errors_total",
			Help:      "Per-record upsert failures, by table.",
		}, []string{"table"}),
		featuresSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wxrouter",
			Name:      "features_skipped_total",
			Help:      "Features dropped during normalization (e.g. missing ID).",
		}, []string{"source"}),
		pollCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wxrouter",
			Name:      "poll_cycles_total",
			Help:      "Completed polling cycles by source and outcome.",
		}, []string{"source", "status"}),
		pollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wxrouter",
			Name:      "poll_cycle_duration_seconds",
			Help:      "Duration of one full polling cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"source"}),
		dbQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wxrouter",
			Name:      "db_queries_total",
			Help:      "Database statements by operation and outcome.",
		}, []string{"operation", "status"}),
		dbConnsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wxrouter",
			Name:      "db_connections_active",
			Help:      "Acquired connections in the pgx pool.",
		}),
		registry: reg,
	}

	reg.MustRegister(
		c.httpRequests, c.httpDuration,
		c.fetches, c.featuresUpserted, c.upsertErrors, c.featuresSkipped,
		c.pollCycles, c.pollDuration,
		c.dbQueries, c.dbConnsActive,
	)
	return c
}

// Handler returns the Prometheus scrape handler
func Handler() http.Handler {
	if global == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(global.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	if global == nil {
		return
	}
	global.httpRequests.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	global.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordFetch records an outbound feed fetch outcome
func RecordFetch(source, status string) {
	if global == nil {
		return
	}
	global.fetches.WithLabelValues(source, status).Inc()
}

// RecordFeatureUpserted records a successful feature upsert
func RecordFeatureUpserted(table string) {
	if global == nil {
		return
	}
	global.featuresUpserted.WithLabelValues(table).Inc()
}

// RecordUpsertError records a per-record upsert failure
func RecordUpsertError(table string) {
	if global == nil {
		return
	}
	global.upsertErrors.WithLabelValues(table).Inc()
}

// RecordFeatureSkipped records a feature dropped during normalization
func RecordFeatureSkipped(source string) {
	if global == nil {
		return
	}
	global.featuresSkipped.WithLabelValues(source).Inc()
}

// RecordPollCycle records a completed polling cycle
func RecordPollCycle(source, status string, duration time.Duration) {
	if global == nil {
		return
	}
	global.pollCycles.WithLabelValues(source, status).Inc()
	global.pollDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordDBQuery records a database statement
func RecordDBQuery(operation, status string) {
	if global == nil {
		return
	}
	global.dbQueries.WithLabelValues(operation, status).Inc()
}

// SetDBConnectionsActive sets the number of acquired pool connections
func SetDBConnectionsActive(count float64) {
	if global == nil {
		return
	}
	global.dbConnsActive.Set(count)
}
