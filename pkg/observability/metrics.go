package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Row-store metrics
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec
	StoreErrorsTotal       *prometheus.CounterVec

	// Session cache metrics
	AuthCacheHitsTotal   prometheus.Counter
	AuthCacheMissesTotal prometheus.Counter

	// Rate limiting
	RateLimitRejectedTotal *prometheus.CounterVec

	// Spreadsheet inventory gauges, refreshed by the stats collector.
	SheetsTotal     prometheus.Gauge
	RowsTotal       *prometheus.GaugeVec
	TombstonesTotal *prometheus.GaugeVec
	UsersTotal      prometheus.Gauge
	RolesTotal      prometheus.Gauge
}

// NewMetrics creates and registers all metrics on the given registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "celldb_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "celldb_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		StoreOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "celldb_store_operations_total",
				Help: "Total number of row-store operations",
			},
			[]string{"operation", "backend", "status"},
		),
		StoreOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "celldb_store_operation_duration_seconds",
				Help:    "Row-store operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "backend"},
		),
		StoreErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "celldb_store_errors_total",
				Help: "Total number of row-store errors",
			},
			[]string{"operation", "backend"},
		),

		AuthCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "celldb_auth_cache_hits_total",
				Help: "Session cache hits",
			},
		),
		AuthCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "celldb_auth_cache_misses_total",
				Help: "Session cache misses",
			},
		),

		RateLimitRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "celldb_ratelimit_rejected_total",
				Help: "Requests rejected by rate limiting",
			},
			[]string{"limiter"},
		),

		SheetsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "celldb_sheets_total",
				Help: "Number of managed sheets",
			},
		),
		RowsTotal: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "celldb_rows_total",
				Help: "Live rows per sheet",
			},
			[]string{"sheet"},
		),
		TombstonesTotal: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "celldb_tombstones_total",
				Help: "Cleared row positions per sheet",
			},
			[]string{"sheet"},
		),
		UsersTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "celldb_users_total",
				Help: "Number of registered users",
			},
		),
		RolesTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "celldb_roles_total",
				Help: "Number of roles",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.StoreOperationsTotal,
		m.StoreOperationDuration,
		m.StoreErrorsTotal,
		m.AuthCacheHitsTotal,
		m.AuthCacheMissesTotal,
		m.RateLimitRejectedTotal,
		m.SheetsTotal,
		m.RowsTotal,
		m.TombstonesTotal,
		m.UsersTotal,
		m.RolesTotal,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint.
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
