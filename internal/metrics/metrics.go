package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors used for monitoring the form server:
// HTTP traffic, database latency and connect attempts, background image
// fetches and the outcome of record operations.
type Metrics struct {
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	DBQueryDuration   *prometheus.HistogramVec
	DBConnectAttempts *prometheus.CounterVec
	AssetFetches      *prometheus.CounterVec
	EmployeesAdded    *prometheus.CounterVec
	EmployeeLookups   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance and registers every collector
// with the provided Registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		HTTPRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hestia_http_requests_total",
			Help: "Total number of HTTP requests served by the form server.",
		}, []string{"method", "route", "code"}),
		HTTPDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hestia_http_request_duration_seconds",
			Help:    "Time spent serving HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		DBQueryDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hestia_db_query_duration_seconds",
			Help:    "Duration of database queries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"query_type"}), // query_type: 'save_employee', 'get_employee_by_id'
		DBConnectAttempts: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hestia_db_connect_attempts_total",
			Help: "Startup attempts to reach the database.",
		}, []string{"status"}),
		AssetFetches: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hestia_asset_fetches_total",
			Help: "Background image fetches by source and outcome.",
		}, []string{"source", "status"}),
		EmployeesAdded: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hestia_employees_added_total",
			Help: "Employee records submitted through the add form.",
		}, []string{"status"}),
		EmployeeLookups: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hestia_employee_lookups_total",
			Help: "Employee lookups by result.",
		}, []string{"result"}),
	}

	metrics.DBConnectAttempts.WithLabelValues("success")
	metrics.DBConnectAttempts.WithLabelValues("failure")
	metrics.EmployeesAdded.WithLabelValues("success")
	metrics.EmployeesAdded.WithLabelValues("failure")

	return metrics
}
