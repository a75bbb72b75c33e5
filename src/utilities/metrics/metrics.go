// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	queriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cvesearch_queries_total",
			Help: "Total number of vulnerability queries served",
		},
		[]string{"status"},
	)

	queryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cvesearch_query_duration_seconds",
			Help:    "Query execution time in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	cacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cvesearch_cache_operations_total",
			Help: "Result cache lookups by outcome",
		},
		[]string{"result"},
	)

	importedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cvesearch_imported_records_total",
			Help: "Feed records imported into the store",
		},
		[]string{"source"},
	)

	lastImport = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cvesearch_last_import_timestamp_seconds",
			Help: "Unix time of the last successful feed import",
		},
		[]string{"source"},
	)
)

// ObserveQuery records one served query.
func ObserveQuery(duration time.Duration, status string) {
	queriesTotal.WithLabelValues(status).Inc()
	queryDuration.Observe(duration.Seconds())
}

// CacheHit counts a result cache hit.
func CacheHit() {
	cacheOperations.WithLabelValues("hit").Inc()
}

// CacheMiss counts a result cache miss.
func CacheMiss() {
	cacheOperations.WithLabelValues("miss").Inc()
}

// RecordImport counts imported records and stamps the import time.
func RecordImport(source string, count int) {
	importedRecords.WithLabelValues(source).Add(float64(count))
	lastImport.WithLabelValues(source).SetToCurrentTime()
}

// StartMetricsServer serves /metrics on its own port in the
// background.
func StartMetricsServer(port string) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":"+port, mux); err != nil {
			logrus.Errorf("metrics server stopped: %v", err)
		}
	}()
}
