// Package metrics defines the Prometheus metric collectors used by the
// search and index services and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   prometheus.Histogram
	SearchCandidates     prometheus.Histogram
	StoreOpsTotal        *prometheus.CounterVec
	StoreOpDuration      *prometheus.HistogramVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	CacheCircuitState    prometheus.Gauge
	DocsIndexedTotal     prometheus.Counter
	DocsRemovedTotal     prometheus.Counter
	NgramsWrittenTotal   prometheus.Counter
	ReindexEventsTotal   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer in services and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fts_search_queries_total",
				Help: "Total search queries by result type (hit, miss, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fts_search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fts_search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		SearchCandidates: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fts_search_candidates",
				Help:    "Number of candidate records fetched per search query.",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		StoreOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fts_store_operations_total",
				Help: "Index store round trips by operation and status.",
			},
			[]string{"op", "status"},
		),
		StoreOpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fts_store_operation_duration_seconds",
				Help:    "Index store round-trip latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
			},
			[]string{"op"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fts_cache_hits_total",
				Help: "Total number of result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fts_cache_misses_total",
				Help: "Total number of result cache misses.",
			},
		),
		CacheCircuitState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fts_cache_circuit_state",
				Help: "Result cache circuit breaker state (0 closed, 1 open, 2 half-open).",
			},
		),
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fts_documents_indexed_total",
				Help: "Total documents written to an index collection.",
			},
		),
		DocsRemovedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fts_documents_removed_total",
				Help: "Total document removals.",
			},
		),
		NgramsWrittenTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fts_ngrams_written_total",
				Help: "Total n-gram records inserted.",
			},
		),
		ReindexEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fts_reindex_events_total",
				Help: "Reindex events consumed by operation and status.",
			},
			[]string{"op", "status"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.SearchCandidates,
		m.StoreOpsTotal,
		m.StoreOpDuration,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheCircuitState,
		m.DocsIndexedTotal,
		m.DocsRemovedTotal,
		m.NgramsWrittenTotal,
		m.ReindexEventsTotal,
	)

	return m
}

// Handler serves the collectors of g in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
