// Package metrics defines the Prometheus metric collectors used by the
// indexer, searcher and evaluator, and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the engine.
type Metrics struct {
	DocsIndexedTotal       prometheus.Counter
	IndexBuildDuration     prometheus.Histogram
	IndexTerms             prometheus.Gauge
	IndexDocuments         prometheus.Gauge
	SnapshotLoadsTotal     *prometheus.CounterVec
	SnapshotWritesTotal    *prometheus.CounterVec
	SearchQueriesTotal     *prometheus.CounterVec
	SearchLatency          *prometheus.HistogramVec
	SearchResultsCount     prometheus.Histogram
	CacheHitsTotal         *prometheus.CounterVec
	CacheMissesTotal       prometheus.Counter
	EvaluationQueriesTotal prometheus.Counter
	EvaluationMetricMean   *prometheus.GaugeVec
}

// New creates all collectors and registers them on reg. A nil reg registers
// on the default Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bm25_docs_indexed_total",
				Help: "Total documents added to an index build.",
			},
		),
		IndexBuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bm25_index_build_duration_seconds",
				Help:    "Full index build latency in seconds.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		IndexTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bm25_index_terms",
				Help: "Number of distinct stems in the active index.",
			},
		),
		IndexDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bm25_index_documents",
				Help: "Number of documents in the active index.",
			},
		),
		SnapshotLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bm25_snapshot_loads_total",
				Help: "Snapshot load attempts by status (ok, missing, corrupt).",
			},
			[]string{"status"},
		),
		SnapshotWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bm25_snapshot_writes_total",
				Help: "Snapshot writes by status.",
			},
			[]string{"status"},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bm25_search_queries_total",
				Help: "Total search queries by result type (hit, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bm25_search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bm25_search_results_count",
				Help:    "Number of ranked results per query before the rank cap.",
				Buckets: []float64{0, 1, 5, 10, 15, 25, 50, 100, 500},
			},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bm25_cache_hits_total",
				Help: "Ranked-result cache hits by tier (memory, redis).",
			},
			[]string{"tier"},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bm25_cache_misses_total",
				Help: "Ranked-result cache misses.",
			},
		),
		EvaluationQueriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bm25_evaluation_queries_total",
				Help: "Queries evaluated against relevance judgments.",
			},
		),
		EvaluationMetricMean: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bm25_evaluation_metric_mean",
				Help: "Mean value of each evaluation metric in the last run.",
			},
			[]string{"metric"},
		),
	}

	reg.MustRegister(
		m.DocsIndexedTotal,
		m.IndexBuildDuration,
		m.IndexTerms,
		m.IndexDocuments,
		m.SnapshotLoadsTotal,
		m.SnapshotWritesTotal,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.EvaluationQueriesTotal,
		m.EvaluationMetricMean,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler for the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
