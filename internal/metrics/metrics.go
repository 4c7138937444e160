// Package metrics exposes Prometheus collectors for catalog collection runs
// and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	collectorFetchesTotal        *prometheus.CounterVec
	collectorFetchDurationSecond *prometheus.HistogramVec
	collectorCandidatesTotal     *prometheus.CounterVec
	collectorProductsTotal       prometheus.Counter
	collectorRunsTotal           *prometheus.CounterVec
	collectorRateLimitDelays     prometheus.Histogram
	httpRequestsTotal            *prometheus.CounterVec
	httpRequestDurationSeconds   *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		collectorFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collector_fetches_total",
				Help: "Total number of fetches issued, labeled by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		)

		collectorFetchDurationSecond = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "collector_fetch_duration_seconds",
				Help:    "Histogram of fetch latencies, labeled by kind.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 12},
			},
			[]string{"kind"},
		)

		collectorCandidatesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collector_candidates_total",
				Help: "Total number of product URL candidates accepted, labeled by discovery source.",
			},
			[]string{"source"},
		)

		collectorProductsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "collector_products_total",
				Help: "Total number of distinct products returned by collection runs.",
			},
		)

		collectorRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "collector_runs_total",
				Help: "Total number of collection runs, labeled by status.",
			},
			[]string{"status"},
		)

		collectorRateLimitDelays = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "collector_rate_limit_delay_seconds",
				Help:    "Histogram of per-host politeness waits.",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records one fetch. outcome is "ok" or a label from
// catalog.ClassifyError.
func ObserveFetch(kind, outcome string, duration time.Duration) {
	Init()
	collectorFetchesTotal.WithLabelValues(kind, outcome).Inc()
	collectorFetchDurationSecond.WithLabelValues(kind).Observe(duration.Seconds())
}

// ObserveCandidate counts a URL accepted into the candidate set.
func ObserveCandidate(source string) {
	Init()
	collectorCandidatesTotal.WithLabelValues(source).Inc()
}

// ObserveRun records the end of a collection run.
func ObserveRun(status string, products int) {
	Init()
	collectorRunsTotal.WithLabelValues(status).Inc()
	if products > 0 {
		collectorProductsTotal.Add(float64(products))
	}
}

// ObserveRateLimitDelay records the duration of a politeness wait.
func ObserveRateLimitDelay(duration time.Duration) {
	Init()
	collectorRateLimitDelays.Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
