// Package metrics exposes Prometheus collectors for the archiver
// service. The engine reports progress through an injected Observer
// rather than process-wide collectors, so every run (and every test)
// gets its own registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/faarchive/journaliser/internal/journal"
)

// Observer implements journal.Observer on top of a private registry.
type Observer struct {
	registry *prometheus.Registry

	batchesTotal         *prometheus.CounterVec
	batchCandidatesTotal *prometheus.CounterVec
	batchDurationSeconds *prometheus.HistogramVec
	outcomesTotal        *prometheus.CounterVec
	emptyBatchesTotal    prometheus.Counter
	peakThrottlesTotal   prometheus.Counter
	fetchRetriesTotal    prometheus.Counter
	frontierID           *prometheus.GaugeVec
	archivedFiles        prometheus.Gauge

	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
}

// NewObserver builds an Observer with a fresh registry.
func NewObserver() *Observer {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Observer{
		registry: registry,
		batchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journaliser_batches_total",
				Help: "Total number of fetch batches processed, labeled by direction.",
			},
			[]string{"direction"},
		),
		batchCandidatesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journaliser_batch_candidates_total",
				Help: "Total candidate IDs fetched across batches, labeled by direction.",
			},
			[]string{"direction"},
		),
		batchDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "journaliser_batch_duration_seconds",
				Help:    "Histogram of batch fetch+classify latencies, labeled by direction.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"direction"},
		),
		outcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "journaliser_outcomes_total",
				Help: "Total classifications, labeled by outcome.",
			},
			[]string{"outcome"},
		),
		emptyBatchesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "journaliser_empty_batches_total",
				Help: "Forward batches where every candidate was not-found.",
			},
		),
		peakThrottlesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "journaliser_peak_throttles_total",
				Help: "Batches followed by a peak-load throttle sleep.",
			},
		),
		fetchRetriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "journaliser_fetch_retries_total",
				Help: "Transport-level fetch retries.",
			},
		),
		frontierID: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "journaliser_frontier_id",
				Help: "Last confirmed journal ID per crawl direction.",
			},
			[]string{"direction"},
		),
		archivedFiles: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "journaliser_archived_files",
				Help: "Number of journal artifacts in the local cache.",
			},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		),
		httpRequestDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		),
	}
}

var _ journal.Observer = (*Observer)(nil)

// ObserveBatch records one completed fetch batch.
func (o *Observer) ObserveBatch(direction string, size int, dur time.Duration) {
	o.batchesTotal.WithLabelValues(direction).Inc()
	o.batchCandidatesTotal.WithLabelValues(direction).Add(float64(size))
	o.batchDurationSeconds.WithLabelValues(direction).Observe(dur.Seconds())
}

// ObserveOutcome records one classification result.
func (o *Observer) ObserveOutcome(outcome journal.Outcome) {
	o.outcomesTotal.WithLabelValues(string(outcome)).Inc()
}

// ObserveEmptyBatch records an all-NotFound forward batch.
func (o *Observer) ObserveEmptyBatch() {
	o.emptyBatchesTotal.Inc()
}

// ObservePeakThrottle records a peak-load throttle sleep.
func (o *Observer) ObservePeakThrottle() {
	o.peakThrottlesTotal.Inc()
}

// ObserveFetchRetry records a transport-level retry.
func (o *Observer) ObserveFetchRetry() {
	o.fetchRetriesTotal.Inc()
}

// SetFrontier publishes the last confirmed ID for a direction.
func (o *Observer) SetFrontier(direction string, id int64) {
	o.frontierID.WithLabelValues(direction).Set(float64(id))
}

// SetArchivedFiles publishes the artifact cache size.
func (o *Observer) SetArchivedFiles(n int) {
	o.archivedFiles.Set(float64(n))
}

// ObserveHTTPRequest records one ops-API request.
func (o *Observer) ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	o.httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	o.httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler returns an http.Handler exposing this Observer's registry.
func (o *Observer) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{})
}
