package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the archiver.
type Metrics struct {
	Registry           *prometheus.Registry
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    prometheus.Histogram
	BooksArchivedTotal prometheus.Counter
	BooksAbsentTotal   prometheus.Counter
	ImagesMissingTotal prometheus.Counter
	ErrorsTotal        *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archiver_requests_total",
			Help: "Total HTTP requests issued by the archiver.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "archiver_request_duration_seconds",
			Help:    "HTTP request latency for archiver requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	archived := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "archiver_books_archived_total",
			Help: "Total number of books written to the archive and manifest.",
		},
	)
	absent := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "archiver_books_absent_total",
			Help: "Total number of book IDs the site reported as absent.",
		},
	)
	imagesMissing := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "archiver_images_missing_total",
			Help: "Total number of archived books whose cover was unavailable.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archiver_errors_total",
			Help: "Total number of archiver errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(requests, requestDuration, archived, absent, imagesMissing, errorsTotal)

	return &Metrics{
		Registry:           registry,
		RequestsTotal:      requests,
		RequestDuration:    requestDuration,
		BooksArchivedTotal: archived,
		BooksAbsentTotal:   absent,
		ImagesMissingTotal: imagesMissing,
		ErrorsTotal:        errorsTotal,
	}
}

// IncRequest increments the requests counter for a fetch phase.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncArchived increments the archived books counter.
func (m *Metrics) IncArchived() {
	if m == nil {
		return
	}
	m.BooksArchivedTotal.Inc()
}

// IncAbsent increments the absent books counter.
func (m *Metrics) IncAbsent() {
	if m == nil {
		return
	}
	m.BooksAbsentTotal.Inc()
}

// IncImageMissing increments the missing covers counter.
func (m *Metrics) IncImageMissing() {
	if m == nil {
		return
	}
	m.ImagesMissingTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
