package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the acquisition pipeline.
type Metrics struct {
	Registry            *prometheus.Registry
	AcquisitionsTotal   *prometheus.CounterVec
	AcquisitionDuration *prometheus.HistogramVec
	ListingsTotal       *prometheus.CounterVec
	BlockedTotal        *prometheus.CounterVec
	FallbacksTotal      *prometheus.CounterVec
	ErrorsTotal         *prometheus.CounterVec
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	acquisitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acquisitions_total",
			Help: "Acquisition attempts by retailer and channel.",
		},
		[]string{"retailer", "channel"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "acquisition_duration_seconds",
			Help:    "End-to-end acquisition latency per retailer.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"retailer"},
	)
	listings := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listings_total",
			Help: "Canonical listings emitted after dedupe, by retailer.",
		},
		[]string{"retailer"},
	)
	blocked := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blocked_total",
			Help: "Fetches classified as blocked by retailer defenses.",
		},
		[]string{"retailer"},
	)
	fallbacks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallbacks_total",
			Help: "Fast-channel attempts that fell back to a rendered page.",
		},
		[]string{"retailer"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Acquisition errors by retailer and type.",
		},
		[]string{"retailer", "error_type"},
	)

	registry.MustRegister(acquisitions, duration, listings, blocked, fallbacks, errorsTotal)

	return &Metrics{
		Registry:            registry,
		AcquisitionsTotal:   acquisitions,
		AcquisitionDuration: duration,
		ListingsTotal:       listings,
		BlockedTotal:        blocked,
		FallbacksTotal:      fallbacks,
		ErrorsTotal:         errorsTotal,
	}
}

// IncAcquisition records an acquisition attempt on one channel.
func (m *Metrics) IncAcquisition(retailer, channel string) {
	if m == nil {
		return
	}
	m.AcquisitionsTotal.WithLabelValues(retailer, channel).Inc()
}

// ObserveDuration records one acquisition's wall-clock time.
func (m *Metrics) ObserveDuration(retailer string, d time.Duration) {
	if m == nil {
		return
	}
	m.AcquisitionDuration.WithLabelValues(retailer).Observe(d.Seconds())
}

// AddListings records emitted listings.
func (m *Metrics) AddListings(retailer string, n int) {
	if m == nil {
		return
	}
	m.ListingsTotal.WithLabelValues(retailer).Add(float64(n))
}

// IncBlocked records a blocked fetch.
func (m *Metrics) IncBlocked(retailer string) {
	if m == nil {
		return
	}
	m.BlockedTotal.WithLabelValues(retailer).Inc()
}

// IncFallback records a fast-to-rendered fallback.
func (m *Metrics) IncFallback(retailer string) {
	if m == nil {
		return
	}
	m.FallbacksTotal.WithLabelValues(retailer).Inc()
}

// IncError records an acquisition error for a type label.
func (m *Metrics) IncError(retailer, errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(retailer, errorType).Inc()
}
