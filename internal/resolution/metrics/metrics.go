package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the resolution controller.
type Metrics struct {
	// Resolution outcomes by operation, status and diagnostic
	Outcomes *prometheus.CounterVec

	// Search completions discarded because a newer search was already applied
	StaleDiscards prometheus.Counter

	// Searches issued but not yet completed
	SearchesInFlight prometheus.Gauge

	// End-to-end resolution latency, discovery and normalization included
	ResolveLatency *prometheus.HistogramVec
}

// New registers resolution metrics on reg (default registerer when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idlens_resolution_outcomes_total",
			Help: "Resolution outcomes by operation, status and diagnostic",
		}, []string{"operation", "status", "diagnostic"}), // operation: "primary", "search"

		StaleDiscards: factory.NewCounter(prometheus.CounterOpts{
			Name: "idlens_resolution_stale_discards_total",
			Help: "Search completions discarded as stale",
		}),

		SearchesInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "idlens_resolution_searches_in_flight",
			Help: "Number of search resolutions currently awaiting discovery",
		}),

		ResolveLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idlens_resolution_duration_seconds",
			Help:    "Duration of identity resolutions by operation",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
	}
}

// IncrementOutcome records a resolution outcome.
func (m *Metrics) IncrementOutcome(operation, status, diagnostic string) {
	if m != nil {
		if diagnostic == "" {
			diagnostic = "none"
		}
		m.Outcomes.WithLabelValues(operation, status, diagnostic).Inc()
	}
}

// IncrementStaleDiscard records a discarded search completion.
func (m *Metrics) IncrementStaleDiscard() {
	if m != nil {
		m.StaleDiscards.Inc()
	}
}

// SearchStarted and SearchFinished bracket one in-flight search.
func (m *Metrics) SearchStarted() {
	if m != nil {
		m.SearchesInFlight.Inc()
	}
}

func (m *Metrics) SearchFinished() {
	if m != nil {
		m.SearchesInFlight.Dec()
	}
}

// ObserveResolveLatency records the duration of one resolution.
func (m *Metrics) ObserveResolveLatency(operation string, d time.Duration) {
	if m != nil {
		m.ResolveLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}
