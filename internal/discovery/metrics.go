package discovery

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for discovery calls.
type Metrics struct {
	// Request latency by operation
	RequestDuration *prometheus.HistogramVec

	// Outcomes by operation: ok, empty, or an error category
	Outcomes *prometheus.CounterVec

	// Cache lookups by result: hit, miss, error
	CacheLookups *prometheus.CounterVec

	// 1 while the circuit breaker is open
	BreakerOpen prometheus.Gauge
}

// NewMetrics registers discovery metrics on reg (default registerer when nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idlens_discovery_request_duration_seconds",
			Help:    "Duration of discovery service requests by operation",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idlens_discovery_outcomes_total",
			Help: "Discovery request outcomes by operation",
		}, []string{"operation", "outcome"}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idlens_discovery_cache_lookups_total",
			Help: "Discovery cache lookups by result",
		}, []string{"result"}),
		BreakerOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "idlens_discovery_breaker_open",
			Help: "Whether the discovery circuit breaker is open (1) or closed (0)",
		}),
	}
}

func (m *Metrics) observeRequest(operation string, d time.Duration) {
	if m != nil {
		m.RequestDuration.WithLabelValues(operation).Observe(d.Seconds())
	}
}

func (m *Metrics) incrementOutcome(operation, outcome string) {
	if m != nil {
		m.Outcomes.WithLabelValues(operation, outcome).Inc()
	}
}

func (m *Metrics) incrementCache(result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) setBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerOpen.Set(1)
		return
	}
	m.BreakerOpen.Set(0)
}
