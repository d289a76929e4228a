// Package metrics exposes Prometheus metrics for the enrollment lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the lifecycle engine's counters.
type Metrics struct {
	TransitionsCommitted *prometheus.CounterVec
	TransitionsRejected  *prometheus.CounterVec
	SideEffectFailures   *prometheus.CounterVec
}

// New creates and registers the enrollment metrics.
func New() *Metrics {
	return &Metrics{
		TransitionsCommitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "datapass_transitions_committed_total",
			Help: "Committed lifecycle transitions, by event",
		}, []string{"event"}),
		TransitionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "datapass_transitions_rejected_total",
			Help: "Rejected transition attempts, by reason",
		}, []string{"reason"}),
		SideEffectFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "datapass_side_effect_failures_total",
			Help: "Side-effect failures after commit, by kind",
		}, []string{"kind"}),
	}
}

func (m *Metrics) IncrementCommitted(event string) {
	if m != nil {
		m.TransitionsCommitted.WithLabelValues(event).Inc()
	}
}

func (m *Metrics) IncrementRejected(reason string) {
	if m != nil {
		m.TransitionsRejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncrementSideEffectFailure(kind string) {
	if m != nil {
		m.SideEffectFailures.WithLabelValues(kind).Inc()
	}
}
