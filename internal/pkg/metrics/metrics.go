// Package metrics exposes the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lastmile"

// Outcomes of a lifecycle command.
const (
	OutcomeApplied  = "applied"
	OutcomeRefused  = "refused"
	OutcomeConflict = "conflict"
	OutcomeFailed   = "failed"
)

// Metrics groups the service collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	transitions     *prometheus.CounterVec
	publishFailures prometheus.Counter
	subscriptions   *prometheus.GaugeVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Lifecycle commands by operation and outcome.",
		}, []string{"operation", "outcome"}),
		publishFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_event_publish_failures_total",
			Help:      "Order change notifications or events that could not be sent.",
		}),
		subscriptions: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_subscriptions",
			Help:      "Open order subscriptions by source.",
		}, []string{"source"}),
	}
}

func (m *Metrics) Transition(operation, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) PublishFailed() {
	if m == nil {
		return
	}
	m.publishFailures.Inc()
}

// Subscribed adjusts the open subscription gauge of source by delta.
func (m *Metrics) Subscribed(source string, delta float64) {
	if m == nil {
		return
	}
	m.subscriptions.WithLabelValues(source).Add(delta)
}
