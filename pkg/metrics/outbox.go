package metrics

import "github.com/prometheus/client_golang/prometheus"

// PublisherMetrics counts how the outbox publisher settled each event.
type PublisherMetrics struct {
	dispatched *prometheus.CounterVec
}

func NewPublisherMetrics(reg prometheus.Registerer) *PublisherMetrics {
	if reg == nil {
		return &PublisherMetrics{}
	}
	dispatched := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_dispatched_total",
		Help: "Shipment events settled by the outbox publisher, by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(dispatched)
	return &PublisherMetrics{dispatched: dispatched}
}

// RecordPublish counts one settled event.
func (m *PublisherMetrics) RecordPublish(outcome string) {
	if m == nil || m.dispatched == nil {
		return
	}
	m.dispatched.WithLabelValues(normalizeLabel(outcome)).Inc()
}
