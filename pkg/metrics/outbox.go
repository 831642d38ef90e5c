package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics tracks the outbox publisher's per-event outcomes.
type OutboxMetrics struct {
	outcomes  *prometheus.CounterVec
	batchSize prometheus.Histogram
}

// NewOutboxMetrics registers the publisher metrics on reg. A nil reg yields a no-op recorder.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	m := &OutboxMetrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_total",
			Help:      "Outbox events handled by the publisher, by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "batch_rows",
			Help:      "Rows claimed per publisher batch.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
	}
	reg.MustRegister(m.outcomes, m.batchSize)
	return m
}

// Outcome counts one event. outcome is published, retried or dead_lettered.
func (o *OutboxMetrics) Outcome(eventType, outcome string) {
	if o == nil || o.outcomes == nil {
		return
	}
	o.outcomes.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func (o *OutboxMetrics) ObserveBatch(rows int) {
	if o == nil || o.batchSize == nil {
		return
	}
	o.batchSize.Observe(float64(rows))
}
