package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics records what the outbox publisher does with each row.
type OutboxMetrics struct {
	results *prometheus.CounterVec
	batches prometheus.Counter
}

// NewOutboxMetrics registers the outbox metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	results := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_total",
		Help: "Outbox rows handled by the publisher, by event type and result.",
	}, []string{"event_type", "result"})
	batches := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_batch_errors_total",
		Help: "Publisher batches that failed and were retried with backoff.",
	})
	reg.MustRegister(results, batches)
	return &OutboxMetrics{results: results, batches: batches}
}

// IncResult counts one row. result is published, retried or dead_lettered.
func (o *OutboxMetrics) IncResult(eventType, result string) {
	if o == nil || o.results == nil {
		return
	}
	o.results.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}

// IncBatchError counts a failed batch.
func (o *OutboxMetrics) IncBatchError() {
	if o == nil || o.batches == nil {
		return
	}
	o.batches.Inc()
}
