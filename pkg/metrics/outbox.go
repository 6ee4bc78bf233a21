package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics tracks dispatcher batch activity.
type OutboxMetrics struct {
	batchDuration prometheus.Histogram
	processed     *prometheus.CounterVec
	pending       prometheus.Gauge
}

// NewOutboxMetrics registers the dispatcher metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	batchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Duration of dispatcher batches in seconds.",
		Buckets:   prometheus.DefBuckets,
	})
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "messages_processed_total",
		Help:      "Outbox messages marked processed, by outcome.",
	}, []string{"outcome"})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "messages_pending",
		Help:      "Outbox messages awaiting dispatch at the last batch.",
	})
	reg.MustRegister(batchDuration, processed, pending)
	return &OutboxMetrics{
		batchDuration: batchDuration,
		processed:     processed,
		pending:       pending,
	}
}

// ObserveBatch records the duration of one dispatcher batch.
func (m *OutboxMetrics) ObserveBatch(duration time.Duration) {
	if m == nil || m.batchDuration == nil {
		return
	}
	m.batchDuration.Observe(duration.Seconds())
}

// IncProcessed counts a message marked processed with the given outcome.
func (m *OutboxMetrics) IncProcessed(outcome string) {
	if m == nil || m.processed == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.processed.WithLabelValues(outcome).Inc()
}

// SetPending records the pending backlog size.
func (m *OutboxMetrics) SetPending(count int64) {
	if m == nil || m.pending == nil {
		return
	}
	m.pending.Set(float64(count))
}
