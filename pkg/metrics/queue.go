package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Delivery paths for recorded sales.
const (
	PathDirect = "direct"
	PathQueued = "queued"
)

// Drain outcomes reported by the offline queue.
const (
	DrainEmptied = "emptied"
	DrainHalted  = "halted"
	DrainSkipped = "skipped"
)

// QueueMetrics tracks the offline submission queue and the remote write path.
type QueueMetrics struct {
	pending     prometheus.Gauge
	deadLetters prometheus.Gauge
	drains      *prometheus.CounterVec
	deliveries  *prometheus.CounterVec
	writeTime   *prometheus.HistogramVec
}

// NewQueueMetrics registers the queue metrics on the provided registerer.
func NewQueueMetrics(reg prometheus.Registerer) *QueueMetrics {
	if reg == nil {
		return &QueueMetrics{}
	}
	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pos_offline_queue_pending",
		Help: "Sales waiting in the offline queue.",
	})
	deadLetters := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pos_offline_queue_dead_letters",
		Help: "Sales set aside after a permanent failure.",
	})
	drains := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_offline_queue_drains_total",
		Help: "Drain runs by outcome.",
	}, []string{"outcome"})
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_transactions_delivered_total",
		Help: "Sales written to the remote store by path.",
	}, []string{"path"})
	writeTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pos_remote_write_seconds",
		Help:    "Latency of remote transaction writes.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	reg.MustRegister(pending, deadLetters, drains, deliveries, writeTime)
	return &QueueMetrics{
		pending:     pending,
		deadLetters: deadLetters,
		drains:      drains,
		deliveries:  deliveries,
		writeTime:   writeTime,
	}
}

// SetDepth publishes the current queue and dead-letter sizes.
func (q *QueueMetrics) SetDepth(pending, deadLetters int) {
	if q == nil || q.pending == nil {
		return
	}
	q.pending.Set(float64(pending))
	q.deadLetters.Set(float64(deadLetters))
}

func (q *QueueMetrics) IncDrain(outcome string) {
	if q == nil || q.drains == nil {
		return
	}
	q.drains.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (q *QueueMetrics) AddDelivered(path string, n int) {
	if q == nil || q.deliveries == nil || n <= 0 {
		return
	}
	q.deliveries.WithLabelValues(normalizeLabel(path)).Add(float64(n))
}

// ObserveWrite records one remote write attempt.
func (q *QueueMetrics) ObserveWrite(duration time.Duration, err error) {
	if q == nil || q.writeTime == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	q.writeTime.WithLabelValues(result).Observe(duration.Seconds())
}
