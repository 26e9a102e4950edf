package queue

import "github.com/prometheus/client_golang/prometheus"

var (
	pendingDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sync_agent",
		Subsystem: "queue",
		Name:      "pending_operations",
		Help:      "Number of operations waiting for a drain pass.",
	})

	failedDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sync_agent",
		Subsystem: "queue",
		Name:      "failed_operations",
		Help:      "Number of operations that exhausted their retry budget.",
	})

	enqueuedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sync_agent",
		Subsystem: "queue",
		Name:      "operations_enqueued_total",
		Help:      "Operations added to the queue, labeled by kind.",
	}, []string{"kind"})

	completedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sync_agent",
		Subsystem: "queue",
		Name:      "operations_completed_total",
		Help:      "Operations whose action succeeded, labeled by kind.",
	}, []string{"kind"})

	exhaustedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sync_agent",
		Subsystem: "queue",
		Name:      "operations_exhausted_total",
		Help:      "Operations marked failed after spending their retry budget, labeled by kind.",
	}, []string{"kind"})

	drainDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sync_agent",
		Subsystem: "queue",
		Name:      "drain_duration_seconds",
		Help:      "Time spent executing one drain pass.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})
)

func init() {
	prometheus.MustRegister(pendingDepth, failedDepth, enqueuedCounter, completedCounter, exhaustedCounter, drainDuration)
}

func setDepth(pending, failed int) {
	pendingDepth.Set(float64(pending))
	failedDepth.Set(float64(failed))
}

func recordEnqueued(kind Kind)  { enqueuedCounter.WithLabelValues(string(kind)).Inc() }
func recordCompleted(kind Kind) { completedCounter.WithLabelValues(string(kind)).Inc() }
func recordExhausted(kind Kind) { exhaustedCounter.WithLabelValues(string(kind)).Inc() }
