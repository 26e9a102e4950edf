package outbox

import "github.com/prometheus/client_golang/prometheus"

var (
	deliveredCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "plan_server",
		Subsystem: "outbox",
		Name:      "events_delivered_total",
		Help:      "Number of outbox events successfully published to Kafka.",
	})

	failedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "plan_server",
		Subsystem: "outbox",
		Name:      "events_failed_total",
		Help:      "Number of delivery attempts that failed.",
	})

	abandonedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "plan_server",
		Subsystem: "outbox",
		Name:      "events_abandoned_total",
		Help:      "Number of outbox events abandoned after exhausting retries, labeled by event type.",
	}, []string{"event_type"})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "plan_server",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time spent claiming, delivering, and marking outbox batches.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})
)

func init() {
	prometheus.MustRegister(deliveredCounter, failedCounter, abandonedCounter, batchDuration)
}
