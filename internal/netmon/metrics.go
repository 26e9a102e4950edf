package netmon

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	probeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sync_agent",
		Subsystem: "netmon",
		Name:      "probe_duration_seconds",
		Help:      "Latency of successful reachability probes.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	})

	probeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sync_agent",
		Subsystem: "netmon",
		Name:      "probe_failures_total",
		Help:      "Number of reachability probes that resolved to offline.",
	})

	transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sync_agent",
		Subsystem: "netmon",
		Name:      "transitions_total",
		Help:      "Connectivity transitions, labeled by resulting state.",
	}, []string{"to"})
)

func init() {
	prometheus.MustRegister(probeDuration, probeFailures, transitions)
}

func recordProbe(ok bool, latency time.Duration) {
	if ok {
		probeDuration.Observe(latency.Seconds())
		return
	}
	probeFailures.Inc()
}

func recordTransition(online bool) {
	state := "offline"
	if online {
		state = "online"
	}
	transitions.WithLabelValues(state).Inc()
}
