package syncer

import "github.com/prometheus/client_golang/prometheus"

var (
	passCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sync_agent",
		Subsystem: "syncer",
		Name:      "passes_total",
		Help:      "Sync passes by outcome, including declined triggers.",
	}, []string{"outcome"})

	autoSyncCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sync_agent",
		Subsystem: "syncer",
		Name:      "auto_triggers_total",
		Help:      "Sync passes started automatically after a reconnect.",
	})
)

func init() {
	prometheus.MustRegister(passCounter, autoSyncCounter)
}

func recordPass(outcome string) { passCounter.WithLabelValues(outcome).Inc() }
func recordAutoSync()           { autoSyncCounter.Inc() }
