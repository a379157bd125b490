// Package metrics exposes Prometheus instrumentation for the monitoring
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the collectors published at /metrics.
type Metrics struct {
	PollTicks        *prometheus.CounterVec
	FetchFailures    *prometheus.CounterVec
	RPCHealthy       prometheus.Gauge
	RPCPingMillis    prometheus.Gauge
	TrackedTokens    prometheus.Gauge
	Notifications    prometheus.Counter
	NotificationsDup prometheus.Counter
	DroppedOldest    prometheus.Counter
}

// New registers all collectors against reg and returns the bundle.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PollTicks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pulsewatch",
			Name:      "poll_ticks_total",
			Help:      "Scheduled poll ticks executed, by check.",
		}, []string{"check"}),
		FetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pulsewatch",
			Name:      "fetch_failures_total",
			Help:      "Remote fetches that degraded to a failure snapshot.",
		}, []string{"check"}),
		RPCHealthy: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pulsewatch",
			Name:      "rpc_healthy",
			Help:      "1 when the last RPC health probe returned ok.",
		}),
		RPCPingMillis: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pulsewatch",
			Name:      "rpc_ping_millis",
			Help:      "Round-trip time of the last successful health probe.",
		}),
		TrackedTokens: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pulsewatch",
			Name:      "ticker_tracked_tokens",
			Help:      "Instruments currently held by the price tracker.",
		}),
		Notifications: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pulsewatch",
			Name:      "notifications_total",
			Help:      "Toast notifications appended to the queue.",
		}),
		NotificationsDup: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pulsewatch",
			Name:      "notifications_duplicate_total",
			Help:      "Settlement events skipped because the signature was already queued.",
		}),
		DroppedOldest: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pulsewatch",
			Name:      "notifications_dropped_total",
			Help:      "Oldest entries dropped because the queue was full.",
		}),
	}
}
