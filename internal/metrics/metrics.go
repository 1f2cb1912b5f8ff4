// Package metrics defines the Prometheus instrumentation for alarmd.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ServerInfo carries static build information as labels.
	ServerInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "alarmd_server_info",
		Help: "Static server information.",
	}, []string{"version", "channel"})

	// Fires counts alarm fires by scheduler context.
	Fires = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alarmd_fires_total",
		Help: "Alarm fires by scheduler context.",
	}, []string{"context"})

	// RingFallbacks counts audio sources that failed and fell through.
	RingFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alarmd_ring_fallbacks_total",
		Help: "Audio fallback transitions by exhausted stage.",
	}, []string{"stage"})

	// SyncMessages counts channel messages by type.
	SyncMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alarmd_channel_messages_total",
		Help: "Cross-context channel messages by type.",
	}, []string{"type"})

	// KeepaliveFailures counts failed keepalive probes.
	KeepaliveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alarmd_keepalive_failures_total",
		Help: "Keepalive probes that got no answer.",
	})

	// Notifications counts notification dispatches by outcome.
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alarmd_notifications_total",
		Help: "Notification dispatches by outcome.",
	}, []string{"outcome"})
)

// Init records static server info.
func Init(version, channel string) {
	ServerInfo.WithLabelValues(version, channel).Set(1)
}
