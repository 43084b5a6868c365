// Package metrics holds the Prometheus collectors for the signaling server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "live_signaling"

type Metrics struct {
	Connections      prometheus.Gauge
	RoomMembers      prometheus.Gauge
	RelayedMessages  *prometheus.CounterVec
	Verdicts         *prometheus.CounterVec
	ClassifierErrors prometheus.Counter
	Strikes          prometheus.Counter
	Bans             prometheus.Counter
	ForcedStops      prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Open realtime connections.",
		}),
		RoomMembers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "room_members",
			Help:      "Authenticated connections in the public room.",
		}),
		RelayedMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relayed_messages_total",
			Help:      "Messages fanned out to the room, by kind.",
		}, []string{"kind"}),
		Verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "moderation",
			Name:      "verdicts_total",
			Help:      "Classifier verdicts, by risky flag.",
		}, []string{"risky"}),
		ClassifierErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "moderation",
			Name:      "classifier_errors_total",
			Help:      "Classifier calls that failed and were let through.",
		}),
		Strikes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "moderation",
			Name:      "strikes_total",
			Help:      "Strikes recorded against subjects.",
		}),
		Bans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "moderation",
			Name:      "bans_total",
			Help:      "Subjects banned from broadcasting.",
		}),
		ForcedStops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "moderation",
			Name:      "forced_stops_total",
			Help:      "Live broadcasts terminated by moderation.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Connections,
			m.RoomMembers,
			m.RelayedMessages,
			m.Verdicts,
			m.ClassifierErrors,
			m.Strikes,
			m.Bans,
			m.ForcedStops,
		)
	}
	return m
}

// Nop returns collectors that are not registered anywhere.
func Nop() *Metrics {
	return New(nil)
}
