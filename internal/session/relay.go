package session

import (
	"encoding/json"

	"github.com/mossy-p/live-signaling/internal/metrics"
	"github.com/mossy-p/live-signaling/internal/models"
)

// Relay fans signaling payloads and chat out to the room without
// looking inside them. Messages from one sender reach each member in
// the order they were relayed.
type Relay struct {
	room    *Registry
	metrics *metrics.Metrics
}

func NewRelay(room *Registry, m *metrics.Metrics) *Relay {
	if m == nil {
		m = metrics.Nop()
	}
	return &Relay{room: room, metrics: m}
}

// Signal forwards payload to every member except the sender and returns
// the number of peers it reached.
func (r *Relay) Signal(from string, payload json.RawMessage) int {
	sender := r.room.senderOf(from)
	n := r.room.broadcast(models.Message{
		Type:    models.EventPublicSignal,
		From:    sender.String(),
		Payload: payload,
	}, from)
	r.metrics.RelayedMessages.WithLabelValues("signal").Inc()
	return n
}

// Chat forwards text to every member, the sender included.
func (r *Relay) Chat(from, text string) int {
	sender := r.room.senderOf(from)
	n := r.room.broadcast(models.Message{
		Type: models.EventPublicMessage,
		From: sender.String(),
		Text: text,
	}, "")
	r.metrics.RelayedMessages.WithLabelValues("chat").Inc()
	return n
}
