package models

import "encoding/json"

// EventType names a realtime event on the signaling socket.
type EventType string

const (
	// client -> server
	EventAuth          EventType = "auth"
	EventPublicMessage EventType = "public-message"
	EventGoLive        EventType = "go-live"
	EventStopLive      EventType = "stop-live"
	EventPublicSignal  EventType = "public-signal"

	// server -> client
	EventAuthOK        EventType = "auth-ok"
	EventAuthFail      EventType = "auth-fail"
	EventLiveStarted   EventType = "live-started"
	EventLiveStopped   EventType = "live-stopped"
	EventLivePreempted EventType = "live-preempted"
	EventBanned        EventType = "banned"
	EventWarning       EventType = "warning"
	EventError         EventType = "error"
)

// Message is the envelope for every event in both directions. Fields
// that do not apply to an event are omitted on the wire.
type Message struct {
	Type        EventType       `json:"type"`
	Token       string          `json:"token,omitempty"`
	From        string          `json:"from,omitempty"`
	Subject     string          `json:"id,omitempty"`
	DisplayName string          `json:"displayName,omitempty"`
	Text        string          `json:"text,omitempty"`
	Count       int             `json:"count,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// MarshalJSON keeps text on chat events even when it is empty.
func (m Message) MarshalJSON() ([]byte, error) {
	type plain Message
	if m.Type != EventPublicMessage {
		return json.Marshal(plain(m))
	}
	return json.Marshal(struct {
		plain
		Text string `json:"text"`
	}{plain(m), m.Text})
}
