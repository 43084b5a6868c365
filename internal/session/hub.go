// Package session holds the live session core: the connection registry,
// the broadcaster slot, the signaling relay and the moderation engine.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/mossy-p/live-signaling/internal/logger"
	"github.com/mossy-p/live-signaling/internal/metrics"
	"github.com/mossy-p/live-signaling/internal/models"
)

type Options struct {
	Verifier          Verifier
	Directory         Directory
	Classifier        Classifier
	Presence          PresenceSink
	Metrics           *metrics.Metrics
	StrikeThreshold   int
	ClassifierTimeout time.Duration
}

// Hub wires the components around one State and dispatches inbound
// socket events to them.
type Hub struct {
	State     *State
	Registry  *Registry
	Stage     *Stage
	Relay     *Relay
	Moderator *Moderator
}

func NewHub(opts Options) *Hub {
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop()
	}
	if opts.Presence == nil {
		opts.Presence = nopPresence{}
	}

	state := NewState()
	registry := NewRegistry(state, opts.Verifier, opts.Directory, opts.Presence, opts.Metrics)
	stage := NewStage(state, registry, opts.Presence, opts.Metrics)

	return &Hub{
		State:     state,
		Registry:  registry,
		Stage:     stage,
		Relay:     NewRelay(registry, opts.Metrics),
		Moderator: NewModerator(state, registry, stage, opts.Classifier, opts.StrikeThreshold, opts.ClassifierTimeout, opts.Metrics),
	}
}

// Connect registers a new transport connection.
func (h *Hub) Connect(connID string, peer Peer) {
	h.Registry.Register(connID, peer)
}

// Disconnect removes the connection. Nothing is broadcast, and the
// broadcaster slot is left alone even if the broadcaster disconnects.
func (h *Hub) Disconnect(connID string) {
	h.Registry.Unregister(connID)
}

// Handle dispatches one inbound event from connID. Errors are reported
// to the sender as error events; they never end the connection.
func (h *Hub) Handle(ctx context.Context, connID string, msg models.Message) error {
	l := logger.Ctx(ctx).With().Str(logger.FieldConnectionID, connID).Logger()

	var err error
	switch msg.Type {
	case models.EventAuth:
		_, err = h.Registry.Authenticate(ctx, connID, msg.Token)
		// auth-fail has already been sent.
		if errors.Is(err, ErrAuth) {
			return err
		}

	case models.EventPublicMessage:
		h.Relay.Chat(connID, msg.Text)

	case models.EventPublicSignal:
		h.Relay.Signal(connID, msg.Payload)

	case models.EventGoLive:
		subject := msg.Subject
		if subject == "" {
			subject, _ = h.Registry.SubjectOf(connID)
		}
		err = h.Stage.GoLive(connID, subject)
		// banned has already been sent.
		if errors.Is(err, ErrBanned) {
			return err
		}

	case models.EventStopLive:
		h.Stage.StopLive(connID)

	default:
		l.Warn().Str("type", string(msg.Type)).Msg("unknown message type")
		err = ErrValidation
	}

	if err != nil {
		h.Registry.send(connID, models.Message{Type: models.EventError, Error: err.Error()})
	}
	return err
}
