package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mossy-p/live-signaling/internal/logger"
	"github.com/mossy-p/live-signaling/internal/metrics"
	"github.com/mossy-p/live-signaling/internal/models"
)

// RoomName is the single shared room every authenticated connection joins.
const RoomName = "public"

// Peer is the transport side of a connection. Deliver must not block;
// it reports false when the message was dropped.
type Peer interface {
	Deliver(data []byte) bool
}

// Verifier resolves an identity token to a subject.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// Directory resolves display metadata for a subject.
type Directory interface {
	DisplayName(subject string) string
}

// PresenceSink receives room membership and broadcaster changes.
// Implementations must not block.
type PresenceSink interface {
	Joined(connID, subject string)
	Left(connID string)
	LiveChanged(subject string)
}

type nopPresence struct{}

func (nopPresence) Joined(string, string) {}
func (nopPresence) Left(string)           {}
func (nopPresence) LiveChanged(string)    {}

// Identity is the result of a successful authentication.
type Identity struct {
	Subject     string
	DisplayName string
}

type connection struct {
	peer    Peer
	subject string // empty until authenticated
}

// Registry maps live connections to authenticated subjects and owns
// membership of the public room.
type Registry struct {
	state     *State
	verifier  Verifier
	directory Directory
	presence  PresenceSink
	metrics   *metrics.Metrics
	log       zerolog.Logger

	mu        sync.RWMutex
	conns     map[string]*connection
	bySubject map[string]string
	members   int
}

func NewRegistry(state *State, verifier Verifier, directory Directory, presence PresenceSink, m *metrics.Metrics) *Registry {
	if presence == nil {
		presence = nopPresence{}
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &Registry{
		state:     state,
		verifier:  verifier,
		directory: directory,
		presence:  presence,
		metrics:   m,
		log:       logger.Module("session.registry"),
		conns:     make(map[string]*connection),
		bySubject: make(map[string]string),
	}
}

// Register creates an unbound record for a new transport connection.
func (r *Registry) Register(connID string, peer Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[connID]; !exists {
		r.metrics.Connections.Inc()
	}
	r.conns[connID] = &connection{peer: peer}
	r.log.Debug().Str(logger.FieldConnectionID, connID).Msg("connection registered")
}

// Authenticate verifies token and binds the connection to its subject.
//
// On success the connection joins the room, receives auth-ok and, if a
// broadcast is live, a live-started catch-up. On failure it receives
// auth-fail and any existing binding is left as it was.
func (r *Registry) Authenticate(ctx context.Context, connID, token string) (Identity, error) {
	subject, err := r.verifier.Verify(ctx, token)
	if err != nil {
		r.send(connID, models.Message{Type: models.EventAuthFail})
		l := logger.Ctx(ctx)
		l.Info().Err(err).Str(logger.FieldConnectionID, connID).Msg("authentication failed")
		return Identity{}, fmt.Errorf("%w: %w", ErrAuth, err)
	}

	id := Identity{Subject: subject}
	if r.directory != nil {
		id.DisplayName = r.directory.DisplayName(subject)
	}

	// Verification may have taken a while; the broadcaster and the
	// connection itself are re-read under the state lock so the catch-up
	// and any concurrent live-started cannot both be missed.
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	if !r.bind(connID, subject) {
		return Identity{}, ErrUnknownConnection
	}

	r.send(connID, models.Message{
		Type:        models.EventAuthOK,
		Subject:     id.Subject,
		DisplayName: id.DisplayName,
	})
	if live := r.state.broadcaster; live != "" {
		r.send(connID, models.Message{Type: models.EventLiveStarted, Subject: live})
	}

	r.log.Info().Str(logger.FieldConnectionID, connID).Str(logger.FieldSubject, subject).Msg("connection authenticated")
	return id, nil
}

func (r *Registry) bind(connID, subject string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		return false
	}
	if c.subject == "" {
		r.members++
	} else if r.bySubject[c.subject] == connID {
		r.reassignLocked(c.subject, connID)
	}
	c.subject = subject
	r.bySubject[subject] = connID

	r.metrics.RoomMembers.Set(float64(r.members))
	r.presence.Joined(connID, subject)
	return true
}

// Unregister drops the connection and its room membership. Calling it
// for an unknown or already removed connection is a no-op.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		return
	}
	delete(r.conns, connID)
	r.metrics.Connections.Dec()

	if c.subject != "" {
		r.members--
		if r.bySubject[c.subject] == connID {
			r.reassignLocked(c.subject, connID)
		}
		r.metrics.RoomMembers.Set(float64(r.members))
		r.presence.Left(connID)
	}
	r.log.Debug().Str(logger.FieldConnectionID, connID).Str(logger.FieldSubject, c.subject).Msg("connection unregistered")
}

// reassignLocked points subject at another of its connections, if any,
// after leaving is giving it up.
func (r *Registry) reassignLocked(subject, leaving string) {
	delete(r.bySubject, subject)
	for id, c := range r.conns {
		if id != leaving && c.subject == subject {
			r.bySubject[subject] = id
			return
		}
	}
}

// SubjectOf returns the subject bound to connID.
func (r *Registry) SubjectOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.conns[connID]; ok && c.subject != "" {
		return c.subject, true
	}
	return "", false
}

// FindConnection returns a live connection bound to subject.
func (r *Registry) FindConnection(subject string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.bySubject[subject]
	return id, ok
}

// IsMember reports whether connID has joined the room.
func (r *Registry) IsMember(connID string) bool {
	_, ok := r.SubjectOf(connID)
	return ok
}

// Members returns the number of room members.
func (r *Registry) Members() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.members
}

func (r *Registry) senderOf(connID string) Sender {
	if subject, ok := r.SubjectOf(connID); ok {
		return Identified(subject)
	}
	return Anonymous
}

// broadcast delivers msg to every room member except exclude and
// returns how many peers accepted it.
func (r *Registry) broadcast(msg models.Message, exclude string) int {
	data, err := json.Marshal(msg)
	if err != nil {
		r.log.Error().Err(err).Str("type", string(msg.Type)).Msg("failed to marshal message")
		return 0
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for id, c := range r.conns {
		if c.subject == "" || id == exclude {
			continue
		}
		if c.peer.Deliver(data) {
			delivered++
		} else {
			r.log.Warn().Str(logger.FieldConnectionID, id).Msg("failed to send message to peer, buffer full")
		}
	}
	return delivered
}

// send delivers msg to a single connection, member or not.
func (r *Registry) send(connID string, msg models.Message) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		r.log.Error().Err(err).Str("type", string(msg.Type)).Msg("failed to marshal message")
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[connID]
	if !ok {
		return false
	}
	if !c.peer.Deliver(data) {
		r.log.Warn().Str(logger.FieldConnectionID, connID).Msg("failed to send message to peer, buffer full")
		return false
	}
	return true
}
