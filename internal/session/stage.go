package session

import (
	"github.com/rs/zerolog"

	"github.com/mossy-p/live-signaling/internal/logger"
	"github.com/mossy-p/live-signaling/internal/metrics"
	"github.com/mossy-p/live-signaling/internal/models"
)

// Stage drives the broadcaster slot between Idle and Live(subject).
type Stage struct {
	state    *State
	room     *Registry
	presence PresenceSink
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

func NewStage(state *State, room *Registry, presence PresenceSink, m *metrics.Metrics) *Stage {
	if presence == nil {
		presence = nopPresence{}
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &Stage{
		state:    state,
		room:     room,
		presence: presence,
		metrics:  m,
		log:      logger.Module("session.stage"),
	}
}

// Current returns the live subject, if any.
func (s *Stage) Current() (string, bool) {
	return s.state.Broadcaster()
}

// GoLive puts subject in the broadcaster slot and announces it to the
// room. A banned subject is refused with ErrBanned and the requesting
// connection receives a banned notice. A different subject already live
// is replaced; its connection is told who took over.
func (s *Stage) GoLive(requester, subject string) error {
	if subject == "" {
		return ErrValidation
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if s.state.isBannedLocked(subject) {
		s.room.send(requester, models.Message{Type: models.EventBanned, Subject: subject})
		s.log.Info().Str(logger.FieldSubject, subject).Str(logger.FieldConnectionID, requester).Msg("banned subject refused go-live")
		return ErrBanned
	}

	previous := s.state.broadcaster
	s.state.broadcaster = subject

	if previous != "" && previous != subject {
		if connID, ok := s.room.FindConnection(previous); ok {
			s.room.send(connID, models.Message{Type: models.EventLivePreempted, Subject: subject})
		}
		s.log.Info().Str("previous", previous).Str(logger.FieldSubject, subject).Msg("broadcast preempted")
	}

	s.room.broadcast(models.Message{Type: models.EventLiveStarted, Subject: subject}, "")
	s.presence.LiveChanged(subject)
	s.log.Info().Str(logger.FieldSubject, subject).Msg("live started")
	return nil
}

// StopLive ends the current broadcast. Any connection may call it; it
// reports false when nothing was live.
func (s *Stage) StopLive(requester string) bool {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	previous := s.state.broadcaster
	if previous == "" {
		return false
	}
	s.state.broadcaster = ""

	s.room.broadcast(models.Message{Type: models.EventLiveStopped}, "")
	s.presence.LiveChanged("")
	s.log.Info().Str(logger.FieldSubject, previous).Str(logger.FieldConnectionID, requester).Msg("live stopped")
	return true
}

// forceStopLocked clears the slot when subject holds it. The caller
// must hold state.mu.
func (s *Stage) forceStopLocked(subject string) bool {
	if s.state.broadcaster != subject {
		return false
	}
	s.state.broadcaster = ""

	s.room.broadcast(models.Message{Type: models.EventLiveStopped, Subject: subject}, "")
	s.presence.LiveChanged("")
	s.metrics.ForcedStops.Inc()
	s.log.Warn().Str(logger.FieldSubject, subject).Msg("live force-stopped by moderation")
	return true
}
