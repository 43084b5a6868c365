package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mossy-p/live-signaling/internal/logger"
)

const (
	presenceTTL    = 24 * time.Hour
	presenceBuffer = 256
)

type presenceOp int

const (
	opJoined presenceOp = iota
	opLeft
	opLive
)

type presenceEvent struct {
	op      presenceOp
	connID  string
	subject string
}

// Presence mirrors room membership and the live broadcaster into Redis
// for external dashboards. It is write-only: nothing is read back.
//
// Calls never block; events are applied in order by Run.
type Presence struct {
	client *redis.Client
	room   string
	events chan presenceEvent
}

func NewPresence(client *redis.Client, room string) *Presence {
	return &Presence{
		client: client,
		room:   room,
		events: make(chan presenceEvent, presenceBuffer),
	}
}

func (p *Presence) peersKey() string { return "room:" + p.room + ":peers" }
func (p *Presence) liveKey() string  { return "room:" + p.room + ":live" }

func (p *Presence) Joined(connID, subject string) {
	p.enqueue(presenceEvent{op: opJoined, connID: connID, subject: subject})
}

func (p *Presence) Left(connID string) {
	p.enqueue(presenceEvent{op: opLeft, connID: connID})
}

// LiveChanged records the current broadcaster; "" clears it.
func (p *Presence) LiveChanged(subject string) {
	p.enqueue(presenceEvent{op: opLive, subject: subject})
}

func (p *Presence) enqueue(e presenceEvent) {
	select {
	case p.events <- e:
	default:
		l := logger.Module("redis.presence")
		l.Warn().Msg("presence buffer full, dropping update")
	}
}

// Run applies queued events until ctx is cancelled. The room keys are
// cleared on start so a restarted process does not inherit stale peers.
func (p *Presence) Run(ctx context.Context) error {
	l := logger.Module("redis.presence")

	if err := p.client.Del(ctx, p.peersKey(), p.liveKey()).Err(); err != nil {
		l.Error().Err(err).Msg("failed to reset presence keys")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-p.events:
			if err := p.apply(ctx, e); err != nil {
				l.Error().Err(err).Int("op", int(e.op)).Msg("failed to mirror presence")
			}
		}
	}
}

func (p *Presence) apply(ctx context.Context, e presenceEvent) error {
	switch e.op {
	case opJoined:
		pipe := p.client.TxPipeline()
		pipe.HSet(ctx, p.peersKey(), e.connID, e.subject)
		pipe.Expire(ctx, p.peersKey(), presenceTTL)
		_, err := pipe.Exec(ctx)
		return err
	case opLeft:
		return p.client.HDel(ctx, p.peersKey(), e.connID).Err()
	case opLive:
		if e.subject == "" {
			return p.client.Del(ctx, p.liveKey()).Err()
		}
		return p.client.Set(ctx, p.liveKey(), e.subject, presenceTTL).Err()
	}
	return nil
}
