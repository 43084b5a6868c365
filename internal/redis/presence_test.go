package redis

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossy-p/live-signaling/config"
)

func startPresence(t *testing.T) (*miniredis.Miniredis, *Presence) {
	t.Helper()
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	p := NewPresence(client, "public")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = p.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return mr, p
}

func TestPresenceMirrorsMembership(t *testing.T) {
	mr, p := startPresence(t)

	p.Joined("c1", "u1")
	p.Joined("c2", "u2")
	p.Left("c1")

	assert.Eventually(t, func() bool {
		return mr.HGet("room:public:peers", "c2") == "u2" &&
			mr.HGet("room:public:peers", "c1") == ""
	}, time.Second, 10*time.Millisecond)
}

func TestPresenceMirrorsLiveSlot(t *testing.T) {
	mr, p := startPresence(t)

	p.LiveChanged("u1")
	assert.Eventually(t, func() bool {
		v, err := mr.Get("room:public:live")
		return err == nil && v == "u1"
	}, time.Second, 10*time.Millisecond)

	p.LiveChanged("")
	assert.Eventually(t, func() bool {
		return !mr.Exists("room:public:live")
	}, time.Second, 10*time.Millisecond)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)

	client, err := Connect(context.Background(), config.RedisConfig{Host: host, Port: port})
	require.NoError(t, err)
	assert.NoError(t, client.Close())

	mr.Close()
	_, err = Connect(context.Background(), config.RedisConfig{Host: host, Port: port})
	assert.Error(t, err)
}
