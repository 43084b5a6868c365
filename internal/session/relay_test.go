package session

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mossy-p/live-signaling/internal/models"
)

func TestSignalReachesEveryoneButSender(t *testing.T) {
	h := newTestHub(nil, "u1", "u2", "u3")
	r1 := join(t, h, "c1", "u1")
	r2 := join(t, h, "c2", "u2")
	r3 := join(t, h, "c3", "u3")

	payload := json.RawMessage(`{"sdp":{"type":"offer","sdp":"v=0..."},"to":"u2"}`)
	n := h.Relay.Signal("c1", payload)
	assert.Equal(t, 2, n)

	assert.Empty(t, r1.ofType(models.EventPublicSignal))
	for _, r := range []*recorder{r2, r3} {
		got := r.ofType(models.EventPublicSignal)
		require.Len(t, got, 1)
		assert.Equal(t, "u1", got[0].From)
		assert.JSONEq(t, string(payload), string(got[0].Payload))
	}
}

func TestSignalFromUnauthenticatedIsAnon(t *testing.T) {
	h := newTestHub(nil, "u1")
	r1 := join(t, h, "c1", "u1")
	h.Connect("c9", &recorder{})

	h.Relay.Signal("c9", json.RawMessage(`{"candidate":"x"}`))

	got := r1.ofType(models.EventPublicSignal)
	require.Len(t, got, 1)
	assert.Equal(t, "anon", got[0].From)
}

func TestChatIncludesSender(t *testing.T) {
	h := newTestHub(nil, "u1", "u2")
	r1 := join(t, h, "c1", "u1")
	r2 := join(t, h, "c2", "u2")

	n := h.Relay.Chat("c1", "hello")
	assert.Equal(t, 2, n)

	for _, r := range []*recorder{r1, r2} {
		got := r.ofType(models.EventPublicMessage)
		require.Len(t, got, 1)
		assert.Equal(t, "u1", got[0].From)
		assert.Equal(t, "hello", got[0].Text)
	}
}

func TestChatFromAnonymous(t *testing.T) {
	h := newTestHub(nil, "u1")
	r1 := join(t, h, "c1", "u1")
	h.Connect("c9", &recorder{})

	h.Relay.Chat("c9", "psst")

	got := r1.ofType(models.EventPublicMessage)
	require.Len(t, got, 1)
	assert.Equal(t, "anon", got[0].From)
}

func TestRelayIsBestEffort(t *testing.T) {
	h := newTestHub(nil, "u1", "u2", "u3")
	join(t, h, "c1", "u1")
	r2 := join(t, h, "c2", "u2")
	r3 := join(t, h, "c3", "u3")
	r2.full = true

	assert.Equal(t, 1, h.Relay.Signal("c1", json.RawMessage(`{}`)))
	assert.Len(t, r3.ofType(models.EventPublicSignal), 1)
}

func TestNoBufferingForLateJoiners(t *testing.T) {
	h := newTestHub(nil, "u1", "u2")
	join(t, h, "c1", "u1")
	h.Relay.Chat("c1", "before")

	r2 := join(t, h, "c2", "u2")
	assert.Empty(t, r2.ofType(models.EventPublicMessage))
}

// Concurrent senders may interleave, but each sender's messages reach
// every member in the order they were sent.
func TestPerSenderOrdering(t *testing.T) {
	const perSender = 200
	h := newTestHub(nil, "u1", "u2", "u3")
	join(t, h, "c1", "u1")
	join(t, h, "c2", "u2")
	r3 := join(t, h, "c3", "u3")

	var wg sync.WaitGroup
	for _, conn := range []string{"c1", "c2"} {
		wg.Add(1)
		go func(conn string) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				h.Relay.Signal(conn, json.RawMessage(strconv.Itoa(i)))
			}
		}(conn)
	}
	wg.Wait()

	next := map[string]int{}
	for _, m := range r3.ofType(models.EventPublicSignal) {
		seq, err := strconv.Atoi(string(m.Payload))
		require.NoError(t, err)
		require.Equal(t, next[m.From], seq, fmt.Sprintf("out of order from %s", m.From))
		next[m.From]++
	}
	assert.Equal(t, map[string]int{"u1": perSender, "u2": perSender}, next)
}
