package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mossy-p/live-signaling/internal/classifier"
	"github.com/mossy-p/live-signaling/internal/models"
)

var errBadToken = errors.New("bad token")

// recorder is a Peer that keeps every message it is given.
type recorder struct {
	mu   sync.Mutex
	msgs []models.Message
	full bool
}

func (r *recorder) Deliver(data []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return false
	}
	var m models.Message
	if err := json.Unmarshal(data, &m); err != nil {
		panic(err)
	}
	r.msgs = append(r.msgs, m)
	return true
}

func (r *recorder) messages() []models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Message(nil), r.msgs...)
}

func (r *recorder) ofType(t models.EventType) []models.Message {
	var out []models.Message
	for _, m := range r.messages() {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

func (r *recorder) types() []models.EventType {
	var out []models.EventType
	for _, m := range r.messages() {
		out = append(out, m.Type)
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = nil
}

// tokens maps token -> subject; "tok-<subject>" is the convention.
type tokens map[string]string

func (t tokens) Verify(_ context.Context, token string) (string, error) {
	if s, ok := t[token]; ok {
		return s, nil
	}
	return "", errBadToken
}

type names map[string]string

func (n names) DisplayName(subject string) string { return n[subject] }

type classifyFunc func(ctx context.Context, image string) (classifier.Verdict, error)

func (f classifyFunc) Classify(ctx context.Context, image string) (classifier.Verdict, error) {
	return f(ctx, image)
}

func risky(context.Context, string) (classifier.Verdict, error) {
	return classifier.Verdict{"label": "NSFW"}, nil
}

func safe(context.Context, string) (classifier.Verdict, error) {
	return classifier.Verdict{"label": "neutral"}, nil
}

func newTestHub(c Classifier, subjects ...string) *Hub {
	tk := tokens{}
	nm := names{}
	for _, s := range subjects {
		tk["tok-"+s] = s
		nm[s] = "Name " + s
	}
	if c == nil {
		c = classifyFunc(safe)
	}
	return NewHub(Options{
		Verifier:   tk,
		Directory:  nm,
		Classifier: c,
	})
}

// join connects connID and authenticates it as subject.
func join(t *testing.T, h *Hub, connID, subject string) *recorder {
	t.Helper()
	r := &recorder{}
	h.Connect(connID, r)
	_, err := h.Registry.Authenticate(context.Background(), connID, "tok-"+subject)
	require.NoError(t, err)
	return r
}
