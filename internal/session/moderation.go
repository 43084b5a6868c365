package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mossy-p/live-signaling/internal/classifier"
	"github.com/mossy-p/live-signaling/internal/logger"
	"github.com/mossy-p/live-signaling/internal/metrics"
	"github.com/mossy-p/live-signaling/internal/models"
)

const (
	DefaultStrikeThreshold   = 3
	DefaultClassifierTimeout = 10 * time.Second
)

var (
	riskyTerms  = []string{"nsfw", "sexy", "porn"}
	labelFields = []string{"label", "result", "classification"}
	flagFields  = []string{"nsfw", "is_nsfw"}
)

// Classifier scores a single frame.
type Classifier interface {
	Classify(ctx context.Context, image string) (classifier.Verdict, error)
}

// Outcome tells which branch a moderation call took.
type Outcome int

const (
	OutcomeClassified Outcome = iota
	OutcomeBanned
	OutcomeModelError
)

// Result is what a moderation call reports back to the caller.
type Result struct {
	Outcome Outcome
	Risky   bool
	Label   string
	Raw     classifier.Verdict

	// Strikes is the subject's count after this call.
	Strikes int
	// Err is the classifier failure behind OutcomeModelError.
	Err error
}

func (r Result) MarshalJSON() ([]byte, error) {
	switch r.Outcome {
	case OutcomeBanned:
		return json.Marshal(struct {
			Banned bool `json:"banned"`
		}{true})
	case OutcomeModelError:
		return json.Marshal(struct {
			OK         bool `json:"ok"`
			ModelError bool `json:"modelError"`
		}{false, true})
	default:
		raw := r.Raw
		if raw == nil {
			raw = classifier.Verdict{}
		}
		return json.Marshal(struct {
			OK    bool               `json:"ok"`
			Risky bool               `json:"risky"`
			Label string             `json:"label"`
			Raw   classifier.Verdict `json:"raw"`
		}{true, r.Risky, r.Label, raw})
	}
}

// Moderator turns classifier verdicts into strikes, bans and forced stops.
type Moderator struct {
	state      *State
	room       *Registry
	stage      *Stage
	classifier Classifier
	threshold  int
	timeout    time.Duration
	metrics    *metrics.Metrics
}

func NewModerator(state *State, room *Registry, stage *Stage, c Classifier, threshold int, timeout time.Duration, m *metrics.Metrics) *Moderator {
	if threshold < 1 {
		threshold = DefaultStrikeThreshold
	}
	if timeout <= 0 {
		timeout = DefaultClassifierTimeout
	}
	if m == nil {
		m = metrics.Nop()
	}
	return &Moderator{
		state:      state,
		room:       room,
		stage:      stage,
		classifier: c,
		threshold:  threshold,
		timeout:    timeout,
		metrics:    m,
	}
}

// Moderate classifies one sampled frame for subject.
//
// Banned subjects short-circuit. Classifier failures are reported as
// OutcomeModelError and never cost a strike. A risky verdict adds a
// strike, warns the subject's connection and, at the threshold, bans
// the subject and force-stops its broadcast.
func (m *Moderator) Moderate(ctx context.Context, subject, image string) (Result, error) {
	if subject == "" || image == "" {
		return Result{}, ErrValidation
	}
	l := logger.Ctx(ctx).With().
		Str(logger.FieldModule, "session.moderation").
		Str(logger.FieldSubject, subject).
		Logger()

	if m.state.IsBanned(subject) {
		return Result{Outcome: OutcomeBanned, Strikes: m.state.Strikes(subject)}, nil
	}

	cctx, cancel := context.WithTimeout(ctx, m.timeout)
	verdict, err := m.classifier.Classify(cctx, image)
	cancel()
	if err != nil {
		m.metrics.ClassifierErrors.Inc()
		l.Warn().Err(err).Msg("classifier failed, letting frame through")
		return Result{
			Outcome: OutcomeModelError,
			Strikes: m.state.Strikes(subject),
			Err:     fmt.Errorf("%w: %w", ErrModerationTransport, err),
		}, nil
	}

	label, risky := assess(verdict)
	m.metrics.Verdicts.WithLabelValues(fmt.Sprint(risky)).Inc()

	m.state.mu.Lock()
	defer m.state.mu.Unlock()

	// Another verdict may have banned the subject while this one was
	// being classified.
	if m.state.isBannedLocked(subject) {
		return Result{Outcome: OutcomeBanned, Strikes: m.state.strikes[subject]}, nil
	}

	res := Result{Outcome: OutcomeClassified, Risky: risky, Label: label, Raw: verdict}
	if !risky {
		res.Strikes = m.state.strikes[subject]
		return res, nil
	}

	m.state.strikes[subject]++
	count := m.state.strikes[subject]
	res.Strikes = count
	m.metrics.Strikes.Inc()
	l.Warn().Int("strikes", count).Str("label", label).Msg("risky frame")

	if connID, ok := m.room.FindConnection(subject); ok {
		m.room.send(connID, models.Message{Type: models.EventWarning, Subject: subject, Count: count})
	}

	if count >= m.threshold {
		m.state.banned[subject] = struct{}{}
		m.metrics.Bans.Inc()
		l.Warn().Int("strikes", count).Msg("subject banned")
		m.stage.forceStopLocked(subject)
	}
	return res, nil
}

// assess derives the lower-cased label and the risky flag from a verdict.
// The label is the first non-empty of label, result and classification;
// the verdict is risky if any of them names a risky term or an explicit
// nsfw flag is true.
func assess(v classifier.Verdict) (string, bool) {
	label := ""
	risky := false
	for _, f := range labelFields {
		text := strings.ToLower(textOf(v[f]))
		if text == "" {
			continue
		}
		if label == "" {
			label = text
		}
		for _, term := range riskyTerms {
			if strings.Contains(text, term) {
				risky = true
			}
		}
	}
	for _, f := range flagFields {
		if b, ok := v[f].(bool); ok && b {
			risky = true
		}
	}
	return label, risky
}

func textOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if !t {
			return ""
		}
		return "true"
	case float64:
		if t == 0 {
			return ""
		}
		return fmt.Sprint(t)
	default:
		return fmt.Sprint(t)
	}
}
