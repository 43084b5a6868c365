package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Strikes.Inc()
	m.Verdicts.WithLabelValues("true").Inc()
	m.Connections.Set(2)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["live_signaling_moderation_strikes_total"])
	assert.True(t, names["live_signaling_moderation_verdicts_total"])
	assert.True(t, names["live_signaling_connections"])

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Strikes))
}

func TestNopDoesNotPanicOnReuse(t *testing.T) {
	a := Nop()
	b := Nop()
	a.Bans.Inc()
	b.Bans.Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(a.Bans))
}
