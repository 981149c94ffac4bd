package main

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/voice-agent/internal/calendar"
	"github.com/sells-group/voice-agent/internal/config"
	"github.com/sells-group/voice-agent/internal/dialogue"
	"github.com/sells-group/voice-agent/internal/flow"
	"github.com/sells-group/voice-agent/internal/metrics"
	"github.com/sells-group/voice-agent/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		Voice: config.VoiceConfig{
			ProductName:       "PipelinePilot",
			Timezone:          "Europe/Berlin",
			MaxMissesPerField: 2,
			MinFreeTextLen:    10,
		},
		Server: config.ServerConfig{Port: 3000, CORSOrigins: []string{"*"}},
		Twilio: config.TwilioConfig{PublicBaseURL: "https://voice.example.com"},
	}
}

func newTestEnv(t *testing.T, opts ...dialogue.Option) *appEnv {
	t.Helper()
	st := store.NewMemory()
	reg := prometheus.NewRegistry()
	opts = append([]dialogue.Option{dialogue.WithMetrics(metrics.NewPrometheus(reg))}, opts...)
	c := testConfig()
	env := &appEnv{
		Store:    st,
		Locks:    dialogue.NewCallLocks(),
		Registry: reg,
		Sessions: dialogue.NewMemorySessionStore(),
		Manager: dialogue.NewManager(st, calendar.NewMock(), flow.Default(c.Voice.ProductName), dialogue.Config{
			ProductName:       c.Voice.ProductName,
			Timezone:          c.Voice.Timezone,
			MaxMissesPerField: c.Voice.MaxMissesPerField,
			MinFreeTextLen:    c.Voice.MinFreeTextLen,
		}, opts...),
	}
	t.Cleanup(func() { require.NoError(t, env.Close()) })
	return env
}
