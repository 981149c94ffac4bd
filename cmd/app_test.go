package main

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/voice-agent/internal/config"
	"github.com/sells-group/voice-agent/internal/dialogue"
	"github.com/sells-group/voice-agent/internal/model"
)

func appConfig() *config.Config {
	c := testConfig()
	c.Store.Driver = "memory"
	c.Calendar.Provider = "mock"
	c.Voice.FlowPath = "../config/conversation-flow.yaml"
	c.Voice.SessionTTLMins = 60
	c.Voice.LLMTimeoutSecs = 4
	return c
}

func TestInitApp_Defaults(t *testing.T) {
	env, err := initApp(context.Background(), appConfig())
	require.NoError(t, err)
	t.Cleanup(func() { env.Close() }) //nolint:errcheck

	assert.IsType(t, &dialogue.MemorySessionStore{}, env.Sessions)
	assert.Nil(t, env.crm)

	res, err := env.Manager.Start(context.Background(), "app-1", model.LeadProfile{})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AgentUtterance)
}

func TestInitApp_RedisSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	c := appConfig()
	c.Voice.SessionBackend = "redis"
	c.Redis.Addr = mr.Addr()

	env, err := initApp(context.Background(), c)
	require.NoError(t, err)
	t.Cleanup(func() { env.Close() }) //nolint:errcheck

	assert.IsType(t, &dialogue.RedisSessionStore{}, env.Sessions)
	_, err = env.Manager.Start(context.Background(), "app-redis", model.LeadProfile{})
	require.NoError(t, err)
	assert.True(t, mr.Exists("voice:session:app-redis"))
}

func TestInitApp_FallsBack(t *testing.T) {
	c := appConfig()
	c.Voice.SessionBackend = "redis"
	c.Redis.Addr = "127.0.0.1:1"
	c.Voice.FlowPath = "does-not-exist.yaml"
	c.Salesforce.Enabled = true
	c.Salesforce.ClientID = "client"
	c.Salesforce.KeyPath = "does-not-exist.pem"

	env, err := initApp(context.Background(), c)
	require.NoError(t, err)
	t.Cleanup(func() { env.Close() }) //nolint:errcheck

	assert.IsType(t, &dialogue.MemorySessionStore{}, env.Sessions)
	assert.Nil(t, env.crm)
}

func TestRunJanitor_StopsOnCancel(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runJanitor(ctx, env.Manager, time.Hour)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}

	// A zero ttl disables eviction entirely.
	runJanitor(context.Background(), env.Manager, 0)
}
