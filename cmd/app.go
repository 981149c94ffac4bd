package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/voice-agent/internal/calendar"
	"github.com/sells-group/voice-agent/internal/config"
	"github.com/sells-group/voice-agent/internal/crm"
	"github.com/sells-group/voice-agent/internal/dialogue"
	"github.com/sells-group/voice-agent/internal/extract"
	"github.com/sells-group/voice-agent/internal/flow"
	"github.com/sells-group/voice-agent/internal/metrics"
	"github.com/sells-group/voice-agent/internal/store"
	"github.com/sells-group/voice-agent/pkg/anthropic"
	"github.com/sells-group/voice-agent/pkg/salesforce"
)

const crmDrainTimeout = 15 * time.Second

// appEnv holds the wired collaborators shared by serve and demo.
type appEnv struct {
	Store    store.CallStore
	Manager  *dialogue.Manager
	Locks    *dialogue.CallLocks
	Registry *prometheus.Registry
	Sessions dialogue.SessionStore

	crm   *crm.Async
	redis *redis.Client
}

// initApp builds the store, calendar, extraction, session and CRM stack from
// c. Optional backends that fail to come up are logged and replaced by their
// in-process counterparts.
func initApp(ctx context.Context, c *config.Config) (*appEnv, error) {
	log := zap.L()

	st, err := store.New(ctx, c.Store)
	if err != nil {
		return nil, err
	}

	fl, err := flow.Load(c.Voice.FlowPath, c.Voice.ProductName)
	if err != nil {
		log.Warn("conversation flow not loaded, using defaults",
			zap.String("path", c.Voice.FlowPath),
			zap.Error(err),
		)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	env := &appEnv{
		Store:    st,
		Locks:    dialogue.NewCallLocks(),
		Registry: reg,
	}

	opts := []dialogue.Option{
		dialogue.WithMetrics(metrics.NewPrometheus(reg)),
		dialogue.WithLLMExtractor(newLLMExtractor(c)),
	}

	env.Sessions = env.initSessions(ctx, c)
	opts = append(opts, dialogue.WithSessionStore(env.Sessions))

	if c.Salesforce.Enabled {
		client, err := salesforce.Connect(salesforce.Credentials{
			LoginURL: c.Salesforce.LoginURL,
			Username: c.Salesforce.Username,
			ClientID: c.Salesforce.ClientID,
			KeyPath:  c.Salesforce.KeyPath,
		}, salesforce.WithRateLimit(c.Salesforce.RequestsPerSecond))
		if err != nil {
			log.Error("salesforce unavailable, crm sync disabled", zap.Error(err))
		} else {
			env.crm = crm.NewAsync(crm.NewSalesforceSink(client), 0)
			opts = append(opts, dialogue.WithCompletionHook(env.crm.Hook))
		}
	}

	env.Manager = dialogue.NewManager(st, calendar.New(c), fl, dialogue.Config{
		ProductName:       c.Voice.ProductName,
		Timezone:          c.Voice.Timezone,
		MaxMissesPerField: c.Voice.MaxMissesPerField,
		MinFreeTextLen:    c.Voice.MinFreeTextLen,
	}, opts...)

	log.Info("voice agent initialised",
		zap.String("store", c.Store.Driver),
		zap.String("sessions", c.Voice.SessionBackend),
		zap.String("calendar", c.Calendar.Provider),
		zap.Bool("llm", c.Anthropic.Key != ""),
		zap.Bool("crm", env.crm != nil),
	)
	return env, nil
}

func newLLMExtractor(c *config.Config) *extract.LLMExtractor {
	var client anthropic.Client
	if c.Anthropic.Key != "" {
		client = anthropic.NewClient(c.Anthropic.Key)
	}
	return extract.NewLLMExtractor(client, extract.LLMConfig{
		Model:             c.Anthropic.Model,
		MaxTokens:         c.Anthropic.MaxTokens,
		Timeout:           c.Voice.LLMTimeout(),
		RequestsPerSecond: c.Anthropic.RequestsPerSecond,
	})
}

func (e *appEnv) initSessions(ctx context.Context, c *config.Config) dialogue.SessionStore {
	if c.Voice.SessionBackend != "redis" {
		return dialogue.NewMemorySessionStore()
	}
	client := dialogue.NewRedisClient(c.Redis)
	rs := dialogue.NewRedisSessionStore(client, c.Voice.SessionTTL())
	if err := rs.Ping(ctx); err != nil {
		zap.L().Error("redis unavailable, using in-memory sessions",
			zap.String("addr", c.Redis.Addr),
			zap.Error(err),
		)
		client.Close() //nolint:errcheck
		return dialogue.NewMemorySessionStore()
	}
	e.redis = client
	return rs
}

// Close drains pending CRM pushes and releases backends.
func (e *appEnv) Close() error {
	if e.crm != nil {
		ctx, cancel := context.WithTimeout(context.Background(), crmDrainTimeout)
		if err := e.crm.Wait(ctx); err != nil {
			zap.L().Warn("crm pushes still pending at shutdown", zap.Error(err))
		}
		cancel()
	}
	if e.redis != nil {
		e.redis.Close() //nolint:errcheck
	}
	return eris.Wrap(e.Store.Close(), "close store")
}
