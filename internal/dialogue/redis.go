package dialogue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/sells-group/voice-agent/internal/config"
)

const sessionKeyPrefix = "voice:session:"

// RedisSessionStore persists sessions as JSON values that expire after ttl of
// inactivity, so several server replicas can share calls.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient builds a client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// NewRedisSessionStore wraps client. A non-positive ttl keeps sessions forever.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisSessionStore{client: client, ttl: ttl}
}

// Ping checks connectivity.
func (r *RedisSessionStore) Ping(ctx context.Context) error {
	return eris.Wrap(r.client.Ping(ctx).Err(), "dialogue: redis ping")
}

func (r *RedisSessionStore) Get(ctx context.Context, callID string) (*Session, error) {
	raw, err := r.client.Get(ctx, sessionKeyPrefix+callID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "dialogue: redis get session %s", callID)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, eris.Wrapf(err, "dialogue: decode session %s", callID)
	}
	return s.clone(), nil
}

func (r *RedisSessionStore) Put(ctx context.Context, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return eris.Wrapf(err, "dialogue: encode session %s", s.CallID)
	}
	return eris.Wrapf(r.client.Set(ctx, sessionKeyPrefix+s.CallID, raw, r.ttl).Err(),
		"dialogue: redis put session %s", s.CallID)
}

func (r *RedisSessionStore) Delete(ctx context.Context, callID string) error {
	return eris.Wrapf(r.client.Del(ctx, sessionKeyPrefix+callID).Err(), "dialogue: redis delete session %s", callID)
}

// Evict is a no-op; keys expire through their TTL.
func (r *RedisSessionStore) Evict(context.Context, time.Time) (int, error) {
	return 0, nil
}
