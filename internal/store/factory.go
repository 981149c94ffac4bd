package store

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/voice-agent/internal/config"
)

// Drivers accepted by New.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// New opens and migrates the configured backend. When the postgres driver is
// not required, a missing URL or failed connection falls back to memory.
func New(ctx context.Context, cfg config.StoreConfig) (CallStore, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemory(), nil

	case DriverSQLite:
		s, err := NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close() //nolint:errcheck
			return nil, err
		}
		return s, nil

	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			if cfg.Required {
				return nil, eris.New("store: postgres required but store.database_url is empty")
			}
			zap.L().Warn("store.database_url not set, using in-memory call store")
			return NewMemory(), nil
		}
		s, err := openPostgres(ctx, cfg)
		if err != nil {
			if cfg.Required {
				return nil, err
			}
			zap.L().Error("postgres unavailable, using in-memory call store", zap.Error(err))
			return NewMemory(), nil
		}
		return s, nil

	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

func openPostgres(ctx context.Context, cfg config.StoreConfig) (*PostgresStore, error) {
	s, err := NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}
