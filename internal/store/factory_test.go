package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/voice-agent/internal/config"
)

func TestNew(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		s, err := New(ctx, config.StoreConfig{Driver: DriverMemory})
		require.NoError(t, err)
		assert.IsType(t, &MemoryStore{}, s)
	})

	t.Run("sqlite migrates", func(t *testing.T) {
		t.Parallel()
		s, err := New(ctx, config.StoreConfig{Driver: DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "v.db")})
		require.NoError(t, err)
		defer s.Close() //nolint:errcheck
		assert.IsType(t, &SQLiteStore{}, s)
		_, err = s.GetOrCreateCall(ctx, "c")
		assert.NoError(t, err)
	})

	t.Run("postgres without url falls back", func(t *testing.T) {
		t.Parallel()
		s, err := New(ctx, config.StoreConfig{Driver: DriverPostgres})
		require.NoError(t, err)
		assert.IsType(t, &MemoryStore{}, s)
	})

	t.Run("postgres required without url fails", func(t *testing.T) {
		t.Parallel()
		_, err := New(ctx, config.StoreConfig{Driver: DriverPostgres, Required: true})
		assert.Error(t, err)
	})

	t.Run("postgres bad url falls back", func(t *testing.T) {
		t.Parallel()
		s, err := New(ctx, config.StoreConfig{Driver: DriverPostgres, DatabaseURL: "://not a url"})
		require.NoError(t, err)
		assert.IsType(t, &MemoryStore{}, s)
	})

	t.Run("postgres bad url required fails", func(t *testing.T) {
		t.Parallel()
		_, err := New(ctx, config.StoreConfig{Driver: DriverPostgres, DatabaseURL: "://not a url", Required: true})
		assert.Error(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Parallel()
		_, err := New(ctx, config.StoreConfig{Driver: "mongo"})
		assert.Error(t, err)
	})
}
