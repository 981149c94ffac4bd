package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "calls.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()
	exerciseCallStore(t, newTestSQLite(t))
}

func TestSQLiteStore_MigrateIdempotent(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestSQLiteStore_TimestampsRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	started := time.Date(2026, 3, 2, 10, 0, 0, 123456789, time.UTC)
	s.now = func() time.Time { return started }

	call, err := s.GetOrCreateCall(context.Background(), "c")
	require.NoError(t, err)
	assert.True(t, started.Equal(call.StartedAt))
	assert.Equal(t, []int{}, call.VoiceResponseLatenciesMS)
}

func TestSQLiteStore_ListOrdering(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	// .5s after the whole second sorts after it only with a fixed-width layout.
	for i, id := range []string{"a", "b", "c"} {
		at := base.Add(time.Duration(i) * 500 * time.Millisecond)
		s.now = func() time.Time { return at }
		_, err := s.GetOrCreateCall(ctx, id)
		require.NoError(t, err)
	}

	calls, err := s.ListCalls(ctx, 10)
	require.NoError(t, err)
	require.Len(t, calls, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{calls[0].ID, calls[1].ID, calls[2].ID})
}
