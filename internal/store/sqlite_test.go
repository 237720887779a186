package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/goal-tracker/internal/store"
	"github.com/nhle/goal-tracker/tests/testutil"
)

func TestInitialize_Idempotent(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	v1, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	require.Greater(t, v1, 0)

	require.NoError(t, s.Initialize(ctx))
	require.NoError(t, s.Initialize(ctx))

	v2, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}

func TestNewSQLiteStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "goals.db")

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	_, err = s.Toggle(context.Background(), "2024-03-01")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, path, s.Path())

	days, err := s.ListCompleted(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-01"}, days)
}

func TestNewSQLiteStore_UnwritableLocation(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	// A regular file where the parent directory should be.
	_, err := store.NewSQLiteStore(filepath.Join(blocker, "goals.db"))
	require.Error(t, err)

	var startErr *store.StartupError
	require.True(t, errors.As(err, &startErr), "want StartupError, got %T", err)
}
