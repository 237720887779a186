package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nhle/goal-tracker/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	return open(t, store.MemoryPath)
}

// NewFileStore creates a SQLiteStore backed by a file in a per-test temp
// directory. Use it when several connections must share one database.
func NewFileStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	return open(t, filepath.Join(t.TempDir(), "goals.db"))
}

// SeedDays toggles each date once per occurrence in dates, failing the test
// on the first error.
func SeedDays(t *testing.T, s *store.SQLiteStore, dates ...string) {
	t.Helper()
	for _, d := range dates {
		if _, err := s.Toggle(context.Background(), d); err != nil {
			t.Fatalf("seeding %s: %v", d, err)
		}
	}
}

func open(t *testing.T, path string) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}
