package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory ledger.
const MemoryPath = ":memory:"

// busyTimeoutMS is how long a connection waits on a locked database before
// reporting SQLITE_BUSY.
const busyTimeoutMS = 5000

// SQLiteStore implements the Ledger interface using a local SQLite database.
type SQLiteStore struct {
	db   *sqlx.DB
	path string
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
// Every failure is returned as a *StartupError.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDB(dbPath)
	if err != nil {
		return nil, &StartupError{Path: dbPath, Err: err}
	}

	s := &SQLiteStore{db: db, path: dbPath}
	if err := s.Initialize(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// openDB opens the connection pool and applies per-database pragmas.
func openDB(dbPath string) (*sqlx.DB, error) {
	dsn := dbPath
	if dbPath != MemoryPath {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", dbPath, busyTimeoutMS)
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Each connection to ":memory:" is its own database.
	if dbPath == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	return db, nil
}

// Initialize checks the current schema version and applies any
// outstanding migrations in order. It is safe to call on an already
// initialized ledger.
func (s *SQLiteStore) Initialize(ctx context.Context) error {
	if err := s.runMigrations(ctx); err != nil {
		return &StartupError{Path: s.path, Err: err}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database location the store was opened with.
func (s *SQLiteStore) Path() string {
	return s.path
}

// SchemaVersion reports the highest applied migration, 0 for a fresh file.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	var tableCount int
	err := s.db.GetContext(ctx,
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return 0, fmt.Errorf("checking schema_version table: %w", err)
	}
	if tableCount == 0 {
		return 0, nil
	}

	var version int
	err = s.db.GetContext(ctx, &version, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

func (s *SQLiteStore) runMigrations(ctx context.Context) error {
	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if err := s.applyMigration(ctx, m); err != nil {
			return err
		}
	}

	return nil
}

// applyMigration runs one migration in its own transaction.
func (s *SQLiteStore) applyMigration(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning migration v%d: %w", m.version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return fmt.Errorf("applying migration v%d: %w", m.version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration v%d: %w", m.version, err)
	}
	return nil
}
