package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// blobKey is the row holding the store.
const blobKey = "store"

// SQLite stores the blob in a key-value table.
type SQLite struct {
	db   *sql.DB
	path string
}

// NewSQLite opens or creates the database at path and migrates it.
func NewSQLite(path string) (*SQLite, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	s := &SQLite{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// SchemaVersion reports the applied migration level.
func (s *SQLite) SchemaVersion() (int, error) {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	return version, err
}

// migrations[i] brings the schema from version i to i+1.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY NOT NULL,
		value BLOB NOT NULL
	);
	INSERT OR REPLACE INTO schema_version (version) VALUES (1);`,

	// record when each row was last written
	`ALTER TABLE kv ADD COLUMN updated_at TEXT NOT NULL DEFAULT '';
	UPDATE schema_version SET version = 2;`,
}

func (s *SQLite) migrate() error {
	version, err := s.SchemaVersion()
	if err != nil {
		// no schema_version table yet
		version = 0
	}
	for v := version; v < len(migrations); v++ {
		if _, err := s.db.Exec(migrations[v]); err != nil {
			return fmt.Errorf("schema v%d: %w", v+1, err)
		}
	}
	return nil
}

// Load returns the stored blob, or nil when none was saved.
func (s *SQLite) Load(ctx context.Context) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", blobKey).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load blob: %w", err)
	}
	return blob, nil
}

// Save upserts the blob in a single statement.
func (s *SQLite) Save(ctx context.Context, blob []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, blobKey, blob, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save blob: %w", err)
	}
	return nil
}

// UpdatedAt returns when the blob was last saved.
func (s *SQLite) UpdatedAt(ctx context.Context) (time.Time, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT updated_at FROM kv WHERE key = ?", blobKey).Scan(&raw)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, raw)
}
