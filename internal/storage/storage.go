package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Provider persists the store as one opaque blob.
// Load returns a nil blob and nil error when nothing was saved yet.
type Provider interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	Path    string // file path for json and sqlite
	Redis   RedisOptions
}

// Open creates the provider named by opts.Backend. An empty backend picks
// SQLite when its database file already exists, otherwise the JSON file.
func Open(ctx context.Context, opts Options) (Provider, error) {
	backend := opts.Backend
	if backend == "" {
		backend = BackendJSON
		if _, err := os.Stat(sqlitePath(opts.Path)); err == nil {
			backend = BackendSQLite
		}
	}

	switch backend {
	case BackendJSON:
		path := opts.Path
		if path == "" {
			var err error
			if path, err = DefaultPath("bookmarks.json"); err != nil {
				return nil, err
			}
		}
		return NewJSONFile(path), nil
	case BackendSQLite:
		return NewSQLite(sqlitePath(opts.Path))
	case BackendRedis:
		return NewRedis(ctx, opts.Redis)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

func sqlitePath(path string) string {
	if path == "" {
		p, err := DefaultPath("bookmarks.db")
		if err != nil {
			return "bookmarks.db"
		}
		return p
	}
	if filepath.Ext(path) == ".json" {
		return path[:len(path)-len(".json")] + ".db"
	}
	return path
}

// JSONFile stores the blob in a single file, written atomically.
type JSONFile struct {
	path string
}

// NewJSONFile creates a JSONFile provider for path.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

// Path returns the storage file path.
func (s *JSONFile) Path() string {
	return s.path
}

// Load reads the blob. A missing file is not an error.
func (s *JSONFile) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return data, nil
}

// Save writes blob to a temp file and renames it over the target, creating
// the directory if needed.
func (s *JSONFile) Save(_ context.Context, blob []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".bookmarks-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Close is a no-op for files.
func (s *JSONFile) Close() error { return nil }

// DefaultPath returns ~/.config/bm/<name>.
func DefaultPath(name string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "bm", name), nil
}

// Memory keeps the blob in memory. It backs tests and dry runs.
type Memory struct {
	mu      sync.Mutex
	blob    []byte
	saves   int
	LoadErr error
	SaveErr error
}

// NewMemory creates a Memory provider holding blob.
func NewMemory(blob []byte) *Memory {
	return &Memory{blob: blob}
}

func (m *Memory) Load(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.blob, nil
}

func (m *Memory) Save(_ context.Context, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.blob = append([]byte(nil), blob...)
	m.saves++
	return nil
}

// Saves counts successful writes.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *Memory) Close() error { return nil }
