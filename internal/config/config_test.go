package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/config"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/logger"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/storage"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	assert.NilError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_MissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := config.Load(path)
	assert.NilError(t, err)
	assert.DeepEqual(t, *cfg, config.Default())

	_, err = os.Stat(path)
	assert.NilError(t, err, "defaults should be written back")

	again, err := config.Load(path)
	assert.NilError(t, err)
	assert.DeepEqual(t, *again, config.Default())
}

func TestLoad_Formats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "config.yaml",
			content: `backend: sqlite
data_path: /tmp/bm.db
pretty_log: true
link_check:
  concurrency: 3
  timeout: 4s
redis:
  addr: redis:6379
  db: 2
`,
		},
		{
			name: "toml",
			file: "config.toml",
			content: `backend = "sqlite"
data_path = "/tmp/bm.db"
pretty_log = true

[link_check]
concurrency = 3
timeout = "4s"

[redis]
addr = "redis:6379"
db = 2
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Load(writeFile(t, tt.file, tt.content))
			assert.NilError(t, err)

			assert.Equal(t, cfg.Backend, storage.BackendSQLite)
			assert.Equal(t, cfg.DataPath, "/tmp/bm.db")
			assert.Assert(t, cfg.PrettyLog)
			assert.Equal(t, cfg.LinkCheck.Concurrency, 3)
			assert.Equal(t, cfg.LinkCheck.Timeout, 4*time.Second)
			assert.Equal(t, cfg.Redis.Addr, "redis:6379")
			assert.Equal(t, cfg.Redis.DB, 2)

			// untouched fields keep their defaults
			def := config.Default()
			assert.Equal(t, cfg.LogLevel, def.LogLevel)
			assert.Equal(t, cfg.ListenAddr, def.ListenAddr)
			assert.Equal(t, cfg.Redis.Key, def.Redis.Key)
			assert.Equal(t, cfg.SweepInterval, def.SweepInterval)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", "backend: json\nlog_level: info\n")

	t.Setenv("BM_BACKEND", "redis")
	t.Setenv("BM_LOG_LEVEL", "DEBUG")
	t.Setenv("BM_PRETTY_LOG", "true")
	t.Setenv("BM_REDIS_DB", "5")
	t.Setenv("BM_SWEEP_INTERVAL", "15m")
	t.Setenv("BM_METADATA_TIMEOUT", "not-a-duration")

	cfg, err := config.Load(path)
	assert.NilError(t, err)

	assert.Equal(t, cfg.Backend, storage.BackendRedis)
	assert.Equal(t, cfg.LogLevel, "debug")
	assert.Assert(t, cfg.PrettyLog)
	assert.Equal(t, cfg.Redis.DB, 5)
	assert.Equal(t, cfg.SweepInterval, 15*time.Minute)
	// invalid values fall back to the current value
	assert.Equal(t, cfg.MetadataTimeout, config.Default().MetadataTimeout)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "bad backend", content: "backend: postgres\n", wantErr: `unknown backend "postgres"`},
		{name: "negative concurrency", content: "link_check:\n  concurrency: -1\n", wantErr: "link_check.concurrency"},
		{name: "zero metadata timeout", content: "metadata_timeout: 0s\n", wantErr: "metadata_timeout"},
		{name: "malformed", content: "backend: [\n", wantErr: "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeFile(t, "config.yaml", tt.content))
			assert.Assert(t, is.ErrorContains(err, tt.wantErr))
		})
	}
}

func TestStorageOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Backend = storage.BackendRedis
	cfg.DataPath = "/data/bm.json"
	cfg.Redis.Addr = "cache:6379"
	cfg.Redis.Key = ""
	cfg.Redis.ConnectTimeout = 3 * time.Second

	opts := cfg.StorageOptions(logger.Nop())

	assert.Equal(t, opts.Backend, storage.BackendRedis)
	assert.Equal(t, opts.Path, "/data/bm.json")
	assert.Equal(t, opts.Redis.Addr, "cache:6379")
	assert.Equal(t, opts.Redis.Key, storage.DefaultRedisOptions().Key)
	assert.Equal(t, opts.Redis.ConnectTimeout, 3*time.Second)
	assert.Assert(t, opts.Redis.Logger != nil)
	assert.NilError(t, opts.Redis.Validate())
}
