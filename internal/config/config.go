package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/logger"
	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/storage"
)

// Config holds application configuration.
type Config struct {
	Backend         string        `yaml:"backend" toml:"backend"`     // json, sqlite or redis; empty picks by file
	DataPath        string        `yaml:"data_path" toml:"data_path"` // json or sqlite file
	Redis           Redis         `yaml:"redis" toml:"redis"`
	LogLevel        string        `yaml:"log_level" toml:"log_level"`
	PrettyLog       bool          `yaml:"pretty_log" toml:"pretty_log"`
	ListenAddr      string        `yaml:"listen_addr" toml:"listen_addr"`
	LinkCheck       LinkCheck     `yaml:"link_check" toml:"link_check"`
	MetadataTimeout time.Duration `yaml:"metadata_timeout" toml:"metadata_timeout"`
	SweepInterval   time.Duration `yaml:"sweep_interval" toml:"sweep_interval"` // 0 disables the background sweeper
}

// Redis configures the redis backend.
type Redis struct {
	Addr           string        `yaml:"addr" toml:"addr"`
	Username       string        `yaml:"username" toml:"username"`
	Password       string        `yaml:"password" toml:"password"`
	DB             int           `yaml:"db" toml:"db"`
	Key            string        `yaml:"key" toml:"key"`
	DialTimeout    time.Duration `yaml:"dial_timeout" toml:"dial_timeout"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" toml:"connect_timeout"`
}

// LinkCheck overrides the stored link check settings when non-zero.
type LinkCheck struct {
	Concurrency int           `yaml:"concurrency" toml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout" toml:"timeout"`
}

// Default returns the default configuration.
func Default() Config {
	redis := storage.DefaultRedisOptions()
	return Config{
		Redis: Redis{
			Addr:           redis.Addr,
			Key:            redis.Key,
			DialTimeout:    redis.DialTimeout,
			ConnectTimeout: redis.ConnectTimeout,
		},
		LogLevel:        "info",
		ListenAddr:      "127.0.0.1:8484",
		MetadataTimeout: 10 * time.Second,
		SweepInterval:   time.Hour,
	}
}

// Load reads config from a YAML or TOML file, picked by extension, and then
// applies BM_* environment overrides. A missing file is created with defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Non-fatal: keep defaults even if the file cannot be written
		_ = Save(path, &cfg)
	case err != nil:
		return nil, err
	default:
		if err := decode(path, data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Fields absent from the file keep the values already in cfg.
func decode(path string, data []byte, cfg *Config) error {
	if isTOML(path) {
		_, err := toml.NewDecoder(bytes.NewReader(data)).Decode(cfg)
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Save writes config to path in the format its extension names.
// Creates the directory if it doesn't exist.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	var buf bytes.Buffer
	if isTOML(path) {
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return err
		}
	} else {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
	}

	return os.WriteFile(path, buf.Bytes(), 0644)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// DefaultFilePath returns the default config path: ~/.config/bm/config.yaml
func DefaultFilePath() (string, error) {
	return storage.DefaultPath("config.yaml")
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch c.Backend {
	case "", storage.BackendJSON, storage.BackendSQLite, storage.BackendRedis:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.LinkCheck.Concurrency < 0 {
		return fmt.Errorf("link_check.concurrency must be >= 0, got %d", c.LinkCheck.Concurrency)
	}
	if c.LinkCheck.Timeout < 0 {
		return fmt.Errorf("link_check.timeout must be >= 0, got %v", c.LinkCheck.Timeout)
	}
	if c.MetadataTimeout <= 0 {
		return fmt.Errorf("metadata_timeout must be > 0, got %v", c.MetadataTimeout)
	}
	if c.SweepInterval < 0 {
		return fmt.Errorf("sweep_interval must be >= 0, got %v", c.SweepInterval)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Backend = getenv("BM_BACKEND", c.Backend)
	c.DataPath = getenv("BM_DATA_PATH", c.DataPath)
	c.Redis.Addr = getenv("BM_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Username = getenv("BM_REDIS_USERNAME", c.Redis.Username)
	c.Redis.Password = getenv("BM_REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getenvInt("BM_REDIS_DB", c.Redis.DB)
	c.Redis.Key = getenv("BM_REDIS_KEY", c.Redis.Key)
	c.Redis.DialTimeout = mustDuration("BM_REDIS_DIAL_TIMEOUT", c.Redis.DialTimeout)
	c.Redis.ConnectTimeout = mustDuration("BM_REDIS_CONNECT_TIMEOUT", c.Redis.ConnectTimeout)
	c.LogLevel = strings.ToLower(getenv("BM_LOG_LEVEL", c.LogLevel))
	c.PrettyLog = mustBool("BM_PRETTY_LOG", c.PrettyLog)
	c.ListenAddr = getenv("BM_LISTEN_ADDR", c.ListenAddr)
	c.LinkCheck.Concurrency = getenvInt("BM_LINK_CHECK_CONCURRENCY", c.LinkCheck.Concurrency)
	c.LinkCheck.Timeout = mustDuration("BM_LINK_CHECK_TIMEOUT", c.LinkCheck.Timeout)
	c.MetadataTimeout = mustDuration("BM_METADATA_TIMEOUT", c.MetadataTimeout)
	c.SweepInterval = mustDuration("BM_SWEEP_INTERVAL", c.SweepInterval)
}

// StorageOptions maps the config onto storage.Open options.
func (c *Config) StorageOptions(log logger.Logger) storage.Options {
	redis := storage.DefaultRedisOptions()
	redis.Addr = c.Redis.Addr
	redis.Username = c.Redis.Username
	redis.Password = c.Redis.Password
	redis.DB = c.Redis.DB
	if c.Redis.Key != "" {
		redis.Key = c.Redis.Key
	}
	if c.Redis.DialTimeout > 0 {
		redis.DialTimeout = c.Redis.DialTimeout
	}
	if c.Redis.ConnectTimeout > 0 {
		redis.ConnectTimeout = c.Redis.ConnectTimeout
	}
	redis.Logger = log

	return storage.Options{
		Backend: c.Backend,
		Path:    c.DataPath,
		Redis:   redis,
	}
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
