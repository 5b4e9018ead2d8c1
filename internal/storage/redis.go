package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/logger"
)

// RedisOptions configures the Redis backend and its connect retry loop.
type RedisOptions struct {
	Addr           string
	Username       string
	Password       string
	DB             int
	Key            string
	DialTimeout    time.Duration
	ConnectTimeout time.Duration // total time spent retrying the first ping
	RetryInterval  time.Duration
	MaxWait        time.Duration
	PingTimeout    time.Duration
	Logger         logger.Logger
}

// DefaultRedisOptions returns options for a local server.
func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Addr:           "localhost:6379",
		Key:            "bm:store",
		DialTimeout:    5 * time.Second,
		ConnectTimeout: 30 * time.Second,
		RetryInterval:  500 * time.Millisecond,
		MaxWait:        5 * time.Second,
		PingTimeout:    2 * time.Second,
	}
}

// Validate reports the first invalid option.
func (o RedisOptions) Validate() error {
	switch {
	case o.Addr == "":
		return errors.New("redis addr is required")
	case o.Key == "":
		return errors.New("redis key is required")
	case o.ConnectTimeout <= 0:
		return fmt.Errorf("ConnectTimeout must be > 0, got %v", o.ConnectTimeout)
	case o.RetryInterval <= 0:
		return fmt.Errorf("RetryInterval must be > 0, got %v", o.RetryInterval)
	case o.MaxWait <= 0:
		return fmt.Errorf("MaxWait must be > 0, got %v", o.MaxWait)
	case o.PingTimeout <= 0:
		return fmt.Errorf("PingTimeout must be > 0, got %v", o.PingTimeout)
	}
	return nil
}

// Redis stores the blob as a single string value.
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis connects to Redis, retrying with exponential backoff until
// ConnectTimeout runs out or ctx is cancelled.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Username:    opts.Username,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.DialTimeout,
	})
	if err := connectWithRetry(ctx, client, opts, log); err != nil {
		client.Close()
		return nil, err
	}
	return &Redis{client: client, key: opts.Key}, nil
}

func connectWithRetry(ctx context.Context, client *redis.Client, opts RedisOptions, log logger.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	log.Info("connecting to redis", logger.String("addr", opts.Addr), logger.Duration("timeout", opts.ConnectTimeout))
	start := time.Now()
	attempt := 0
	wait := opts.RetryInterval

	for {
		attempt++

		pingCtx, pingCancel := context.WithTimeout(ctx, opts.PingTimeout)
		err := client.Ping(pingCtx).Err()
		pingCancel()

		if err == nil {
			log.Info("redis connected",
				logger.String("addr", opts.Addr),
				logger.Int("attempts", attempt),
				logger.Duration("elapsed", time.Since(start)))
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Error("redis unavailable", logger.String("addr", opts.Addr), logger.Int("attempts", attempt), logger.Error(err))
			return fmt.Errorf("redis unavailable at %s after %d attempts: %w", opts.Addr, attempt, err)
		case <-timer.C:
			log.Warn("redis ping failed, retrying",
				logger.String("addr", opts.Addr),
				logger.Int("attempt", attempt),
				logger.Duration("next_wait", wait),
				logger.Error(err))
			wait *= 2
			if wait > opts.MaxWait {
				wait = opts.MaxWait
			}
		}
	}
}

// Load returns the stored blob, or nil when the key is absent.
func (s *Redis) Load(ctx context.Context) ([]byte, error) {
	blob, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return blob, nil
}

// Save overwrites the key with blob.
func (s *Redis) Save(ctx context.Context, blob []byte) error {
	if err := s.client.Set(ctx, s.key, blob, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

// Close closes the client.
func (s *Redis) Close() error {
	return s.client.Close()
}
