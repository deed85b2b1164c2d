package blobstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig describes how to reach the Redis server backing a RedisBackend.
type RedisConfig struct {
	ConnectionURL  string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"` // Format "redis://:password@localhost:6379/0"
	KeyPrefix      string        `env:"REDIS_BLOB_PREFIX" envDefault:"blob:"`            // Prepended to every blob name
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}

// RedisBackend stores each blob as a Redis string value. Append mode maps
// directly onto the APPEND command. The storage kind and quota in Config
// are advisory: Redis owns its own eviction and memory limits.
type RedisBackend struct {
	cfg    RedisConfig
	client redis.UniversalClient
}

// RedisOption configures a RedisBackend.
type RedisOption func(*RedisBackend)

// WithRedisClient sets a pre-connected client, skipping the connect/retry
// loop in Open. Useful for testing and for sharing one client across
// components.
func WithRedisClient(client redis.UniversalClient) RedisOption {
	return func(b *RedisBackend) {
		b.client = client
	}
}

// NewRedisBackend creates a Redis-backed blob backend.
func NewRedisBackend(cfg RedisConfig, opts ...RedisOption) *RedisBackend {
	b := &RedisBackend{cfg: cfg}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Open connects to Redis, retrying per the backend's RedisConfig, and
// returns a handle once a ping succeeds.
func (b *RedisBackend) Open(ctx context.Context, cfg Config) (Handle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.client != nil {
		return &redisHandle{client: b.client, prefix: b.cfg.KeyPrefix}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, b.cfg.ConnectTimeout)
	defer cancel()

	opt, err := redis.ParseURL(b.cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseConnString, err)
	}

	for range max(b.cfg.RetryAttempts, 1) {
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err == nil {
			return &redisHandle{client: client, prefix: b.cfg.KeyPrefix}, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrBackendNotReady, ctx.Err())
		case <-time.After(b.cfg.RetryInterval):
		}
	}

	return nil, ErrBackendNotReady
}

type redisHandle struct {
	client redis.UniversalClient
	prefix string
}

func (h *redisHandle) Read(ctx context.Context, name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	content, err := h.client.Get(ctx, h.prefix+name).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	return content, nil
}

func (h *redisHandle) Write(ctx context.Context, name string, content []byte, mode WriteMode) error {
	if err := validateName(name); err != nil {
		return err
	}

	switch mode {
	case ModeOverwrite:
		return h.client.Set(ctx, h.prefix+name, content, 0).Err()
	case ModeAppend:
		return h.client.Append(ctx, h.prefix+name, string(content)).Err()
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
}
