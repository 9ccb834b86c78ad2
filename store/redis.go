package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultPrefix is prepended to every key.
const DefaultPrefix = "tsukuyomi:resume:"

// DefaultTTL matches how long the gateway keeps a disconnected session
// resumable, give or take.
const DefaultTTL = 5 * time.Minute

// RedisConfig configures the Redis resume store.
type RedisConfig struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Prefix is prepended to keys (default: tsukuyomi:resume:).
	Prefix string
	// TTL expires entries that were not saved again in time (default 5m).
	TTL time.Duration
}

// RedisStore stores msgpack-encoded resume state in Redis.
type RedisStore struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to the server named by cfg.URL.
// Returns an error if the URL is empty or invalid.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis store requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis store: invalid URL: %w", err)
	}

	return NewRedisStoreWithClient(goredis.NewClient(opts), cfg), nil
}

// NewRedisStoreWithClient wraps an existing client. cfg.URL is ignored.
func NewRedisStoreWithClient(client *goredis.Client, cfg RedisConfig) *RedisStore {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	return &RedisStore{
		client: client,
		prefix: cfg.Prefix,
		ttl:    cfg.TTL,
	}
}

func (r *RedisStore) key(key string) string {
	return r.prefix + key
}

func (r *RedisStore) Load(ctx context.Context, key string) (*ResumeState, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis store: get: %w", err)
	}

	var state ResumeState
	if err := msgpack.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("redis store: decode: %w", err)
	}

	return &state, nil
}

func (r *RedisStore) Save(ctx context.Context, key string, state *ResumeState) error {
	copied := *state
	if copied.UpdatedAt.IsZero() {
		copied.UpdatedAt = time.Now()
	}

	data, err := msgpack.Marshal(&copied)
	if err != nil {
		return fmt.Errorf("redis store: encode: %w", err)
	}

	if err := r.client.Set(ctx, r.key(key), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis store: set: %w", err)
	}

	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis store: del: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

var _ Store = (*RedisStore)(nil)
