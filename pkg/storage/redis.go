package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisTTL is used when no TTL is configured.
const DefaultRedisTTL = 24 * time.Hour

// DefaultKeyPrefix namespaces snapshot keys.
const DefaultKeyPrefix = "analogcast:forecast:"

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// TTL is the lifetime of a stored snapshot. Zero means DefaultRedisTTL.
	TTL time.Duration
	// KeyPrefix is prepended to the series name. Empty means DefaultKeyPrefix.
	KeyPrefix string
	// PingTimeout bounds the connectivity check in NewRedisStoreWithOptions.
	PingTimeout time.Duration
}

// RedisStore keeps one JSON-encoded snapshot per series key. Each Put
// resets the key's TTL, so a series that stops being forecast expires.
type RedisStore struct {
	client    *redis.Client
	prefix    string
	ttl       time.Duration
	closeOnce sync.Once
	closeErr  error
}

// NewRedisStore connects to addr and verifies the connection with PING.
// A zero ttl uses DefaultRedisTTL.
func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	return NewRedisStoreWithOptions(RedisOptions{
		Addr:     addr,
		Password: password,
		DB:       db,
		TTL:      ttl,
	})
}

// NewRedisStoreWithOptions is NewRedisStore with a key prefix and ping
// timeout.
func NewRedisStoreWithOptions(opts RedisOptions) (*RedisStore, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	if opts.DB < 0 {
		return nil, errors.New("redis database number must be >= 0")
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultRedisTTL
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		MaxRetries:   3,
		DialTimeout:  opts.PingTimeout,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opts.PingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}

	return &RedisStore{client: client, prefix: opts.KeyPrefix, ttl: opts.TTL}, nil
}

// Put replaces the series' snapshot and resets its expiry.
func (r *RedisStore) Put(ctx context.Context, s Snapshot) error {
	if err := ValidateSeriesName(s.Series); err != nil {
		return err
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", s.Series, err)
	}
	if err := r.client.Set(ctx, r.key(s.Series), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("store snapshot %s: %w", s.Series, err)
	}
	return nil
}

// GetLatest returns the series' snapshot. An absent or expired key is
// found=false with a nil error.
func (r *RedisStore) GetLatest(ctx context.Context, series string) (Snapshot, bool, error) {
	if series == "" {
		return Snapshot{}, false, ErrEmptySeries
	}

	data, err := r.client.Get(ctx, r.key(series)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return Snapshot{}, false, nil
	case err != nil:
		return Snapshot{}, false, fmt.Errorf("load snapshot %s: %w", series, err)
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, false, fmt.Errorf("decode snapshot %s: %w", series, err)
	}
	return s, true, nil
}

func (r *RedisStore) key(series string) string {
	return r.prefix + series
}

// Ping checks that Redis is reachable.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the client. Later calls return the first call's result.
func (r *RedisStore) Close() error {
	r.closeOnce.Do(func() {
		if err := r.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			r.closeErr = err
		}
	})
	return r.closeErr
}
