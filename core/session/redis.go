package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "session"

// RedisStore is a Store backed by Redis. Sessions are serialized as JSON
// and the TTL is enforced natively by Redis, refreshed on every Set.
//
// The client lifecycle is managed by the caller.
type RedisStore[Data any] struct {
	client redis.UniversalClient
	prefix string
	maxAge time.Duration
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*redisStoreConfig)

type redisStoreConfig struct {
	prefix string
	maxAge time.Duration
}

// WithRedisPrefix sets the key namespace. Defaults to "session".
func WithRedisPrefix(prefix string) RedisStoreOption {
	return func(c *redisStoreConfig) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithRedisMaxAge sets the session time-to-live.
func WithRedisMaxAge(maxAge time.Duration) RedisStoreOption {
	return func(c *redisStoreConfig) {
		if maxAge > 0 {
			c.maxAge = maxAge
		}
	}
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore[Data any](client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore[Data] {
	cfg := redisStoreConfig{
		prefix: defaultRedisPrefix,
		maxAge: defaultMaxAge,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &RedisStore[Data]{
		client: client,
		prefix: cfg.prefix,
		maxAge: cfg.maxAge,
	}
}

func (rs *RedisStore[Data]) key(id string) string {
	return rs.prefix + ":" + id
}

// Get returns the session for id, or ErrNotFound when the key is absent.
// Redis enforces the TTL, so an expired entry is simply missing.
func (rs *RedisStore[Data]) Get(ctx context.Context, id string) (Session[Data], error) {
	data, err := rs.client.Get(ctx, rs.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session[Data]{}, ErrNotFound
		}
		return Session[Data]{}, err
	}

	var sess Session[Data]
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session[Data]{}, err
	}

	// Guard against entries written with a longer TTL by an older config.
	if sess.Expired(rs.maxAge) {
		return Session[Data]{}, ErrNotFound
	}
	return sess, nil
}

// Set upserts the session, bumps its last-access time, and resets the TTL.
func (rs *RedisStore[Data]) Set(ctx context.Context, id string, sess Session[Data]) error {
	sess.Touch()

	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return rs.client.Set(ctx, rs.key(id), data, rs.maxAge).Err()
}

// Destroy removes the session. Deleting an absent key is a no-op in Redis.
func (rs *RedisStore[Data]) Destroy(ctx context.Context, id string) error {
	return rs.client.Del(ctx, rs.key(id)).Err()
}

// All returns a snapshot of the live sessions using SCAN, which does not
// block the Redis server.
func (rs *RedisStore[Data]) All(ctx context.Context) ([]Session[Data], error) {
	var out []Session[Data]

	err := rs.scan(ctx, func(keys []string) error {
		values, err := rs.client.MGet(ctx, keys...).Result()
		if err != nil {
			return err
		}
		for _, v := range values {
			raw, ok := v.(string)
			if !ok {
				continue // key expired between SCAN and MGET
			}
			var sess Session[Data]
			if err := json.Unmarshal([]byte(raw), &sess); err != nil {
				continue
			}
			if !sess.Expired(rs.maxAge) {
				out = append(out, sess)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Len returns the count of live sessions.
func (rs *RedisStore[Data]) Len(ctx context.Context) (int, error) {
	var n int
	err := rs.scan(ctx, func(keys []string) error {
		n += len(keys)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (rs *RedisStore[Data]) scan(ctx context.Context, fn func(keys []string) error) error {
	pattern := rs.prefix + ":*"
	var cursor uint64

	for {
		keys, nextCursor, err := rs.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		cursor = nextCursor
		if cursor == 0 {
			return nil
		}
	}
}

var _ Store[any] = (*RedisStore[any])(nil)
