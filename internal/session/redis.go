package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces session keys in a shared Redis.
const KeyPrefix = "sedori:session:"

const scanBatch = 100

// RedisClient is the subset of go-redis used by RedisStore.
type RedisClient interface {
	redis.Cmdable
	Close() error
}

// RedisStore keeps sessions in Redis so several instances share state.
// Expiry is delegated to key TTLs, so Sweep has nothing to do.
type RedisStore struct {
	client RedisClient
	opts   options
}

// NewRedisStore wraps an existing client. The store owns client.
func NewRedisStore(client RedisClient, opts ...Option) *RedisStore {
	return &RedisStore{client: client, opts: buildOptions(opts)}
}

// DialRedis connects to redisURL and verifies it with a ping.
func DialRedis(ctx context.Context, redisURL string, timeout time.Duration) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func key(userID string) string {
	return KeyPrefix + userID
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, userID string) (*Session, error) {
	data, err := r.client.Get(ctx, key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session %s: %w", userID, err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", userID, err)
	}
	if sess.Expired(r.opts.now(), r.opts.ttl) {
		return nil, nil
	}
	return &sess, nil
}

// Save implements Store. The key lives for the remainder of the session TTL.
func (r *RedisStore) Save(ctx context.Context, sess *Session) error {
	remaining := r.opts.ttl - r.opts.now().Sub(sess.LastUpdated)
	if remaining <= 0 {
		return r.client.Del(ctx, key(sess.UserID)).Err()
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.UserID, err)
	}
	if err := r.client.Set(ctx, key(sess.UserID), string(data), remaining).Err(); err != nil {
		return fmt.Errorf("redis set session %s: %w", sess.UserID, err)
	}
	return nil
}

// Sweep implements Store.
func (r *RedisStore) Sweep(context.Context) (int, error) {
	return 0, nil
}

// Count implements Store by scanning the session key space.
func (r *RedisStore) Count(ctx context.Context) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, KeyPrefix+"*", scanBatch).Result()
		if err != nil {
			return 0, fmt.Errorf("redis scan sessions: %w", err)
		}
		total += len(keys)
		if next == 0 {
			return total, nil
		}
		cursor = next
	}
}

// Ping implements Store.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close implements Store.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
