// Package tokenstore keeps the list of revoked bearer tokens in Redis.
package tokenstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "uimarket:revoked:"

// Commander is the subset of the Redis client used here.
type Commander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisRevoker stores revoked token ids until the tokens would have expired.
type RedisRevoker struct {
	client Commander
	now    func() time.Time
}

func NewRedisRevoker(client Commander) *RedisRevoker {
	return &RedisRevoker{client: client, now: time.Now}
}

// Connect parses a redis:// URL and verifies the server is reachable.
func Connect(ctx context.Context, rawURL string) (*redis.Client, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, errors.New("redis url is required")
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Revoke marks tokenID revoked. Tokens already past until are not stored.
func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, keyPrefix+tokenID, "revoked", ttl).Err()
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, keyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
