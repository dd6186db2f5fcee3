package tokenstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	keys map[string]time.Duration
	err  error
}

func (f *fakeRedis) Set(_ context.Context, key string, _ any, expiration time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.keys[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	var n int64
	for _, key := range keys {
		if _, ok := f.keys[key]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisRevoker(t *testing.T) {
	fake := &fakeRedis{keys: map[string]time.Duration{}}
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	revoker := NewRedisRevoker(fake)
	revoker.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, revoker.Revoke(ctx, "jti-1", now.Add(time.Hour)))
	assert.Equal(t, time.Hour, fake.keys["uimarket:revoked:jti-1"])

	require.NoError(t, revoker.Revoke(ctx, "jti-old", now.Add(-time.Second)))
	assert.NotContains(t, fake.keys, "uimarket:revoked:jti-old")

	revoked, err := revoker.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = revoker.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisRevokerErrors(t *testing.T) {
	fake := &fakeRedis{keys: map[string]time.Duration{}, err: errors.New("connection refused")}
	revoker := NewRedisRevoker(fake)

	assert.Error(t, revoker.Revoke(context.Background(), "jti", time.Now().Add(time.Hour)))
	_, err := revoker.IsRevoked(context.Background(), "jti")
	assert.Error(t, err)
}

func TestConnectRequiresURL(t *testing.T) {
	_, err := Connect(context.Background(), " ")
	assert.Error(t, err)

	_, err = Connect(context.Background(), "not a url")
	assert.Error(t, err)
}
