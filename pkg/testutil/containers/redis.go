//go:build integration

package containers

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

const redisImage = "redis:7-alpine"

// RedisContainer is a throwaway Redis for the policy store suites.
type RedisContainer struct {
	Container testcontainers.Container
	Client    *redis.Client
}

// NewRedisContainer starts Redis and connects a client to it. Both are closed
// when the test finishes.
func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcredis.Run(ctx, redisImage)
	require.NoError(t, err, "start redis container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err, "redis connection string")
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err, "parse redis url %q", uri)

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err(), "ping redis")

	return &RedisContainer{Container: container, Client: client}
}

// Reset drops every key so each test starts from an empty keyspace.
func (r *RedisContainer) Reset(t *testing.T) {
	t.Helper()
	require.NoError(t, r.Client.FlushDB(context.Background()).Err(), "flush redis")
}

// TTL reports the remaining lifetime of key. It fails the test when the key
// does not exist.
func (r *RedisContainer) TTL(t *testing.T, key string) time.Duration {
	t.Helper()
	ttl, err := r.Client.TTL(context.Background(), key).Result()
	require.NoError(t, err, "ttl %s", key)
	require.NotEqual(t, time.Duration(-2), ttl, "key %s does not exist", key)
	return ttl
}
