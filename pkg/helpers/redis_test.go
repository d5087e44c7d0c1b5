package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRedisJSONRoundTrip(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, RedisSetJSON(ctx, rdb, "cache:key", payload{Name: "deals", Count: 3}, time.Minute))

	var got payload
	ok, err := RedisGetJSON(ctx, rdb, "cache:key", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, payload{Name: "deals", Count: 3}, got)
}

func TestRedisGetJSON_MissingKey(t *testing.T) {
	rdb := newTestRedis(t)

	var got map[string]string
	ok, err := RedisGetJSON(context.Background(), rdb, "cache:absent", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisGetJSON_CorruptPayload(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, rdb.Set(ctx, "cache:bad", "{not-json", time.Minute).Err())

	var got map[string]string
	ok, err := RedisGetJSON(ctx, rdb, "cache:bad", &got)
	assert.Error(t, err)
	assert.False(t, ok)
}
