package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/Tous-India/server-kb-crm-sub000/internal/infrastructure/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisIdempotencyStore(t *testing.T) {
	mr, client := newMiniredisClient(t)
	store := NewRedisIdempotencyStore(client, "")
	ctx := context.Background()

	isNew, err := store.MarkProcessed(ctx, "evt-42", 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.True(t, mr.Exists(defaultIdempotencyPrefix+"evt-42"))

	isNew, err = store.MarkProcessed(ctx, "evt-42", 10*time.Minute)
	require.NoError(t, err)
	assert.False(t, isNew)

	require.NoError(t, store.Release(ctx, "evt-42"))
	assert.False(t, mr.Exists(defaultIdempotencyPrefix+"evt-42"))
	isNew, err = store.MarkProcessed(ctx, "evt-42", 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, isNew, "a released event can be claimed again")

	mr.FastForward(11 * time.Minute)

	processed, err := store.IsProcessed(ctx, "evt-42")
	require.NoError(t, err)
	assert.False(t, processed)

	require.NoError(t, store.Close())
	assert.NoError(t, client.Ping(ctx).Err(), "store does not own the client")
}

func TestRedisIdempotencyStore_Unavailable(t *testing.T) {
	mr, client := newMiniredisClient(t)
	store := NewRedisIdempotencyStore(client, "test:")
	mr.Close()

	_, err := store.MarkProcessed(context.Background(), "evt-1", time.Minute)
	assert.Error(t, err)
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	client, err := NewRedisClient(context.Background(), config.RedisConfig{Host: mr.Host(), Port: port})
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, NewPinger(client).Ping(context.Background()))

	_, err = NewRedisClient(context.Background(), config.RedisConfig{Host: "127.0.0.1", Port: 1})
	assert.Error(t, err)
}
