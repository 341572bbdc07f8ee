package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/formguard/pkg/adapters/redis"
	"github.com/aretw0/formguard/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCache_Contract(t *testing.T) {
	// Setup miniredis
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})

	ports.RunResultCacheContract(t, redis.NewFromClient(client))
}

func TestRedisCache_TTL_Expiration(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})

	cache := redis.NewFromClient(client, redis.WithTTL(1*time.Second), redis.WithPrefix("test:"))
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "digest", []byte(`{"valid":true}`)))
	assert.True(t, mr.Exists("test:digest"), "key should use the configured prefix")

	got, err := cache.Get(ctx, "digest")
	require.NoError(t, err)
	assert.Equal(t, `{"valid":true}`, string(got))

	// Fast forward time in miniredis
	mr.FastForward(2 * time.Second)

	_, err = cache.Get(ctx, "digest")
	assert.ErrorIs(t, err, ports.ErrCacheMiss)
}

func TestRedisCache_Unavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	cache := redis.New(mr.Addr(), "", 0)
	require.NoError(t, cache.Ping(context.Background()))
	mr.Close()

	_, err = cache.Get(context.Background(), "any")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ports.ErrCacheMiss)
	assert.NoError(t, cache.Close())
}
