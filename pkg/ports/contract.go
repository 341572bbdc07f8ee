package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunResultCacheContract runs a suite of tests to verify that a ResultCache
// implementation adheres to the defined interface contract.
func RunResultCacheContract(t *testing.T, cache ResultCache) {
	ctx := context.Background()
	key := "contract-" + time.Now().Format("20060102150405.000000000")

	t.Run("Set and Get", func(t *testing.T) {
		payload := []byte(`{"valid":true,"value":{"username":"admin"}}`)

		require.NoError(t, cache.Set(ctx, key, payload), "Set should not return error")

		got, err := cache.Get(ctx, key)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, payload, got)
	})

	t.Run("Get Missing", func(t *testing.T) {
		_, err := cache.Get(ctx, "missing-"+key)
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, key, []byte("first")))
		require.NoError(t, cache.Set(ctx, key, []byte("second")))

		got, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), got)
	})

	t.Run("Returned Bytes Are Private", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, key, []byte("stable")))

		got, err := cache.Get(ctx, key)
		require.NoError(t, err)
		got[0] = 'X'

		again, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("stable"), again)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, key, []byte("gone soon")))
		require.NoError(t, cache.Delete(ctx, key), "Delete should not return error")

		_, err := cache.Get(ctx, key)
		assert.ErrorIs(t, err, ErrCacheMiss, "Get after Delete should return ErrCacheMiss")

		assert.NoError(t, cache.Delete(ctx, key), "deleting a missing key is not an error")
	})
}
