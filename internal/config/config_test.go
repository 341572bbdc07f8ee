package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 1024, cfg.CacheSize)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.CacheEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("FORMGUARD_ADDR", "127.0.0.1:9000")
	t.Setenv("FORMGUARD_DEFINITIONS", "defs/a.yaml,defs/b")
	t.Setenv("FORMGUARD_REDIS_ADDR", "localhost:6379")
	t.Setenv("FORMGUARD_REDIS_DB", "2")
	t.Setenv("FORMGUARD_CACHE_TTL", "0s")
	t.Setenv("FORMGUARD_LOG_FORMAT", "text")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, []string{"defs/a.yaml", "defs/b"}, cfg.Definitions)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.False(t, cfg.CacheEnabled())
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_Error(t *testing.T) {
	t.Setenv("FORMGUARD_CACHE_TTL", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}
