// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Server holds the runtime settings of the HTTP and MCP servers. Command-line
// flags take precedence over these values.
type Server struct {
	Addr          string        `env:"FORMGUARD_ADDR" envDefault:":8080"`
	Definitions   []string      `env:"FORMGUARD_DEFINITIONS" envSeparator:","`
	RedisAddr     string        `env:"FORMGUARD_REDIS_ADDR"`
	RedisPassword string        `env:"FORMGUARD_REDIS_PASSWORD"`
	RedisDB       int           `env:"FORMGUARD_REDIS_DB" envDefault:"0"`
	CacheTTL      time.Duration `env:"FORMGUARD_CACHE_TTL" envDefault:"10m"`
	CacheSize     int           `env:"FORMGUARD_CACHE_SIZE" envDefault:"1024"`
	LogFormat     string        `env:"FORMGUARD_LOG_FORMAT" envDefault:"json"`
	LogLevel      string        `env:"FORMGUARD_LOG_LEVEL" envDefault:"info"`
}

// Load reads Server from the environment.
func Load() (Server, error) {
	var cfg Server
	if err := ParseEnv(&cfg); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// CacheEnabled reports whether results should be cached at all.
func (s Server) CacheEnabled() bool {
	return s.CacheTTL > 0
}
