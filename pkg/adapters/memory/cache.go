package memory

import (
	"context"
	"slices"
	"time"

	"github.com/aretw0/formguard/pkg/ports"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultCapacity is the entry bound used when WithCapacity is not given.
const DefaultCapacity = 1024

// Cache implements ports.ResultCache in memory with LRU eviction and an
// optional TTL. Safe for concurrent use.
type Cache struct {
	lru *expirable.LRU[string, []byte]
}

type config struct {
	ttl      time.Duration
	capacity int
}

type Option func(*config)

// WithTTL sets how long entries stay valid. Zero keeps them until evicted.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		c.ttl = ttl
	}
}

// WithCapacity bounds the number of entries. The least recently used entry is
// evicted when the bound is reached.
func WithCapacity(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// NewCache creates a new in-memory cache holding up to DefaultCapacity entries.
func NewCache(opts ...Option) *Cache {
	cfg := config{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Cache{lru: expirable.NewLRU[string, []byte](cfg.capacity, nil, cfg.ttl)}
}

// Get returns a copy of the cached value.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, ports.ErrCacheMiss
	}
	return slices.Clone(v), nil
}

// Set stores a copy of value.
func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	c.lru.Add(key, slices.Clone(value))
	return nil
}

// Delete removes the entry.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}

var _ ports.ResultCache = (*Cache)(nil)
