package cache

import (
	"context"
	"time"
)

// LayeredCache implements two-level cache (L1: Memory, L2: any Service, usually Redis).
type LayeredCache struct {
	mem    *MemoryCache
	remote Service
	memTTL time.Duration
}

// NewLayeredCache creates a layered cache with memory in front of remote.
func NewLayeredCache(remote Service, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{
		MemoryMaxSize: 1000,
		MemoryTTL:     5 * time.Minute,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &LayeredCache{
		mem:    NewMemoryCache(WithMemoryMaxSize(cfg.MemoryMaxSize), WithMemoryTTL(cfg.MemoryTTL)),
		remote: remote,
		memTTL: cfg.MemoryTTL,
	}
}

func (lc *LayeredCache) Get(ctx context.Context, key string) (string, error) {
	if v, err := lc.mem.Get(ctx, key); err == nil {
		return v, nil
	}

	v, err := lc.remote.Get(ctx, key)
	if err != nil {
		return "", err
	}
	_ = lc.mem.Set(ctx, key, v, lc.memTTL)
	return v, nil
}

// Set writes through: remote first, then memory.
func (lc *LayeredCache) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	if err := lc.remote.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	ttl := lc.memTTL
	if expiration > 0 && expiration < ttl {
		ttl = expiration
	}
	_ = lc.mem.Set(ctx, key, value, ttl)
	return nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.mem.Delete(ctx, keys...)
	return lc.remote.Delete(ctx, keys...)
}

// Close closes both cache layers.
func (lc *LayeredCache) Close() error {
	_ = lc.mem.Close()
	return lc.remote.Close()
}
