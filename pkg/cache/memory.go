package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	value      string
	expireAt   time.Time
	lastAccess time.Time
}

// MemoryCache implements Service in process with size-bounded LRU eviction.
type MemoryCache struct {
	mu         sync.Mutex
	data       map[string]*memoryItem
	maxSize    int
	defaultTTL time.Duration
	now        func() time.Time
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		DefaultTTL:      24 * time.Hour,
		CleanupInterval: 5 * time.Minute,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		data:       make(map[string]*memoryItem),
		maxSize:    cfg.MaxSize,
		defaultTTL: cfg.DefaultTTL,
		now:        time.Now,
		stop:       make(chan struct{}),
	}

	if cfg.CleanupInterval > 0 {
		go mc.cleanup(cfg.CleanupInterval)
	}
	return mc
}

func (mc *MemoryCache) Get(_ context.Context, key string) (string, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := mc.now()
	item, ok := mc.data[key]
	if !ok {
		return "", ErrCacheMiss
	}
	if now.After(item.expireAt) {
		delete(mc.data, key)
		return "", ErrCacheMiss
	}
	item.lastAccess = now
	return item.value, nil
}

func (mc *MemoryCache) Set(_ context.Context, key, value string, expiration time.Duration) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if expiration <= 0 {
		expiration = mc.defaultTTL
	}
	if _, exists := mc.data[key]; !exists && mc.maxSize > 0 && len(mc.data) >= mc.maxSize {
		mc.evictLocked()
	}

	now := mc.now()
	mc.data[key] = &memoryItem{value: value, expireAt: now.Add(expiration), lastAccess: now}
	return nil
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		delete(mc.data, key)
	}
	return nil
}

// Len returns the number of live and not yet swept entries.
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return len(mc.data)
}

// evictLocked drops the least recently accessed entry.
func (mc *MemoryCache) evictLocked() {
	var oldestKey string
	var oldest time.Time
	for key, item := range mc.data {
		if oldestKey == "" || item.lastAccess.Before(oldest) {
			oldestKey, oldest = key, item.lastAccess
		}
	}
	if oldestKey != "" {
		delete(mc.data, oldestKey)
	}
}

func (mc *MemoryCache) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			mc.mu.Lock()
			now := mc.now()
			for key, item := range mc.data {
				if now.After(item.expireAt) {
					delete(mc.data, key)
				}
			}
			mc.mu.Unlock()
		case <-mc.stop:
			return
		}
	}
}

// Close stops the cleanup goroutine.
func (mc *MemoryCache) Close() error {
	mc.stopOnce.Do(func() { close(mc.stop) })
	return nil
}
