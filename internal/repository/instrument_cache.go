package repository

import (
	"context"
	"errors"
	"time"

	domrepo "StockPulse/internal/domain/repository"
	pkgcache "StockPulse/pkg/cache"
)

// CachedInstruments adapts a pkg/cache Service to InstrumentCache.
type CachedInstruments struct {
	svc pkgcache.Service
	ttl time.Duration
}

// NewCachedInstruments creates the adapter; ttl <= 0 stores without expiry.
func NewCachedInstruments(svc pkgcache.Service, ttl time.Duration) *CachedInstruments {
	if ttl < 0 {
		ttl = 0
	}
	return &CachedInstruments{svc: svc, ttl: ttl}
}

func (c *CachedInstruments) Get(ctx context.Context, symbol string) (string, bool, error) {
	v, err := c.svc.Get(ctx, symbol)
	if errors.Is(err, pkgcache.ErrCacheMiss) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *CachedInstruments) Set(ctx context.Context, symbol, value string) error {
	return c.svc.Set(ctx, symbol, value, c.ttl)
}

var _ domrepo.InstrumentCache = (*CachedInstruments)(nil)
