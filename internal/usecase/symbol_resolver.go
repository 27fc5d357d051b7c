package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	applogger "StockPulse/pkg/logger"
)

// SymbolResolver maps a ticker symbol to its instrument id, cache-aside.
//
// Concurrent misses for the same new symbol are not serialized here; the
// store absorbs the duplicate-key race by re-reading the row.
type SymbolResolver struct {
	cache    drepo.InstrumentCache
	store    drepo.InstrumentStore
	profiles drepo.ProfileLookup
	exchange string
	logger   *applogger.Logger
}

// ResolverOption configures SymbolResolver.
type ResolverOption func(*SymbolResolver)

// WithProfileLookup enriches defaults for symbols that are about to be created.
func WithProfileLookup(p drepo.ProfileLookup) ResolverOption {
	return func(r *SymbolResolver) { r.profiles = p }
}

// WithDefaultExchange overrides the placeholder exchange for new instruments.
func WithDefaultExchange(exchange string) ResolverOption {
	return func(r *SymbolResolver) {
		if exchange != "" {
			r.exchange = exchange
		}
	}
}

// NewSymbolResolver creates a resolver.
func NewSymbolResolver(cache drepo.InstrumentCache, store drepo.InstrumentStore, l *applogger.Logger, opts ...ResolverOption) *SymbolResolver {
	r := &SymbolResolver{
		cache:    cache,
		store:    store,
		exchange: models.DefaultExchange,
		logger:   l,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the instrument id for symbol, creating the instrument on first sight.
func (r *SymbolResolver) Resolve(ctx context.Context, symbol string) (int64, error) {
	raw, ok, err := r.cache.Get(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("%w: cache get %s: %w", models.ErrTransientIO, symbol, err)
	}
	if ok {
		var inst models.Instrument
		if err := json.Unmarshal([]byte(raw), &inst); err == nil && inst.ID != 0 {
			return inst.ID, nil
		}
		// unreadable entry: fall through and overwrite it from the store
		r.logger.Warn("discarding bad instrument cache entry", applogger.String("symbol", symbol))
	}

	inst, err := r.findOrCreate(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("%w: find or create %s: %w", models.ErrTransientIO, symbol, err)
	}

	b, err := json.Marshal(inst)
	if err != nil {
		return 0, fmt.Errorf("%w: encode instrument %s: %w", models.ErrInternal, symbol, err)
	}
	if err := r.cache.Set(ctx, symbol, string(b)); err != nil {
		return 0, fmt.Errorf("%w: cache set %s: %w", models.ErrTransientIO, symbol, err)
	}
	return inst.ID, nil
}

func (r *SymbolResolver) findOrCreate(ctx context.Context, symbol string) (*models.Instrument, error) {
	if r.profiles != nil {
		// skip the profile round trip for rows that only fell out of the cache
		inst, err := r.store.FindBySymbol(ctx, symbol)
		if err != nil {
			return nil, err
		}
		if inst != nil {
			return inst, nil
		}
	}
	return r.store.FindOrCreate(ctx, symbol, r.defaults(ctx, symbol))
}

func (r *SymbolResolver) defaults(ctx context.Context, symbol string) models.InstrumentDefaults {
	d := models.InstrumentDefaults{DisplayName: symbol, Exchange: r.exchange}
	if r.profiles == nil {
		return d
	}
	p, err := r.profiles.Lookup(ctx, symbol)
	if err != nil {
		r.logger.Debug("profile lookup failed, using defaults",
			applogger.String("symbol", symbol),
			applogger.Error(err))
		return d
	}
	if p.DisplayName != "" {
		d.DisplayName = p.DisplayName
	}
	if p.Exchange != "" {
		d.Exchange = p.Exchange
	}
	return d
}
