package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"StockPulse/internal/domain/models"
	applogger "StockPulse/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cachedInstrument(t *testing.T, inst models.Instrument) string {
	t.Helper()
	b, err := json.Marshal(inst)
	require.NoError(t, err)
	return string(b)
}

// go test -v --run ^TestResolveCacheHit$
func TestResolveCacheHit(t *testing.T) {
	cache := newFakeCache()
	cache.data["AAPL"] = cachedInstrument(t, models.Instrument{ID: 7, Symbol: "AAPL"})
	store := newFakeInstrumentStore()

	r := NewSymbolResolver(cache, store, applogger.Nop())
	id, err := r.Resolve(context.Background(), "AAPL")

	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Zero(t, store.creates, "a hit must not touch the store")
	assert.Zero(t, cache.sets)
}

// go test -v --run ^TestResolveMissCreatesAndCaches$
func TestResolveMissCreatesAndCaches(t *testing.T) {
	cache := newFakeCache()
	store := newFakeInstrumentStore()
	r := NewSymbolResolver(cache, store, applogger.Nop())

	id, err := r.Resolve(context.Background(), "TSLA")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	require.Len(t, store.defaults, 1)
	assert.Equal(t, models.InstrumentDefaults{DisplayName: "TSLA", Exchange: models.DefaultExchange}, store.defaults[0])

	var cached models.Instrument
	require.NoError(t, json.Unmarshal([]byte(cache.data["TSLA"]), &cached))
	assert.Equal(t, int64(1), cached.ID)
	assert.Equal(t, "TSLA", cached.Symbol)

	// second call is served from the cache
	id2, err := r.Resolve(context.Background(), "TSLA")
	require.NoError(t, err)
	assert.Equal(t, id, id2)
	assert.Equal(t, 1, store.creates)
}

// go test -v --run ^TestResolveErrors$
func TestResolveErrors(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name    string
		prepare func(c *fakeCache, s *fakeInstrumentStore)
		creates int
	}{
		{
			name:    "cache get fails",
			prepare: func(c *fakeCache, _ *fakeInstrumentStore) { c.getErr = boom },
			creates: 0,
		},
		{
			name:    "store fails",
			prepare: func(_ *fakeCache, s *fakeInstrumentStore) { s.createErr = boom },
			creates: 1,
		},
		{
			name:    "cache set fails",
			prepare: func(c *fakeCache, _ *fakeInstrumentStore) { c.setErr = boom },
			creates: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := newFakeCache()
			store := newFakeInstrumentStore()
			tt.prepare(cache, store)

			_, err := NewSymbolResolver(cache, store, applogger.Nop()).Resolve(context.Background(), "MSFT")
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrTransientIO)
			assert.ErrorIs(t, err, boom, "the cause stays reachable")
			assert.Equal(t, tt.creates, store.creates)
		})
	}
}

// go test -v --run ^TestResolveOverwritesBadCacheEntry$
func TestResolveOverwritesBadCacheEntry(t *testing.T) {
	cache := newFakeCache()
	cache.data["AMZN"] = "not-json"
	store := newFakeInstrumentStore()
	store.put(models.Instrument{ID: 42, Symbol: "AMZN"})

	id, err := NewSymbolResolver(cache, store, applogger.Nop()).Resolve(context.Background(), "AMZN")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Contains(t, cache.data["AMZN"], `"id":42`)
}

// go test -v --run ^TestResolveProfileLookup$
func TestResolveProfileLookup(t *testing.T) {
	t.Run("profile fills defaults", func(t *testing.T) {
		store := newFakeInstrumentStore()
		profiles := &fakeProfiles{res: models.InstrumentDefaults{DisplayName: "Apple Inc", Exchange: "NASDAQ NMS"}}
		r := NewSymbolResolver(newFakeCache(), store, applogger.Nop(), WithProfileLookup(profiles))

		_, err := r.Resolve(context.Background(), "AAPL")
		require.NoError(t, err)
		require.Len(t, store.defaults, 1)
		assert.Equal(t, "Apple Inc", store.defaults[0].DisplayName)
		assert.Equal(t, "NASDAQ NMS", store.defaults[0].Exchange)
	})

	t.Run("profile failure falls back", func(t *testing.T) {
		store := newFakeInstrumentStore()
		profiles := &fakeProfiles{err: errors.New("rate limited")}
		r := NewSymbolResolver(newFakeCache(), store, applogger.Nop(), WithProfileLookup(profiles))

		_, err := r.Resolve(context.Background(), "IBM")
		require.NoError(t, err)
		require.Len(t, store.defaults, 1)
		assert.Equal(t, models.InstrumentDefaults{DisplayName: "IBM", Exchange: models.DefaultExchange}, store.defaults[0])
	})

	t.Run("existing row skips lookup", func(t *testing.T) {
		store := newFakeInstrumentStore()
		store.put(models.Instrument{ID: 3, Symbol: "NVDA"})
		profiles := &fakeProfiles{}
		r := NewSymbolResolver(newFakeCache(), store, applogger.Nop(), WithProfileLookup(profiles))

		id, err := r.Resolve(context.Background(), "NVDA")
		require.NoError(t, err)
		assert.Equal(t, int64(3), id)
		assert.Zero(t, profiles.calls)
		assert.Zero(t, store.creates)
	})
}

// go test -v --run ^TestResolveDefaultExchangeOption$
func TestResolveDefaultExchangeOption(t *testing.T) {
	store := newFakeInstrumentStore()
	r := NewSymbolResolver(newFakeCache(), store, applogger.Nop(), WithDefaultExchange("NYSE"), WithDefaultExchange(""))

	_, err := r.Resolve(context.Background(), "KO")
	require.NoError(t, err)
	require.Len(t, store.defaults, 1)
	assert.Equal(t, "NYSE", store.defaults[0].Exchange)
}

// go test -v --run ^TestResolveConcurrentSameSymbol$
func TestResolveConcurrentSameSymbol(t *testing.T) {
	cache := newFakeCache()
	store := newFakeInstrumentStore()
	r := NewSymbolResolver(cache, store, applogger.Nop())

	const n = 20
	ids := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := r.Resolve(context.Background(), "GOOG")
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Len(t, store.rows, 1)
}
