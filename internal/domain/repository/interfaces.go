package repository

import (
	"context"
	"time"

	"StockPulse/internal/domain/models"
)

type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan models.TradeEvent, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Ingestor accepts trade events from any feed.
type Ingestor interface {
	Ingest(ctx context.Context, e models.TradeEvent) error
}

// InstrumentStore is the relational source of truth for instruments.
type InstrumentStore interface {
	// FindOrCreate returns the existing row or creates one with defaults.
	// A duplicate-key race is resolved by re-reading the row.
	FindOrCreate(ctx context.Context, symbol string, defaults models.InstrumentDefaults) (*models.Instrument, error)
	// FindBySymbol returns (nil, nil) when no row exists.
	FindBySymbol(ctx context.Context, symbol string) (*models.Instrument, error)
}

// TradeStore persists and reads trades.
type TradeStore interface {
	BulkInsert(ctx context.Context, batch []models.PendingTrade) error
	// FindInRange returns trades with start <= tradedAt < end, ascending by tradedAt.
	FindInRange(ctx context.Context, instrumentID int64, start, end time.Time) ([]models.Trade, error)
}

// InstrumentCache is the key-value cache in front of InstrumentStore.
// Get returns ok=false on a miss.
type InstrumentCache interface {
	Get(ctx context.Context, symbol string) (value string, ok bool, err error)
	Set(ctx context.Context, symbol, value string) error
}

// ProfileLookup fetches listing details for a symbol not seen before.
type ProfileLookup interface {
	Lookup(ctx context.Context, symbol string) (models.InstrumentDefaults, error)
}

// BatchSink receives batches that were already persisted.
type BatchSink interface {
	Name() string
	Write(ctx context.Context, batch models.FlushedBatch) error
	Close() error
}

type Metrics interface {
	RecordTradeIngested(symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordFlush(trigger string, size int)
	RecordBufferDepth(n int)
}
