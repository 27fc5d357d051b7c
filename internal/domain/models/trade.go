package models

import (
	"errors"
	"time"
)

// TradeEvent is a single tick as delivered by an inbound feed.
type TradeEvent struct {
	Symbol         string  `json:"symbol"`
	Price          float64 `json:"price"`
	Volume         float64 `json:"volume"`
	TradedAtMillis int64   `json:"t"`
}

// TradedAt converts the feed timestamp to time.
func (e TradeEvent) TradedAt() time.Time {
	return time.UnixMilli(e.TradedAtMillis).UTC()
}

// Validate checks the shape of a feed event: a symbol, a positive
// timestamp and price, and a non-negative volume.
func (e TradeEvent) Validate() error {
	switch {
	case e.Symbol == "":
		return errors.New("symbol empty")
	case e.TradedAtMillis <= 0:
		return errors.New("timestamp invalid")
	case e.Price <= 0:
		return errors.New("price must be positive")
	case e.Volume < 0:
		return errors.New("negative volume")
	}
	return nil
}

// PendingTrade is a trade-creation record waiting in the batch buffer.
type PendingTrade struct {
	InstrumentID int64
	Price        float64
	Volume       float64
	TradedAt     time.Time
}

// Trade is a persisted tick. Immutable once stored.
type Trade struct {
	ID           int64
	InstrumentID int64
	Price        float64
	Volume       float64
	TradedAt     time.Time
}

// FlushedBatch is a batch that reached the trade store, as handed to secondary sinks.
type FlushedBatch struct {
	ID        string
	FlushedAt time.Time
	Trades    []PendingTrade
}
