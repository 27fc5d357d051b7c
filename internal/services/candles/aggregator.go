package candles

import (
	"time"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/domain/service"
)

// Aggregator folds trades into fixed-width OHLCV candles.
type Aggregator struct {
	width time.Duration
}

// NewAggregator returns an aggregator over models.CandleWidth windows.
func NewAggregator() *Aggregator {
	return &Aggregator{width: models.CandleWidth}
}

// Aggregate folds trades (ascending by TradedAt) into candles, oldest first.
//
// windowStart begins at start and moves forward by one width every time a
// trade opens a new window, before skipping any empty windows. The first
// candle therefore starts at start+width at the earliest. Windows without
// trades produce no candle.
func (a *Aggregator) Aggregate(trades []models.Trade, start time.Time) []models.Candlestick {
	out := make([]models.Candlestick, 0)
	if len(trades) == 0 {
		return out
	}

	windowStart := start
	var current *models.Candlestick

	for _, t := range trades {
		if current == nil || !t.TradedAt.Before(windowStart.Add(a.width)) {
			if current != nil {
				out = append(out, *current)
			}
			windowStart = windowStart.Add(a.width)
			for !t.TradedAt.Before(windowStart.Add(a.width)) {
				windowStart = windowStart.Add(a.width)
			}
			current = &models.Candlestick{
				Open:        t.Price,
				High:        t.Price,
				Low:         t.Price,
				Close:       t.Price,
				Volume:      t.Volume,
				WindowStart: windowStart,
			}
			continue
		}

		if t.Price > current.High {
			current.High = t.Price
		}
		if t.Price < current.Low {
			current.Low = t.Price
		}
		current.Close = t.Price
		current.Volume += t.Volume
	}

	if current != nil {
		out = append(out, *current)
	}
	return out
}

var _ service.CandleAggregator = (*Aggregator)(nil)
