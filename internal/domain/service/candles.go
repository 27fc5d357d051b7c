package service

import (
	"time"

	"StockPulse/internal/domain/models"
)

// CandleAggregator folds time-ordered trades into candlesticks.
type CandleAggregator interface {
	Aggregate(trades []models.Trade, start time.Time) []models.Candlestick
}
