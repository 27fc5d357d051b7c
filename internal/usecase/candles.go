package usecase

import (
	"context"
	"fmt"
	"time"

	"StockPulse/internal/domain/models"
	domrepo "StockPulse/internal/domain/repository"
	"StockPulse/internal/domain/service"
)

// CandlesUseCase answers candlestick range queries.
type CandlesUseCase struct {
	instruments domrepo.InstrumentStore
	trades      domrepo.TradeStore
	agg         service.CandleAggregator
}

func NewCandlesUseCase(instruments domrepo.InstrumentStore, trades domrepo.TradeStore, agg service.CandleAggregator) *CandlesUseCase {
	return &CandlesUseCase{instruments: instruments, trades: trades, agg: agg}
}

// GetCandlesticks returns the 1h candles for symbol over [start, end).
// It fails with ErrNotFound for an unknown symbol and ErrInternal for anything else.
func (uc *CandlesUseCase) GetCandlesticks(ctx context.Context, symbol string, start, end time.Time) ([]models.Candlestick, error) {
	inst, err := uc.instruments.FindBySymbol(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: find instrument %s: %w", models.ErrInternal, symbol, err)
	}
	if inst == nil {
		return nil, fmt.Errorf("%w: instrument %s", models.ErrNotFound, symbol)
	}

	trades, err := uc.trades.FindInRange(ctx, inst.ID, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: find trades %s: %w", models.ErrInternal, symbol, err)
	}

	return uc.agg.Aggregate(trades, start), nil
}
