package repository

import (
	"context"
	"fmt"
	"time"

	"StockPulse/internal/domain/models"
	domrepo "StockPulse/internal/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresTradeStore implements TradeStore on the stock_trades table.
type PostgresTradeStore struct {
	db *gorm.DB
}

func NewPostgresTradeStore(db *gorm.DB) *PostgresTradeStore {
	return &PostgresTradeStore{db: db}
}

// BulkInsert writes the batch in a single INSERT statement.
func (s *PostgresTradeStore) BulkInsert(ctx context.Context, batch []models.PendingTrade) error {
	if len(batch) == 0 {
		return nil
	}
	recs := make([]TradeRecord, len(batch))
	for i, t := range batch {
		recs[i] = TradeRecord{
			StockID:  t.InstrumentID,
			Price:    t.Price,
			Volume:   t.Volume,
			TradedAt: t.TradedAt.UTC(),
		}
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&recs).Error; err != nil {
		return fmt.Errorf("insert %d trades: %w", len(batch), err)
	}
	return nil
}

func (s *PostgresTradeStore) FindInRange(ctx context.Context, instrumentID int64, start, end time.Time) ([]models.Trade, error) {
	var recs []TradeRecord
	err := s.db.WithContext(ctx).
		Where("stock_id = ? AND traded_at >= ? AND traded_at < ?", instrumentID, start.UTC(), end.UTC()).
		Order("traded_at ASC").
		Order("id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("find trades stock=%d: %w", instrumentID, err)
	}

	trades := make([]models.Trade, len(recs))
	for i, r := range recs {
		trades[i] = r.toModel()
	}
	return trades, nil
}

var _ domrepo.TradeStore = (*PostgresTradeStore)(nil)
