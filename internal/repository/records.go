package repository

import (
	"time"

	"StockPulse/internal/domain/models"
)

// InstrumentRecord is the stocks table row.
type InstrumentRecord struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Symbol       string `gorm:"size:32;not null;uniqueIndex"`
	Name         string `gorm:"size:255;not null"`
	ExchangeName string `gorm:"size:64;not null;default:''"`
}

func (InstrumentRecord) TableName() string { return "stocks" }

func (r InstrumentRecord) toModel() *models.Instrument {
	return &models.Instrument{
		ID:          r.ID,
		Symbol:      r.Symbol,
		DisplayName: r.Name,
		Exchange:    r.ExchangeName,
	}
}

// TradeRecord is the stock_trades table row.
type TradeRecord struct {
	ID       int64            `gorm:"primaryKey;autoIncrement"`
	StockID  int64            `gorm:"not null;index;index:idx_stock_trades_stock_time,priority:1"`
	Stock    InstrumentRecord `gorm:"foreignKey:StockID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Price    float64          `gorm:"not null"`
	Volume   float64          `gorm:"not null"`
	TradedAt time.Time        `gorm:"not null;index;index:idx_stock_trades_stock_time,priority:2"`
}

func (TradeRecord) TableName() string { return "stock_trades" }

func (r TradeRecord) toModel() models.Trade {
	return models.Trade{
		ID:           r.ID,
		InstrumentID: r.StockID,
		Price:        r.Price,
		Volume:       r.Volume,
		TradedAt:     r.TradedAt.UTC(),
	}
}

// Records lists every table owned by the Postgres stores, in migration order.
func Records() []interface{} {
	return []interface{}{&InstrumentRecord{}, &TradeRecord{}}
}
