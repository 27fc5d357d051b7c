package repository

import (
	"context"
	"errors"
	"fmt"

	"StockPulse/internal/domain/models"
	domrepo "StockPulse/internal/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresInstrumentStore implements InstrumentStore on the stocks table.
type PostgresInstrumentStore struct {
	db *gorm.DB
}

func NewPostgresInstrumentStore(db *gorm.DB) *PostgresInstrumentStore {
	return &PostgresInstrumentStore{db: db}
}

func (s *PostgresInstrumentStore) FindBySymbol(ctx context.Context, symbol string) (*models.Instrument, error) {
	var rec InstrumentRecord
	err := s.db.WithContext(ctx).Where("symbol = ?", symbol).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find stock %s: %w", symbol, err)
	}
	return rec.toModel(), nil
}

// FindOrCreate inserts with ON CONFLICT DO NOTHING so a concurrent creator
// never fails us; when nothing was inserted the winner's row is re-read.
func (s *PostgresInstrumentStore) FindOrCreate(ctx context.Context, symbol string, d models.InstrumentDefaults) (*models.Instrument, error) {
	if inst, err := s.FindBySymbol(ctx, symbol); err != nil || inst != nil {
		return inst, err
	}

	rec := InstrumentRecord{Symbol: symbol, Name: d.DisplayName, ExchangeName: d.Exchange}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "symbol"}}, DoNothing: true}).
		Create(&rec)
	if res.Error != nil && !errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return nil, fmt.Errorf("create stock %s: %w", symbol, res.Error)
	}
	if res.Error == nil && res.RowsAffected == 1 && rec.ID != 0 {
		return rec.toModel(), nil
	}

	inst, err := s.FindBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, fmt.Errorf("stock %s vanished after duplicate insert", symbol)
	}
	return inst, nil
}

var _ domrepo.InstrumentStore = (*PostgresInstrumentStore)(nil)
