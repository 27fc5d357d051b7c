package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"StockPulse/internal/domain/models"
	domrepo "StockPulse/internal/domain/repository"
)

// ClickHouseMirror copies persisted batches into a ClickHouse MergeTree table
// for analytical queries. Postgres stays the source of truth.
type ClickHouseMirror struct {
	db    *sql.DB
	table string
}

func NewClickHouseMirror(db *sql.DB, table string) *ClickHouseMirror {
	return &ClickHouseMirror{db: db, table: table}
}

// MirrorSchema returns the idempotent DDL for database.table.
func MirrorSchema(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
            stock_id Int64,
            price Float64,
            volume Float64,
            traded_at DateTime64(3, 'UTC'),
            batch_id String,
            flushed_at DateTime64(3, 'UTC')
        ) ENGINE = MergeTree ORDER BY (stock_id, traded_at)`, database, table),
	}
}

func (m *ClickHouseMirror) Name() string { return "clickhouse" }

func (m *ClickHouseMirror) Write(ctx context.Context, b models.FlushedBatch) error {
	if len(b.Trades) == 0 {
		return nil
	}
	// Chunked multi-row VALUES to bound statement size.
	const chunkSize = 2000
	for start := 0; start < len(b.Trades); start += chunkSize {
		end := start + chunkSize
		if end > len(b.Trades) {
			end = len(b.Trades)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*6)
		for _, t := range b.Trades[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?)")
			args = append(args, t.InstrumentID, t.Price, t.Volume, t.TradedAt.UTC(), b.ID, b.FlushedAt)
		}
		q := fmt.Sprintf("INSERT INTO %s (stock_id, price, volume, traded_at, batch_id, flushed_at) VALUES %s",
			m.table, strings.Join(values, ","))
		if _, err := m.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("clickhouse mirror insert: %w", err)
		}
	}
	return nil
}

func (m *ClickHouseMirror) Close() error {
	return nil // pool owned by pkg/clickhouse
}

var _ domrepo.BatchSink = (*ClickHouseMirror)(nil)
