package usecase

import (
	"context"
	"fmt"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	applogger "StockPulse/pkg/logger"

	"github.com/google/uuid"
)

// BatchPersister writes flushed batches to the trade store and, once that
// succeeded, fans them out to the optional secondary sinks.
type BatchPersister struct {
	store   drepo.TradeStore
	sinks   []drepo.BatchSink
	metrics drepo.Metrics
	logger  *applogger.Logger
}

// NewBatchPersister creates a persister. Nil sinks are skipped.
func NewBatchPersister(store drepo.TradeStore, metrics drepo.Metrics, l *applogger.Logger, sinks ...drepo.BatchSink) *BatchPersister {
	p := &BatchPersister{store: store, metrics: metrics, logger: l}
	for _, s := range sinks {
		if s != nil {
			p.sinks = append(p.sinks, s)
		}
	}
	return p
}

// Persist performs one bulk insert. Any rejected record fails the whole batch.
func (p *BatchPersister) Persist(ctx context.Context, batch []models.PendingTrade) error {
	if len(batch) == 0 {
		return nil
	}

	start := time.Now()
	if err := p.store.BulkInsert(ctx, batch); err != nil {
		p.metrics.RecordError("persist")
		return fmt.Errorf("%w: bulk insert: %w", models.ErrTransientIO, err)
	}
	p.metrics.RecordLatency("persist", time.Since(start).Seconds())

	if len(p.sinks) == 0 {
		return nil
	}
	flushed := models.FlushedBatch{ID: uuid.NewString(), FlushedAt: time.Now().UTC(), Trades: batch}
	for _, s := range p.sinks {
		sinkStart := time.Now()
		if err := s.Write(ctx, flushed); err != nil {
			p.metrics.RecordError("sink_" + s.Name())
			p.logger.Warn("secondary sink write failed",
				applogger.String("sink", s.Name()),
				applogger.String("batch_id", flushed.ID),
				applogger.Int("size", len(batch)),
				applogger.Error(err))
			continue
		}
		p.metrics.RecordLatency("sink_"+s.Name(), time.Since(sinkStart).Seconds())
	}
	return nil
}

// Close closes the secondary sinks.
func (p *BatchPersister) Close() {
	for _, s := range p.sinks {
		if err := s.Close(); err != nil {
			p.logger.Warn("sink close error", applogger.String("sink", s.Name()), applogger.Error(err))
		}
	}
}

var _ BatchWriter = (*BatchPersister)(nil)
