package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	applogger "StockPulse/pkg/logger"
)

// Flush triggers, used as metric and log labels.
const (
	TriggerSize     = "size"
	TriggerIdle     = "idle"
	TriggerManual   = "manual"
	TriggerShutdown = "shutdown"
)

const (
	DefaultBatchSize = 50
	DefaultMaxWait   = 10 * time.Minute
)

// ErrBufferClosed is returned by Append after Close.
var ErrBufferClosed = errors.New("batch buffer closed")

// Resolver maps a symbol to an instrument id.
type Resolver interface {
	Resolve(ctx context.Context, symbol string) (int64, error)
}

// BatchWriter persists one flushed batch.
type BatchWriter interface {
	Persist(ctx context.Context, batch []models.PendingTrade) error
}

// BatchBuffer holds pending trades until either the size threshold is hit or
// the idle timer fires. The timer runs from the last flush, not the last append.
//
// mu guards pending, timer, gen and closed. Persistence always runs outside mu;
// inflight counts snapshots that have not finished persisting.
type BatchBuffer struct {
	resolver Resolver
	writer   BatchWriter
	metrics  drepo.Metrics
	logger   *applogger.Logger
	size     int
	maxWait  time.Duration

	mu      sync.Mutex
	pending []models.PendingTrade
	timer   *time.Timer
	gen     uint64 // bumped on every flush; stale timer callbacks compare against it
	closed  bool

	inflight sync.WaitGroup
}

// NewBatchBuffer creates a buffer and arms its idle timer.
func NewBatchBuffer(resolver Resolver, writer BatchWriter, metrics drepo.Metrics, l *applogger.Logger, size int, maxWait time.Duration) *BatchBuffer {
	if size <= 0 {
		size = DefaultBatchSize
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	b := &BatchBuffer{
		resolver: resolver,
		writer:   writer,
		metrics:  metrics,
		logger:   l,
		size:     size,
		maxWait:  maxWait,
		pending:  make([]models.PendingTrade, 0, size),
	}
	b.mu.Lock()
	b.resetTimerLocked()
	b.mu.Unlock()
	return b
}

// Ingest implements repository.Ingestor.
func (b *BatchBuffer) Ingest(ctx context.Context, e models.TradeEvent) error {
	return b.Append(ctx, e)
}

// Append resolves the event's instrument and buffers it. When the buffer
// reaches the size threshold the batch is flushed before Append returns.
func (b *BatchBuffer) Append(ctx context.Context, e models.TradeEvent) error {
	id, err := b.resolver.Resolve(ctx, e.Symbol)
	if err != nil {
		b.metrics.RecordError("resolve")
		return fmt.Errorf("resolve %s: %w", e.Symbol, err)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("%w: %w", models.ErrInternal, ErrBufferClosed)
	}
	b.pending = append(b.pending, models.PendingTrade{
		InstrumentID: id,
		Price:        e.Price,
		Volume:       e.Volume,
		TradedAt:     e.TradedAt(),
	})
	var batch []models.PendingTrade
	if len(b.pending) >= b.size {
		batch = b.snapshotLocked()
	}
	depth := len(b.pending)
	b.mu.Unlock()

	b.metrics.RecordBufferDepth(depth)
	if batch == nil {
		return nil
	}
	return b.persist(ctx, TriggerSize, batch)
}

// Flush persists whatever is pending and restarts the idle timer.
func (b *BatchBuffer) Flush(ctx context.Context) error {
	b.mu.Lock()
	batch := b.snapshotLocked()
	b.mu.Unlock()
	return b.persist(ctx, TriggerManual, batch)
}

// Len returns the number of pending trades.
func (b *BatchBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Close stops the idle timer, flushes the remaining trades once and waits
// for flushes already in flight, such as an idle flush that raced Close.
func (b *BatchBuffer) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	batch := b.snapshotLocked()
	b.mu.Unlock()

	err := b.persist(ctx, TriggerShutdown, batch)

	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return errors.Join(err, fmt.Errorf("%w: wait for in-flight flushes: %w", models.ErrInternal, ctx.Err()))
	}
	return err
}

// snapshotLocked takes the pending slice, leaves an empty one behind and
// re-arms the timer. A non-empty snapshot must be handed to persist. Caller holds mu.
func (b *BatchBuffer) snapshotLocked() []models.PendingTrade {
	batch := b.pending
	b.pending = make([]models.PendingTrade, 0, b.size)
	b.resetTimerLocked()
	if len(batch) > 0 {
		b.inflight.Add(1)
	}
	return batch
}

func (b *BatchBuffer) resetTimerLocked() {
	b.gen++
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if b.closed {
		return
	}
	gen := b.gen
	b.timer = time.AfterFunc(b.maxWait, func() { b.onIdle(gen) })
}

func (b *BatchBuffer) onIdle(gen uint64) {
	b.mu.Lock()
	if gen != b.gen || b.closed {
		// a flush already happened since this timer was armed
		b.mu.Unlock()
		return
	}
	batch := b.snapshotLocked()
	b.mu.Unlock()

	_ = b.persist(context.Background(), TriggerIdle, batch)
}

// persist hands the batch to the writer. A failed batch is dropped.
func (b *BatchBuffer) persist(ctx context.Context, trigger string, batch []models.PendingTrade) error {
	if len(batch) == 0 {
		return nil
	}
	defer b.inflight.Done()
	start := time.Now()
	err := b.writer.Persist(ctx, batch)
	b.metrics.RecordLatency("flush_"+trigger, time.Since(start).Seconds())
	if err != nil {
		b.metrics.RecordError("flush")
		b.logger.Error("batch persist failed, batch dropped",
			applogger.String("trigger", trigger),
			applogger.Int("size", len(batch)),
			applogger.Error(err))
		return fmt.Errorf("flush %s batch of %d: %w", trigger, len(batch), err)
	}
	b.metrics.RecordFlush(trigger, len(batch))
	b.logger.Debug("batch flushed",
		applogger.String("trigger", trigger),
		applogger.Int("size", len(batch)))
	return nil
}

var _ drepo.Ingestor = (*BatchBuffer)(nil)
