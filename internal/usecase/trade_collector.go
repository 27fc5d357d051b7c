package usecase

import (
	"context"
	"sync"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	applogger "StockPulse/pkg/logger"
)

// TradeCollector pumps trade events from a market stream into ingestion.
type TradeCollector struct {
	stream   drepo.MarketStream
	ingestor drepo.Ingestor
	metrics  drepo.Metrics
	logger   *applogger.Logger
	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewTradeCollector creates a new TradeCollector instance.
// ingestor is usually the realtime pipeline in front of the batch buffer.
func NewTradeCollector(stream drepo.MarketStream, ingestor drepo.Ingestor, metrics drepo.Metrics, l *applogger.Logger) *TradeCollector {
	return &TradeCollector{stream: stream, ingestor: ingestor, metrics: metrics, logger: l, done: make(chan struct{})}
}

// IsConnected returns true if the market stream is connected.
func (c *TradeCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *TradeCollector) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	if err := c.stream.Connect(ctx); err != nil {
		cancel()
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		cancel()
		return err
	}
	trCh, errCh := c.stream.Read(ctx)

	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	go c.consume(ctx, trCh, errCh)
	return nil
}

func (c *TradeCollector) consume(ctx context.Context, trCh <-chan models.TradeEvent, errCh <-chan error) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			c.metrics.RecordError("stream")
			c.logger.Warn("market stream error, reconnecting", applogger.Error(err))
			if rerr := c.stream.Reconnect(ctx); rerr != nil {
				c.logger.Error("market stream reconnect failed", applogger.Error(rerr))
				return
			}
			trCh, errCh = c.stream.Read(ctx)
		case e, ok := <-trCh:
			if !ok {
				trCh = nil
				continue
			}
			start := time.Now()
			if err := c.ingestor.Ingest(ctx, e); err != nil {
				// the event is dropped; ingestion already logged and counted the cause
				continue
			}
			c.metrics.RecordLatency("collector_ingest", time.Since(start).Seconds())
		}
	}
}

// Shutdown closes the stream and waits for the consume loop to exit.
func (c *TradeCollector) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel == nil {
		return c.stream.Close()
	}
	cancel()
	err := c.stream.Close()
	select {
	case <-c.done:
	case <-ctx.Done():
	}
	return err
}
