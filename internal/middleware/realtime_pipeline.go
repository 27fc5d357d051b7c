package middleware

import (
	"context"
	"fmt"
	"time"

	"StockPulse/internal/domain/models"
	domrepo "StockPulse/internal/domain/repository"
	"StockPulse/internal/service/ratelimit"
	applogger "StockPulse/pkg/logger"
)

// RealtimePipeline sits between a feed and ingestion.
// It validates, optionally throttles per symbol, and forwards events.
// Events that fail anywhere are logged and dropped; nothing is retried.
type RealtimePipeline struct {
	next    domrepo.Ingestor
	metrics domrepo.Metrics
	logger  *applogger.Logger
	maxRPS  float64
	limiter *ratelimit.Limiter
	// simple format transform hook (optional)
	transform func(models.TradeEvent) models.TradeEvent
}

type PipelineOption func(*RealtimePipeline)

// WithMaxRPS sets the max trades per second per symbol. Zero disables throttling.
func WithMaxRPS(n int) PipelineOption {
	return func(p *RealtimePipeline) {
		if n > 0 {
			p.maxRPS = float64(n)
		}
	}
}

// WithTransform sets a transformation hook applied before validation.
func WithTransform(fn func(models.TradeEvent) models.TradeEvent) PipelineOption {
	return func(p *RealtimePipeline) { p.transform = fn }
}

// NewRealtimePipeline creates a new pipeline.
func NewRealtimePipeline(next domrepo.Ingestor, metrics domrepo.Metrics, l *applogger.Logger, opts ...PipelineOption) *RealtimePipeline {
	p := &RealtimePipeline{
		next:    next,
		metrics: metrics,
		logger:  l,
		limiter: ratelimit.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest implements repository.Ingestor.
func (p *RealtimePipeline) Ingest(ctx context.Context, e models.TradeEvent) error {
	start := time.Now()
	if p.transform != nil {
		e = p.transform(e)
	}
	if err := ValidateTrade(e); err != nil {
		p.metrics.RecordError("pipeline_validate")
		p.logger.Debug("trade event rejected", applogger.String("symbol", e.Symbol), applogger.Error(err))
		return err
	}
	if p.maxRPS > 0 && !p.limiter.Allow(e.Symbol, p.maxRPS, p.maxRPS) {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.next.Ingest(ctx, e); err != nil {
		p.metrics.RecordError("pipeline_ingest")
		p.logger.Error("trade ingestion failed, event dropped",
			applogger.String("symbol", e.Symbol),
			applogger.Int64("t", e.TradedAtMillis),
			applogger.Error(err))
		return fmt.Errorf("pipeline downstream: %w", err)
	}

	p.metrics.RecordTradeIngested(e.Symbol)
	p.metrics.RecordLastPrice(e.Symbol, e.Price)
	p.metrics.RecordLatency("pipeline_ingest", time.Since(start).Seconds())
	return nil
}

// ValidateTrade checks the shape of a feed event.
func ValidateTrade(e models.TradeEvent) error {
	return e.Validate()
}

var _ domrepo.Ingestor = (*RealtimePipeline)(nil)
