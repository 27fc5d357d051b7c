package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"StockPulse/internal/domain/models"
	domrepo "StockPulse/internal/domain/repository"
	"StockPulse/pkg/queue"
	xutil "StockPulse/pkg/util"
)

// TradeJobType is the queue message type carrying one trade event.
const TradeJobType = "trade"

// QueueTradeJob feeds trade events from the Redis queue into ingestion.
type QueueTradeJob struct {
	ingestor domrepo.Ingestor
	metrics  domrepo.Metrics
}

func NewQueueTradeJob(ingestor domrepo.Ingestor, metrics domrepo.Metrics) *QueueTradeJob {
	return &QueueTradeJob{ingestor: ingestor, metrics: metrics}
}

func (j *QueueTradeJob) Name() string { return "ingest-trade" }

func (j *QueueTradeJob) Type() string { return TradeJobType }

func (j *QueueTradeJob) Handle(ctx context.Context, payload json.RawMessage) error {
	e, err := queue.ParsePayload[models.TradeEvent](payload)
	if err != nil {
		j.metrics.RecordError("queue_payload")
		return err
	}
	e.TradedAtMillis = xutil.NormalizeEpochMillis(e.TradedAtMillis)
	if err := e.Validate(); err != nil {
		j.metrics.RecordError("queue_invalid")
		return fmt.Errorf("invalid trade event %q: %w", e.Symbol, err)
	}
	if err := j.ingestor.Ingest(ctx, *e); err != nil {
		j.metrics.RecordError("queue_ingest")
		return err
	}
	j.metrics.RecordTradeIngested(e.Symbol)
	return nil
}

var _ queue.Job = (*QueueTradeJob)(nil)
