package repository

import (
	"context"
	"strconv"

	"StockPulse/internal/domain/models"
	domrepo "StockPulse/internal/domain/repository"
	pkgkafka "StockPulse/pkg/kafka"
)

// BatchPublisher announces every persisted trade on a Kafka topic, keyed by
// stock id so per-instrument ordering holds within a partition.
type BatchPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewBatchPublisher(producer *pkgkafka.Producer, topic string) *BatchPublisher {
	return &BatchPublisher{producer: producer, topic: topic}
}

// PersistedTrade is the message value on the batches topic.
type PersistedTrade struct {
	BatchID   string  `json:"batchId"`
	StockID   int64   `json:"stockId"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
	TradedAt  int64   `json:"t"`
	FlushedAt int64   `json:"flushedAt"`
}

func (p *BatchPublisher) Name() string { return "kafka" }

func (p *BatchPublisher) Write(ctx context.Context, b models.FlushedBatch) error {
	if len(b.Trades) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(b.Trades))
	for i, t := range b.Trades {
		msgs[i] = pkgkafka.Message{
			Key: []byte(strconv.FormatInt(t.InstrumentID, 10)),
			Value: PersistedTrade{
				BatchID:   b.ID,
				StockID:   t.InstrumentID,
				Price:     t.Price,
				Volume:    t.Volume,
				TradedAt:  t.TradedAt.UnixMilli(),
				FlushedAt: b.FlushedAt.UnixMilli(),
			},
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// Close is a no-op; the producer is shared and closed by the app.
func (p *BatchPublisher) Close() error { return nil }

var _ domrepo.BatchSink = (*BatchPublisher)(nil)
