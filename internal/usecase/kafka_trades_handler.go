package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"StockPulse/internal/domain/models"
	domrepo "StockPulse/internal/domain/repository"
	pkgkafka "StockPulse/pkg/kafka"
	xutil "StockPulse/pkg/util"
)

// KafkaTradesHandler feeds trade events from a Kafka topic into ingestion.
type KafkaTradesHandler struct {
	topic    string
	ingestor domrepo.Ingestor
	metrics  domrepo.Metrics
}

func NewKafkaTradesHandler(topic string, ingestor domrepo.Ingestor, metrics domrepo.Metrics) *KafkaTradesHandler {
	return &KafkaTradesHandler{topic: topic, ingestor: ingestor, metrics: metrics}
}

func (h *KafkaTradesHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, price, volume, t(ms)}
func (h *KafkaTradesHandler) Handle(ctx context.Context, b []byte) error {
	var e models.TradeEvent
	if err := json.Unmarshal(b, &e); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	e.TradedAtMillis = xutil.NormalizeEpochMillis(e.TradedAtMillis)
	if err := e.Validate(); err != nil {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("invalid trade event %q: %w", e.Symbol, err)
	}
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(e.TradedAt()).Seconds())

	if err := h.ingestor.Ingest(ctx, e); err != nil {
		h.metrics.RecordError("consumer_ingest")
		return err
	}
	h.metrics.RecordTradeIngested(e.Symbol)
	h.metrics.RecordLastPrice(e.Symbol, e.Price)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaTradesHandler)(nil)
