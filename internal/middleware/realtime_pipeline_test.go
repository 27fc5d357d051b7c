package middleware

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"StockPulse/internal/domain/models"
	applogger "StockPulse/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func (m *countingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errors == nil {
		m.errors = map[string]int{}
	}
	m.errors[kind]++
}

func (m *countingMetrics) RecordTradeIngested(string)      {}
func (m *countingMetrics) RecordLastPrice(string, float64) {}
func (m *countingMetrics) RecordLatency(string, float64)   {}
func (m *countingMetrics) RecordFlush(string, int)         {}
func (m *countingMetrics) RecordBufferDepth(int)           {}

type sliceIngestor struct {
	events []models.TradeEvent
	err    error
}

func (s *sliceIngestor) Ingest(_ context.Context, e models.TradeEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func validEvent(symbol string) models.TradeEvent {
	return models.TradeEvent{Symbol: symbol, Price: 101.5, Volume: 2, TradedAtMillis: 1700000000000}
}

// go test -v --run ^TestValidateTrade$
func TestValidateTrade(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.TradeEvent)
		wantErr string
	}{
		{name: "valid", mutate: func(*models.TradeEvent) {}},
		{name: "zero volume ok", mutate: func(e *models.TradeEvent) { e.Volume = 0 }},
		{name: "empty symbol", mutate: func(e *models.TradeEvent) { e.Symbol = "" }, wantErr: "symbol"},
		{name: "no timestamp", mutate: func(e *models.TradeEvent) { e.TradedAtMillis = 0 }, wantErr: "timestamp"},
		{name: "zero price", mutate: func(e *models.TradeEvent) { e.Price = 0 }, wantErr: "price"},
		{name: "negative volume", mutate: func(e *models.TradeEvent) { e.Volume = -1 }, wantErr: "volume"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEvent("AAPL")
			tt.mutate(&e)
			err := ValidateTrade(e)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// go test -v --run ^TestPipelineForwardsAndRejects$
func TestPipelineForwardsAndRejects(t *testing.T) {
	next := &sliceIngestor{}
	m := &countingMetrics{}
	p := NewRealtimePipeline(next, m, applogger.Nop())

	require.NoError(t, p.Ingest(context.Background(), validEvent("AAPL")))
	bad := validEvent("AAPL")
	bad.Price = -3
	require.Error(t, p.Ingest(context.Background(), bad))

	assert.Len(t, next.events, 1)
	assert.Equal(t, 1, m.errors["pipeline_validate"])
}

// go test -v --run ^TestPipelineThrottleDropsSilently$
func TestPipelineThrottleDropsSilently(t *testing.T) {
	next := &sliceIngestor{}
	m := &countingMetrics{}
	p := NewRealtimePipeline(next, m, applogger.Nop(), WithMaxRPS(2))

	for i := 0; i < 3; i++ {
		require.NoError(t, p.Ingest(context.Background(), validEvent("AAPL")))
	}
	require.NoError(t, p.Ingest(context.Background(), validEvent("MSFT")))

	assert.Len(t, next.events, 3, "two AAPL plus one MSFT")
	assert.Equal(t, 1, m.errors["pipeline_throttle"])
}

// go test -v --run ^TestPipelineDownstreamError$
func TestPipelineDownstreamError(t *testing.T) {
	cause := errors.New("buffer closed")
	m := &countingMetrics{}
	p := NewRealtimePipeline(&sliceIngestor{err: cause}, m, applogger.Nop())

	err := p.Ingest(context.Background(), validEvent("AAPL"))
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "pipeline downstream")
	assert.Equal(t, 1, m.errors["pipeline_ingest"])
}

// go test -v --run ^TestPipelineTransform$
func TestPipelineTransform(t *testing.T) {
	next := &sliceIngestor{}
	p := NewRealtimePipeline(next, &countingMetrics{}, applogger.Nop(),
		WithTransform(func(e models.TradeEvent) models.TradeEvent {
			e.Symbol = strings.ToUpper(e.Symbol)
			return e
		}))

	require.NoError(t, p.Ingest(context.Background(), validEvent("aapl")))
	require.Len(t, next.events, 1)
	assert.Equal(t, "AAPL", next.events[0].Symbol)
}
