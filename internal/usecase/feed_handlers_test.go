package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run ^TestKafkaTradesHandler$
func TestKafkaTradesHandler(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		ingestor *recordingIngestor
		errKind  string
		wantT    int64
	}{
		{name: "millis", msg: `{"symbol":"AAPL","price":190.5,"volume":3,"t":1700000000123}`, ingestor: &recordingIngestor{}, wantT: 1700000000123},
		{name: "seconds normalized", msg: `{"symbol":"AAPL","price":190.5,"volume":3,"t":1700000000}`, ingestor: &recordingIngestor{}, wantT: 1700000000000},
		{name: "bad json", msg: `{"symbol":`, ingestor: &recordingIngestor{}, errKind: "consumer_unmarshal"},
		{name: "missing symbol", msg: `{"price":1,"t":1700000000123}`, ingestor: &recordingIngestor{}, errKind: "consumer_invalid"},
		{name: "negative price", msg: `{"symbol":"AAPL","price":-5,"volume":3,"t":1700000000123}`, ingestor: &recordingIngestor{}, errKind: "consumer_invalid"},
		{name: "zero price", msg: `{"symbol":"AAPL","price":0,"volume":3,"t":1700000000123}`, ingestor: &recordingIngestor{}, errKind: "consumer_invalid"},
		{name: "negative volume", msg: `{"symbol":"AAPL","price":5,"volume":-3,"t":1700000000123}`, ingestor: &recordingIngestor{}, errKind: "consumer_invalid"},
		{name: "ingest fails", msg: `{"symbol":"AAPL","price":1,"t":1700000000123}`, ingestor: &recordingIngestor{err: errors.New("closed")}, errKind: "consumer_ingest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newFakeMetrics()
			h := NewKafkaTradesHandler("trades", tt.ingestor, m)
			assert.Equal(t, "trades", h.Topic())

			err := h.Handle(context.Background(), []byte(tt.msg))
			if tt.errKind != "" {
				require.Error(t, err)
				assert.Equal(t, 1, m.errorCount(tt.errKind))
				assert.Empty(t, tt.ingestor.got(), "rejected events never reach the buffer")
				return
			}
			require.NoError(t, err)
			got := tt.ingestor.got()
			require.Len(t, got, 1)
			assert.Equal(t, "AAPL", got[0].Symbol)
			assert.Equal(t, tt.wantT, got[0].TradedAtMillis)
			assert.Equal(t, 1, m.ingested["AAPL"])
		})
	}
}

// go test -v --run ^TestQueueTradeJob$
func TestQueueTradeJob(t *testing.T) {
	ing := &recordingIngestor{}
	m := newFakeMetrics()
	job := NewQueueTradeJob(ing, m)
	assert.Equal(t, TradeJobType, job.Type())

	payload, err := json.Marshal(event("MSFT", 410.2, 1700000000999))
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), payload))
	require.Len(t, ing.got(), 1)
	assert.Equal(t, 410.2, ing.got()[0].Price)

	require.Error(t, job.Handle(context.Background(), nil))
	assert.Equal(t, 1, m.errorCount("queue_payload"))

	ing.err = errors.New("closed")
	require.Error(t, job.Handle(context.Background(), payload))
	assert.Equal(t, 1, m.errorCount("queue_ingest"))
}

// go test -v --run ^TestQueueTradeJobRejectsInvalid$
func TestQueueTradeJobRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "missing t", payload: `{"symbol":"MSFT","price":1,"volume":1}`},
		{name: "missing symbol", payload: `{"price":1,"volume":1,"t":1700000000999}`},
		{name: "negative price", payload: `{"symbol":"MSFT","price":-5,"volume":1,"t":1700000000999}`},
		{name: "negative volume", payload: `{"symbol":"MSFT","price":5,"volume":-3,"t":1700000000999}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ing := &recordingIngestor{}
			m := newFakeMetrics()

			err := NewQueueTradeJob(ing, m).Handle(context.Background(), json.RawMessage(tt.payload))
			require.Error(t, err)
			assert.Equal(t, 1, m.errorCount("queue_invalid"))
			assert.Empty(t, ing.got())
		})
	}
}

// go test -v --run ^TestFeedsNormalizeSecondsAlike$
func TestFeedsNormalizeSecondsAlike(t *testing.T) {
	msg := []byte(`{"symbol":"AAPL","price":190.5,"volume":3,"t":1700000000}`)

	viaKafka := &recordingIngestor{}
	require.NoError(t, NewKafkaTradesHandler("trades", viaKafka, newFakeMetrics()).Handle(context.Background(), msg))
	viaQueue := &recordingIngestor{}
	require.NoError(t, NewQueueTradeJob(viaQueue, newFakeMetrics()).Handle(context.Background(), msg))

	require.Len(t, viaKafka.got(), 1)
	require.Len(t, viaQueue.got(), 1)
	assert.Equal(t, int64(1700000000000), viaQueue.got()[0].TradedAtMillis)
	assert.Equal(t, viaKafka.got()[0], viaQueue.got()[0])
}
