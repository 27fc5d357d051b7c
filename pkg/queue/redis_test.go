package queue

import (
	"context"
	"encoding/json"
	"testing"

	"StockPulse/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	typ   string
	calls int
	err   error
}

func (j *stubJob) Name() string { return "stub-" + j.typ }
func (j *stubJob) Type() string { return j.typ }
func (j *stubJob) Handle(context.Context, json.RawMessage) error {
	j.calls++
	return j.err
}

// go test -v --run ^TestParsePayload$
func TestParsePayload(t *testing.T) {
	type tick struct {
		Symbol string `json:"symbol"`
	}

	got, err := ParsePayload[tick](json.RawMessage(`{"symbol":"AAPL"}`))
	require.NoError(t, err)
	assert.Equal(t, "AAPL", got.Symbol)

	_, err = ParsePayload[tick](nil)
	assert.Error(t, err)

	_, err = ParsePayload[tick](json.RawMessage(`[1,2]`))
	assert.Error(t, err)
}

// go test -v --run ^TestRedisQueueKeys$
func TestRedisQueueKeys(t *testing.T) {
	q := NewRedisQueue(logger.Nop(), QueueConfig{}, nil)
	assert.Equal(t, "stockpulse:queue:messages", q.queueKey())
	assert.Equal(t, "stockpulse:queue:retry", q.retryKey())
	assert.Equal(t, "stockpulse:queue:dlq", q.deadLetterKey())
	assert.Equal(t, 1, q.config.Workers)

	q = NewRedisQueue(logger.Nop(), QueueConfig{}, nil, WithKeyPrefix("ticks"), WithKeyPrefix(""))
	assert.Equal(t, "ticks:messages", q.queueKey())
}

// go test -v --run ^TestEnqueueRejectsUnknownType$
func TestEnqueueRejectsUnknownType(t *testing.T) {
	job := &stubJob{typ: "trade"}
	q := NewRedisConsumer(logger.Nop(), QueueConfig{}, nil, []Job{job})
	q.RegisterJob(&stubJob{typ: "trade"})

	err := q.Enqueue(context.Background(), "quote", map[string]string{"symbol": "AAPL"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quote")
	assert.Len(t, q.jobs, 1)
}

// go test -v --run ^TestProcessDispatchesToJob$
func TestProcessDispatchesToJob(t *testing.T) {
	ok := &stubJob{typ: "trade"}
	cancelled := &stubJob{typ: "slow", err: context.Canceled}
	q := NewRedisConsumer(logger.Nop(), QueueConfig{RetryLimit: 3}, nil, []Job{ok, cancelled})

	q.process(context.Background(), Message{ID: "1", Type: "trade", Payload: json.RawMessage(`{}`)})
	q.process(context.Background(), Message{ID: "2", Type: "slow", Payload: json.RawMessage(`{}`)})

	assert.Equal(t, 1, ok.calls)
	assert.Equal(t, 1, cancelled.calls)
}
