package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topics  []string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func (p *capturePublisher) all() [][]AggregatedLogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]AggregatedLogEntry(nil), p.batches...)
}

func TestCollectorAggregatesRepeats(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 10, Topic: "logs", Service: "stockpulse", Publisher: pub})
	defer c.Close()

	for i := 0; i < 3; i++ {
		c.AddLog("error", "persist failed", map[string]interface{}{"error": errors.New("conn reset")}, "usecase/batch_buffer.go:10")
	}
	c.AddLog("error", "other", nil, "x.go:1")
	c.Flush()

	batches := pub.all()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 2)
	assert.Equal(t, []string{"logs"}, pub.topics)

	first := batches[0][0]
	assert.Equal(t, "persist failed", first.Message)
	assert.Equal(t, 3, first.Count)
	assert.Equal(t, "conn reset", first.Fields["error"])
	assert.Equal(t, "stockpulse", first.Service)
}

func TestCollectorThresholdFlush(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Topic: "logs", Publisher: pub})
	defer c.Close()

	c.AddLog("error", "a", nil, "")
	c.AddLog("error", "b", nil, "")

	require.Eventually(t, func() bool { return len(pub.all()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Len(t, pub.all()[0], 2)
}

func TestCollectorCloseFlushesRemainder(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Topic: "logs", Publisher: pub})

	c.AddLog("error", "late", nil, "")
	c.Close()
	c.Close()

	batches := pub.all()
	require.Len(t, batches, 1)
	assert.Equal(t, "late", batches[0][0].Message)
}

func TestLoggerFeedsCollector(t *testing.T) {
	pub := &capturePublisher{}
	l := Nop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Topic: "logs", Publisher: pub})

	l.Info("ignored")
	l.Error("boom", String("symbol", "AAPL"))
	l.RemoveCollector()

	batches := pub.all()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	assert.Equal(t, "boom", batches[0][0].Message)
	assert.Equal(t, "AAPL", batches[0][0].Fields["symbol"])
	assert.Contains(t, batches[0][0].Caller, "collector_test.go")
}
