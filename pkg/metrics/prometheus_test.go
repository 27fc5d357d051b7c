package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// go test -v --run ^TestRecorderFlushAndDepth$
func TestRecorderFlushAndDepth(t *testing.T) {
	r := NewWithRegisterer(prometheus.NewRegistry())

	r.RecordFlush("size", 50)
	r.RecordFlush("size", 50)
	r.RecordFlush("idle", 3)
	r.RecordBufferDepth(7)
	r.RecordTradeIngested("AAPL")

	if got := testutil.ToFloat64(r.flushes.WithLabelValues("size")); got != 2 {
		t.Fatalf("size flushes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.flushes.WithLabelValues("idle")); got != 1 {
		t.Fatalf("idle flushes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.bufferDepth); got != 7 {
		t.Fatalf("buffer depth = %v, want 7", got)
	}
	if got := testutil.ToFloat64(r.tradesIngested.WithLabelValues("AAPL")); got != 1 {
		t.Fatalf("ingested = %v, want 1", got)
	}
}
