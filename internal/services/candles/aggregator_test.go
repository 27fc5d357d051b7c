package candles

import (
	"testing"
	"time"

	"StockPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hh, mm int) time.Time {
	return time.Date(2024, 5, 1, hh, mm, 0, 0, time.UTC)
}

func trade(ts time.Time, price, volume float64) models.Trade {
	return models.Trade{InstrumentID: 1, Price: price, Volume: volume, TradedAt: ts}
}

// go test -v --run ^TestAggregateEmpty$
func TestAggregateEmpty(t *testing.T) {
	got := NewAggregator().Aggregate(nil, at(9, 0))
	require.NotNil(t, got)
	assert.Empty(t, got)
}

// go test -v --run ^TestAggregateTwoWindows$
func TestAggregateTwoWindows(t *testing.T) {
	trades := []models.Trade{
		trade(at(10, 30), 100, 1),
		trade(at(10, 45), 104, 2),
		trade(at(11, 15), 101, 3),
		trade(at(11, 30), 99, 4),
	}

	got := NewAggregator().Aggregate(trades, at(9, 0))

	require.Len(t, got, 2)
	assert.Equal(t, models.Candlestick{Open: 100, High: 104, Low: 100, Close: 104, Volume: 3, WindowStart: at(10, 0)}, got[0])
	assert.Equal(t, models.Candlestick{Open: 101, High: 101, Low: 99, Close: 99, Volume: 7, WindowStart: at(11, 0)}, got[1])
}

// go test -v --run ^TestAggregateFirstWindowAdvancesOnce$
func TestAggregateFirstWindowAdvancesOnce(t *testing.T) {
	// A trade inside [start, start+1h) still lands in a candle labelled start+1h.
	trades := []models.Trade{
		trade(at(9, 10), 50, 1),
		trade(at(9, 50), 55, 1),
		trade(at(10, 20), 52, 1),
	}

	got := NewAggregator().Aggregate(trades, at(9, 0))

	require.Len(t, got, 1)
	assert.Equal(t, at(10, 0), got[0].WindowStart)
	assert.Equal(t, 50.0, got[0].Open)
	assert.Equal(t, 52.0, got[0].Close)
	assert.Equal(t, 55.0, got[0].High)
	assert.Equal(t, 3.0, got[0].Volume)
}

// go test -v --run ^TestAggregateSkipsEmptyWindows$
func TestAggregateSkipsEmptyWindows(t *testing.T) {
	trades := []models.Trade{
		trade(at(10, 5), 10, 1),
		trade(at(14, 40), 12, 2),
		trade(at(14, 59), 11, 2),
	}

	got := NewAggregator().Aggregate(trades, at(9, 0))

	require.Len(t, got, 2)
	assert.Equal(t, at(10, 0), got[0].WindowStart)
	assert.Equal(t, at(14, 0), got[1].WindowStart)
	assert.Equal(t, 4.0, got[1].Volume)
}

// go test -v --run ^TestAggregateInvariants$
func TestAggregateInvariants(t *testing.T) {
	start := at(0, 0)
	prices := []float64{10, 12, 9, 11, 15, 14, 8, 13, 13, 16, 7, 10}
	var trades []models.Trade
	for i, p := range prices {
		trades = append(trades, trade(start.Add(time.Duration(i*25)*time.Minute), p, float64(i)+0.5))
	}

	got := NewAggregator().Aggregate(trades, start)
	require.NotEmpty(t, got)

	var total float64
	for i, c := range got {
		assert.LessOrEqual(t, c.Low, c.Open)
		assert.LessOrEqual(t, c.Low, c.Close)
		assert.GreaterOrEqual(t, c.High, c.Open)
		assert.GreaterOrEqual(t, c.High, c.Close)
		assert.Positive(t, c.Volume)
		if i > 0 {
			assert.True(t, c.WindowStart.After(got[i-1].WindowStart), "windowStart must strictly increase")
		}
		total += c.Volume
	}

	var want float64
	for _, tr := range trades {
		want += tr.Volume
	}
	assert.InDelta(t, want, total, 1e-9)
}

// go test -v --run ^TestAggregateBoundaryOpensNewWindow$
func TestAggregateBoundaryOpensNewWindow(t *testing.T) {
	trades := []models.Trade{
		trade(at(10, 0), 1, 1),
		trade(at(11, 0), 2, 1),
	}

	got := NewAggregator().Aggregate(trades, at(9, 0))

	require.Len(t, got, 2)
	assert.Equal(t, at(10, 0), got[0].WindowStart)
	assert.Equal(t, at(11, 0), got[1].WindowStart)
}
