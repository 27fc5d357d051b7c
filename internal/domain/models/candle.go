package models

import "time"

// CandleWidth is the fixed window of every candlestick.
const CandleWidth = time.Hour

// Candlestick is an OHLCV summary of the trades inside one window.
// Derived on every query, never stored.
type Candlestick struct {
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Volume      float64   `json:"volume"`
	WindowStart time.Time `json:"windowStart"`
}
