package models

// DefaultExchange is recorded for instruments first seen on a feed that carries no listing info.
const DefaultExchange = "NASDAQ"

// Instrument is the canonical record of a traded symbol.
type Instrument struct {
	ID          int64  `json:"id"`
	Symbol      string `json:"symbol"`
	DisplayName string `json:"name"`
	Exchange    string `json:"exchangeName"`
}

// InstrumentDefaults are applied only when an instrument row is created.
type InstrumentDefaults struct {
	DisplayName string
	Exchange    string
}
