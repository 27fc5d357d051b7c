package models

// Requests for candle HTTP endpoints. Defined in domain for consistency and reuse.

type CandlesRequest struct {
	Symbol    string `param:"symbol" json:"symbol" validate:"required,max=32"`
	StartDate int64  `query:"startDate" json:"startDate" validate:"required,gt=0,ltfield=EndDate"`
	EndDate   int64  `query:"endDate" json:"endDate" validate:"required,gt=0"`
}

type CandlesResponse struct {
	Symbol    string        `json:"symbol"`
	StartDate int64         `json:"startDate"`
	EndDate   int64         `json:"endDate"`
	Count     int           `json:"count"`
	Candles   []Candlestick `json:"candles"`
}
