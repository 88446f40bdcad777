package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one OHLCV bar of a symbol at one interval step.
type Candle struct {
	Symbol    string          `json:"symbol"`
	Open      decimal.Decimal `json:"open"`
	Close     decimal.Decimal `json:"close"`
	High      decimal.Decimal `json:"high" `
	Low       decimal.Decimal `json:"low"`
	Volume    decimal.Decimal `json:"volume"`
	Interval  Interval        `json:"interval"`
	Timestamp time.Time       `json:"timestamp"`
}

// HistoricalData maps a symbol to its bars in ascending timestamp order.
type HistoricalData map[string][]Candle
