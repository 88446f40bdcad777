package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeEvent is an accepted buy or sell. PnL is realized profit for sells
// against the position's average cost, zero for buys.
type TradeEvent struct {
	Symbol    string          `json:"symbol"`
	Side      Side            `json:"side"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
	PnL       decimal.Decimal `json:"pnl"`
}

// Value is quantity * price.
func (t TradeEvent) Value() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}
