package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// EquityPoint is total portfolio value (cash plus marked positions) at one
// timestamp of the simulation axis.
type EquityPoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Value     decimal.Decimal `json:"value"`
}

// Metrics is the summary computed from an equity curve and trade ledger.
// Percentages are expressed in percent, not fractions.
type Metrics struct {
	FinalValue     decimal.Decimal `json:"finalValue"`
	TotalReturnPct decimal.Decimal `json:"totalReturnPct"`
	SharpeRatio    decimal.Decimal `json:"sharpeRatio"`
	MaxDrawdownPct decimal.Decimal `json:"maxDrawdownPct"`
	WinRatePct     decimal.Decimal `json:"winRatePct"`
	TotalTrades    int             `json:"totalTrades"`
	AvgTradePnl    decimal.Decimal `json:"avgTradePnl"`
	VolatilityPct  decimal.Decimal `json:"volatilityPct"`
}

type BacktestResult struct {
	ID             string          `json:"id"`
	StrategyID     string          `json:"strategyId"`
	Status         BacktestStatus  `json:"status"`
	Error          string          `json:"error,omitempty"`
	InitialCapital decimal.Decimal `json:"initialCapital"`
	Start          time.Time       `json:"start"`
	End            time.Time       `json:"end"`
	Symbols        []string        `json:"symbols"`
	// Symbols whose bars were replaced by the synthetic series.
	SyntheticSymbols []string `json:"syntheticSymbols,omitempty"`
	RejectedOrders   int      `json:"rejectedOrders"`

	Metrics
	Trades      []TradeEvent  `json:"trades"`
	EquityCurve []EquityPoint `json:"equityCurve"`
	CompletedAt time.Time     `json:"completedAt"`
}
