package repository

import (
	"encoding/json"
	"fmt"

	"stratlab/types"

	"github.com/shopspring/decimal"
)

// resultsDocument is the detail stored next to the headline metrics columns.
type resultsDocument struct {
	Symbols          []string            `json:"symbols"`
	SyntheticSymbols []string            `json:"syntheticSymbols,omitempty"`
	RejectedOrders   int                 `json:"rejectedOrders"`
	AvgTradePnl      decimal.Decimal     `json:"avgTradePnl"`
	VolatilityPct    decimal.Decimal     `json:"volatilityPct"`
	Trades           []types.TradeEvent  `json:"trades"`
	EquityCurve      []types.EquityPoint `json:"equityCurve"`
}

func encodeResults(res *types.BacktestResult) ([]byte, error) {
	b, err := json.Marshal(resultsDocument{
		Symbols:          res.Symbols,
		SyntheticSymbols: res.SyntheticSymbols,
		RejectedOrders:   res.RejectedOrders,
		AvgTradePnl:      res.AvgTradePnl,
		VolatilityPct:    res.VolatilityPct,
		Trades:           res.Trades,
		EquityCurve:      res.EquityCurve,
	})
	if err != nil {
		return nil, fmt.Errorf("encode results: %w", err)
	}
	return b, nil
}

func decodeResults(raw []byte, res *types.BacktestResult) error {
	if len(raw) == 0 {
		return nil
	}
	var doc resultsDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode results: %w", err)
	}
	res.Symbols = doc.Symbols
	res.SyntheticSymbols = doc.SyntheticSymbols
	res.RejectedOrders = doc.RejectedOrders
	res.AvgTradePnl = doc.AvgTradePnl
	res.VolatilityPct = doc.VolatilityPct
	res.Trades = doc.Trades
	res.EquityCurve = doc.EquityCurve
	return nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
