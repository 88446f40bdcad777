package types

import (
	"github.com/shopspring/decimal"
)

// PortfolioView is a read-only copy of cash and share counts.
type PortfolioView struct {
	Cash      decimal.Decimal
	Positions map[string]PositionSnapshot
}

type PositionSnapshot struct {
	Symbol   string
	Quantity int64
	AvgCost  decimal.Decimal
}
