package engine

import (
	"context"
	"time"

	"stratlab/internal/sandbox"
	"stratlab/types"

	"github.com/shopspring/decimal"
)

type dataProvider interface {
	Fetch(ctx context.Context, symbol string, start, end time.Time, interval types.Interval) ([]types.Candle, error)
}

type syntheticSource interface {
	Generate(symbol string, start, end time.Time) []types.Candle
}

type interpreter interface {
	Run(code string, parameters map[string]any, data types.HistoricalData, ledger sandbox.Ledger) error
}

// ResultStore persists the backtest record through its lifecycle.
type ResultStore interface {
	CreateBacktest(ctx context.Context, id, strategyID string, start, end time.Time, initialCapital decimal.Decimal) error
	UpdateStatus(ctx context.Context, id string, status types.BacktestStatus, message string) error
	SaveResult(ctx context.Context, res *types.BacktestResult) error
}

type nopStore struct{}

func (nopStore) CreateBacktest(context.Context, string, string, time.Time, time.Time, decimal.Decimal) error {
	return nil
}

func (nopStore) UpdateStatus(context.Context, string, types.BacktestStatus, string) error {
	return nil
}

func (nopStore) SaveResult(context.Context, *types.BacktestResult) error {
	return nil
}
