package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stratlab/types"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// CreateBacktest inserts a pending backtest record.
func (db *Database) CreateBacktest(ctx context.Context, id, strategyID string, start, end time.Time, initialCapital decimal.Decimal) error {
	return db.backtests.InsertBacktest(ctx, insertBacktestParams{
		ID:             id,
		StrategyID:     strategyID,
		Status:         string(types.StatusPending),
		StartDate:      start,
		EndDate:        end,
		InitialCapital: initialCapital,
	})
}

// UpdateStatus moves a backtest that has not finished yet to status.
func (db *Database) UpdateStatus(ctx context.Context, id string, status types.BacktestStatus, message string) error {
	n, err := db.backtests.UpdateBacktestStatus(ctx, updateBacktestStatusParams{
		ID:     id,
		Status: string(status),
		Error:  optionalString(message),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return db.whyNotUpdated(ctx, id)
	}
	return nil
}

// SaveResult writes the final status, headline metrics and the trade and
// equity detail of a run.
func (db *Database) SaveResult(ctx context.Context, res *types.BacktestResult) error {
	results, err := encodeResults(res)
	if err != nil {
		return err
	}
	n, err := db.backtests.SaveBacktestResult(ctx, saveBacktestResultParams{
		ID:          res.ID,
		Status:      string(res.Status),
		FinalValue:  res.FinalValue,
		TotalReturn: res.TotalReturnPct,
		SharpeRatio: res.SharpeRatio,
		MaxDrawdown: res.MaxDrawdownPct,
		WinRate:     res.WinRatePct,
		TotalTrades: int32(res.TotalTrades),
		Results:     results,
		Error:       optionalString(res.Error),
		CompletedAt: res.CompletedAt,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return db.whyNotUpdated(ctx, res.ID)
	}
	return nil
}

func (db *Database) whyNotUpdated(ctx context.Context, id string) error {
	if _, err := db.GetBacktest(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("backtest %s: %w", id, ErrBacktestFinished)
}

// GetBacktest loads a backtest record with whatever results it has so far.
func (db *Database) GetBacktest(ctx context.Context, id string) (*types.BacktestResult, error) {
	row, err := db.backtests.GetBacktest(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("backtest %s: %w", id, ErrBacktestNotFound)
		}
		return nil, err
	}
	res := &types.BacktestResult{
		ID:             row.ID,
		StrategyID:     row.StrategyID,
		Status:         types.BacktestStatus(row.Status),
		InitialCapital: row.InitialCapital,
		Start:          row.StartDate,
		End:            row.EndDate,
		Trades:         []types.TradeEvent{},
		EquityCurve:    []types.EquityPoint{},
	}
	res.FinalValue = row.FinalValue.Decimal
	res.TotalReturnPct = row.TotalReturn.Decimal
	res.SharpeRatio = row.SharpeRatio.Decimal
	res.MaxDrawdownPct = row.MaxDrawdown.Decimal
	res.WinRatePct = row.WinRate.Decimal
	if row.TotalTrades != nil {
		res.TotalTrades = int(*row.TotalTrades)
	}
	if row.Error != nil {
		res.Error = *row.Error
	}
	if row.CompletedAt != nil {
		res.CompletedAt = *row.CompletedAt
	}
	if err := decodeResults(row.Results, res); err != nil {
		return nil, err
	}
	return res, nil
}
