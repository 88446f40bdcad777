package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"stratlab/types"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

//go:embed sqlite_schema.sql
var sqliteSchema string

// SQLiteStore keeps backtest records in a local SQLite file. Times are stored
// as unix milliseconds and decimals as text.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and applies
// the schema. Use ":memory:" for a throwaway store.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// SQLite serialises writers; a single connection also keeps ":memory:"
	// databases alive across calls.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA journal_mode = WAL"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateBacktest(ctx context.Context, id, strategyID string, start, end time.Time, initialCapital decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO backtests (id, strategy_id, status, start_date, end_date, initial_capital, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, strategyID, string(types.StatusPending), start.UnixMilli(), end.UnixMilli(),
		initialCapital.String(), time.Now().UnixMilli(),
	)
	return err
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status types.BacktestStatus, message string) error {
	r, err := s.db.ExecContext(ctx, `
		UPDATE backtests SET status = ?, error = ?
		WHERE id = ? AND status NOT IN ('completed', 'error', 'cancelled')`,
		string(status), optionalString(message), id,
	)
	if err != nil {
		return err
	}
	return s.checkUpdated(ctx, r, id)
}

func (s *SQLiteStore) SaveResult(ctx context.Context, res *types.BacktestResult) error {
	results, err := encodeResults(res)
	if err != nil {
		return err
	}
	r, err := s.db.ExecContext(ctx, `
		UPDATE backtests
		SET status = ?, final_value = ?, total_return = ?, sharpe_ratio = ?, max_drawdown = ?,
		    win_rate = ?, total_trades = ?, results = ?, error = ?, completed_at = ?
		WHERE id = ? AND status NOT IN ('completed', 'error', 'cancelled')`,
		string(res.Status), res.FinalValue.String(), res.TotalReturnPct.String(), res.SharpeRatio.String(),
		res.MaxDrawdownPct.String(), res.WinRatePct.String(), res.TotalTrades, string(results),
		optionalString(res.Error), res.CompletedAt.UnixMilli(), res.ID,
	)
	if err != nil {
		return err
	}
	return s.checkUpdated(ctx, r, res.ID)
}

func (s *SQLiteStore) checkUpdated(ctx context.Context, r sql.Result, id string) error {
	n, err := r.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := s.GetBacktest(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("backtest %s: %w", id, ErrBacktestFinished)
}

func (s *SQLiteStore) GetBacktest(ctx context.Context, id string) (*types.BacktestResult, error) {
	var (
		status, strategyID, initialCapital              string
		startMs, endMs                                  int64
		finalValue, totalReturn, sharpe, maxDD, winRate sql.NullString
		totalTrades, completedMs                        sql.NullInt64
		results, errMsg                                 sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT strategy_id, status, start_date, end_date, initial_capital, final_value, total_return,
		       sharpe_ratio, max_drawdown, win_rate, total_trades, results, error, completed_at
		FROM backtests WHERE id = ?`, id,
	).Scan(&strategyID, &status, &startMs, &endMs, &initialCapital, &finalValue, &totalReturn,
		&sharpe, &maxDD, &winRate, &totalTrades, &results, &errMsg, &completedMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("backtest %s: %w", id, ErrBacktestNotFound)
		}
		return nil, err
	}

	res := &types.BacktestResult{
		ID:          id,
		StrategyID:  strategyID,
		Status:      types.BacktestStatus(status),
		Error:       errMsg.String,
		Start:       time.UnixMilli(startMs).UTC(),
		End:         time.UnixMilli(endMs).UTC(),
		Trades:      []types.TradeEvent{},
		EquityCurve: []types.EquityPoint{},
	}
	if res.InitialCapital, err = decimal.NewFromString(initialCapital); err != nil {
		return nil, fmt.Errorf("initial_capital: %w", err)
	}
	for _, col := range []struct {
		src sql.NullString
		dst *decimal.Decimal
	}{
		{finalValue, &res.FinalValue},
		{totalReturn, &res.TotalReturnPct},
		{sharpe, &res.SharpeRatio},
		{maxDD, &res.MaxDrawdownPct},
		{winRate, &res.WinRatePct},
	} {
		if !col.src.Valid {
			continue
		}
		if *col.dst, err = decimal.NewFromString(col.src.String); err != nil {
			return nil, err
		}
	}
	res.TotalTrades = int(totalTrades.Int64)
	if completedMs.Valid {
		res.CompletedAt = time.UnixMilli(completedMs.Int64).UTC()
	}
	if err := decodeResults([]byte(results.String), res); err != nil {
		return nil, err
	}
	return res, nil
}
