package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type queries struct {
	db dbtx
}

func newQueries(db dbtx) *queries {
	return &queries{db: db}
}

type assetRow struct {
	ID         int32
	Ticker     string
	Name       string
	Type       string
	CreatedAt  *time.Time
	ModifiedAt *time.Time
}

const getAssetByTicker = `-- name: GetAssetByTicker :one
SELECT id, ticker, name, type, created_at, modified_at
FROM assets
WHERE ticker = $1
`

func (q *queries) GetAssetByTicker(ctx context.Context, ticker string) (assetRow, error) {
	row := q.db.QueryRow(ctx, getAssetByTicker, ticker)
	var i assetRow
	err := row.Scan(&i.ID, &i.Ticker, &i.Name, &i.Type, &i.CreatedAt, &i.ModifiedAt)
	return i, err
}

type getAggregatesParams struct {
	TimeBucket string
	AssetID    int32
	Starttime  *time.Time
	Endtime    *time.Time
}

type aggregateRow struct {
	Bucket  *time.Time
	AssetID int32
	Open    decimal.Decimal
	High    decimal.Decimal
	Low     decimal.Decimal
	Close   decimal.Decimal
	Volume  decimal.Decimal
}

const getAggregates = `-- name: GetAggregates :many
SELECT time_bucket($1::interval, timestamp) AS bucket,
       asset_id,
       first(open, timestamp)  AS open,
       max(high)               AS high,
       min(low)                AS low,
       last(close, timestamp)  AS close,
       sum(volume)             AS volume
FROM candles
WHERE asset_id = $2
  AND timestamp >= $3
  AND timestamp <= $4
GROUP BY bucket, asset_id
ORDER BY bucket
`

func (q *queries) GetAggregates(ctx context.Context, arg getAggregatesParams) ([]aggregateRow, error) {
	rows, err := q.db.Query(ctx, getAggregates, arg.TimeBucket, arg.AssetID, arg.Starttime, arg.Endtime)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []aggregateRow
	for rows.Next() {
		var i aggregateRow
		if err := rows.Scan(&i.Bucket, &i.AssetID, &i.Open, &i.High, &i.Low, &i.Close, &i.Volume); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type insertBacktestParams struct {
	ID             string
	StrategyID     string
	Status         string
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital decimal.Decimal
}

const insertBacktest = `-- name: InsertBacktest :exec
INSERT INTO backtests (id, strategy_id, status, start_date, end_date, initial_capital)
VALUES ($1, $2, $3, $4, $5, $6)
`

func (q *queries) InsertBacktest(ctx context.Context, arg insertBacktestParams) error {
	_, err := q.db.Exec(ctx, insertBacktest, arg.ID, arg.StrategyID, arg.Status, arg.StartDate, arg.EndDate, arg.InitialCapital)
	return err
}

type updateBacktestStatusParams struct {
	ID     string
	Status string
	Error  *string
}

const updateBacktestStatus = `-- name: UpdateBacktestStatus :execrows
UPDATE backtests
SET status = $2, error = $3
WHERE id = $1
  AND status NOT IN ('completed', 'error', 'cancelled')
`

func (q *queries) UpdateBacktestStatus(ctx context.Context, arg updateBacktestStatusParams) (int64, error) {
	tag, err := q.db.Exec(ctx, updateBacktestStatus, arg.ID, arg.Status, arg.Error)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type saveBacktestResultParams struct {
	ID          string
	Status      string
	FinalValue  decimal.Decimal
	TotalReturn decimal.Decimal
	SharpeRatio decimal.Decimal
	MaxDrawdown decimal.Decimal
	WinRate     decimal.Decimal
	TotalTrades int32
	Results     []byte
	Error       *string
	CompletedAt time.Time
}

const saveBacktestResult = `-- name: SaveBacktestResult :execrows
UPDATE backtests
SET status = $2, final_value = $3, total_return = $4, sharpe_ratio = $5, max_drawdown = $6,
    win_rate = $7, total_trades = $8, results = $9, error = $10, completed_at = $11
WHERE id = $1
  AND status NOT IN ('completed', 'error', 'cancelled')
`

func (q *queries) SaveBacktestResult(ctx context.Context, arg saveBacktestResultParams) (int64, error) {
	tag, err := q.db.Exec(ctx, saveBacktestResult,
		arg.ID, arg.Status, arg.FinalValue, arg.TotalReturn, arg.SharpeRatio, arg.MaxDrawdown,
		arg.WinRate, arg.TotalTrades, arg.Results, arg.Error, arg.CompletedAt,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type backtestRow struct {
	ID             string
	StrategyID     string
	Status         string
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital decimal.Decimal
	FinalValue     decimal.NullDecimal
	TotalReturn    decimal.NullDecimal
	SharpeRatio    decimal.NullDecimal
	MaxDrawdown    decimal.NullDecimal
	WinRate        decimal.NullDecimal
	TotalTrades    *int32
	Results        []byte
	Error          *string
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

const getBacktest = `-- name: GetBacktest :one
SELECT id, strategy_id, status, start_date, end_date, initial_capital, final_value, total_return,
       sharpe_ratio, max_drawdown, win_rate, total_trades, results, error, created_at, completed_at
FROM backtests
WHERE id = $1
`

func (q *queries) GetBacktest(ctx context.Context, id string) (backtestRow, error) {
	row := q.db.QueryRow(ctx, getBacktest, id)
	var i backtestRow
	err := row.Scan(
		&i.ID, &i.StrategyID, &i.Status, &i.StartDate, &i.EndDate, &i.InitialCapital,
		&i.FinalValue, &i.TotalReturn, &i.SharpeRatio, &i.MaxDrawdown, &i.WinRate,
		&i.TotalTrades, &i.Results, &i.Error, &i.CreatedAt, &i.CompletedAt,
	)
	return i, err
}
