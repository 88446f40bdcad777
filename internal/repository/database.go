package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Global error declarations.
var (
	ErrIntervalNotSupported = errors.New("timeframe not supported")
	ErrAssetNotFound        = errors.New("not found in datasource")
	ErrNoCandles            = errors.New("no candles found in datasource")
	ErrBacktestNotFound     = errors.New("backtest not found")
	ErrBacktestFinished     = errors.New("backtest already finished")
)

//go:embed schema.sql
var postgresSchema string

type assetsRepository interface {
	GetAssetByTicker(ctx context.Context, ticker string) (assetRow, error)
}
type candlesRepository interface {
	GetAggregates(ctx context.Context, arg getAggregatesParams) ([]aggregateRow, error)
}
type backtestsRepository interface {
	InsertBacktest(ctx context.Context, arg insertBacktestParams) error
	UpdateBacktestStatus(ctx context.Context, arg updateBacktestStatusParams) (int64, error)
	SaveBacktestResult(ctx context.Context, arg saveBacktestResultParams) (int64, error)
	GetBacktest(ctx context.Context, id string) (backtestRow, error)
}

// Database struct that holds the database connection and queries.
type Database struct {
	assets    assetsRepository
	candles   candlesRepository
	backtests backtestsRepository
	conn      *pgxpool.Pool
}

// NewDatabase creates a new Database instance and verifies connectivity.
func NewDatabase(ctx context.Context, dbURL string) (*Database, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// Register shopspring decimal
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	conn, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	// Ensure the connection is established.
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	q := newQueries(conn)
	return &Database{
		assets:    q,
		candles:   q,
		backtests: q,
		conn:      conn}, nil
}

// EnsureSchema creates the tables if they do not exist. Candle aggregation
// needs the TimescaleDB extension.
func (db *Database) EnsureSchema(ctx context.Context) error {
	if _, err := db.conn.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (db *Database) Close() {
	if db.conn != nil {
		db.conn.Close()
	}
}
