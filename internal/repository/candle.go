package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stratlab/types"

	"github.com/jackc/pgx/v5"
)

var bucketToInterval = map[types.Interval]string{
	types.OneMinute:      "1 minute",
	types.ThreeMinutes:   "3 minutes",
	types.FiveMinutes:    "5 minutes",
	types.FifteenMinutes: "15 minutes",
	types.ThirtyMinutes:  "30 minutes",
	types.Hour:           "1 hour",
	types.TwoHours:       "2 hours",
	types.FourHours:      "4 hours",
	types.Day:            "1 day",
	types.Week:           "1 week",
	types.Month:          "1 month",
}

// GetAggregates returns the asset's bars between start and end, both
// inclusive, bucketed to interval.
func (db *Database) GetAggregates(ctx context.Context, assetID int, ticker string, interval types.Interval, start, end time.Time) ([]types.Candle, error) {
	bucket, ok := bucketToInterval[interval]
	if !ok {
		return nil, ErrIntervalNotSupported
	}
	args := getAggregatesParams{
		TimeBucket: bucket,
		AssetID:    int32(assetID),
		Starttime:  &start,
		Endtime:    &end,
	}
	candles, err := db.candles.GetAggregates(ctx, args)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoCandles
		}
		return nil, err
	}
	if len(candles) == 0 {
		return nil, ErrNoCandles
	}
	return convertCandles(candles, interval, ticker), nil
}

// Fetch looks the symbol up and returns its aggregated bars, so a Database
// can serve as the backtest's market data provider.
func (db *Database) Fetch(ctx context.Context, symbol string, start, end time.Time, interval types.Interval) ([]types.Candle, error) {
	asset, err := db.GetAssetByTicker(ctx, symbol)
	if err != nil {
		return nil, err
	}
	candles, err := db.GetAggregates(ctx, asset.ID, asset.Symbol, interval, start, end)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}
	return candles, nil
}

func convertCandles(candleDAOs []aggregateRow, interval types.Interval, ticker string) []types.Candle {
	candles := make([]types.Candle, 0, len(candleDAOs))
	for _, dao := range candleDAOs {
		if dao.Bucket == nil {
			continue
		}
		candles = append(candles, types.Candle{
			Symbol:    ticker,
			Open:      dao.Open,
			Close:     dao.Close,
			High:      dao.High,
			Low:       dao.Low,
			Volume:    dao.Volume,
			Interval:  interval,
			Timestamp: dao.Bucket.UTC(),
		})
	}
	return candles
}
