package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"stratlab/types"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var testInterval = types.OneMinute
var startTime = time.UnixMilli(0).UTC()
var endTime = startTime.Add(time.Minute * 5)

type mockCandlesRepository struct {
	sqlError error
	empty    bool
}

func TestDatabase_GetAggregates(t *testing.T) {
	type args struct {
		assetID  int
		interval types.Interval
		start    time.Time
		end      time.Time
	}
	tests := []struct {
		name    string
		args    args
		want    []types.Candle
		sqlErr  error
		empty   bool
		wantErr error
	}{
		{"should throw ErrNoCandles on empty result", args{999, testInterval, startTime, endTime}, nil, nil, true, ErrNoCandles},
		{"should throw ErrNoCandles on no rows", args{999, testInterval, startTime, endTime}, nil, pgx.ErrNoRows, false, ErrNoCandles},
		{"should throw ErrIntervalNotSupported", args{999, types.Interval("7"), startTime, endTime}, nil, nil, false, ErrIntervalNotSupported},
		{"should return candles", args{999, testInterval, startTime, endTime}, mockCandles(startTime, endTime), nil, false, nil},
		{"should return monthly candles", args{999, types.Month, startTime, endTime}, mockCandles(startTime, endTime), nil, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &Database{
				candles: mockCandlesRepository{
					sqlError: tt.sqlErr,
					empty:    tt.empty,
				},
			}
			got, err := db.GetAggregates(context.Background(), tt.args.assetID, "AAPL", tt.args.interval, tt.args.start, tt.args.end)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("GetAggregates() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetAggregates() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("GetAggregates() len = %d, want %d", len(got), len(tt.want))
			}
			for i := 0; i < len(tt.want); i++ {
				if got[i].Symbol != "AAPL" {
					t.Errorf("GetAggregates() %s symbol got = %v", got[i].Timestamp, got[i].Symbol)
					break
				}
				if got[i].Interval != tt.args.interval {
					t.Errorf("GetAggregates() %s interval got = %v, want %v", got[i].Timestamp, got[i].Interval, tt.want[i].Interval)
					break
				}
				if !got[i].High.Equal(tt.want[i].High) {
					t.Errorf("GetAggregates() %s high got = %v, want %v", got[i].Timestamp, got[i].High, tt.want[i].High)
					break
				}
				if !got[i].Timestamp.Equal(tt.want[i].Timestamp) {
					t.Errorf("GetAggregates() timestamp got = %v, want %v", got[i].Timestamp, tt.want[i].Timestamp)
					break
				}
			}
		})
	}
}

func TestBucketToInterval_CoversEveryInterval(t *testing.T) {
	for code, interval := range types.ConvertInterval {
		if _, ok := bucketToInterval[interval]; !ok {
			t.Errorf("interval %s has no time bucket", code)
		}
	}
}

func TestDatabase_Fetch(t *testing.T) {
	tests := []struct {
		name      string
		assetErr  error
		candleErr error
		wantErr   error
		wantLen   int
	}{
		{name: "unknown symbol", assetErr: pgx.ErrNoRows, wantErr: ErrAssetNotFound},
		{name: "no candles", candleErr: pgx.ErrNoRows, wantErr: ErrNoCandles},
		{name: "ok", wantLen: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &Database{
				assets:  mockAssetsRepository{sqlError: tt.assetErr},
				candles: mockCandlesRepository{sqlError: tt.candleErr},
			}
			got, err := db.Fetch(context.Background(), "AAPL", startTime, endTime, testInterval)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Fetch() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if len(got) != tt.wantLen {
				t.Errorf("Fetch() len = %d, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func (m mockCandlesRepository) GetAggregates(_ context.Context, arg getAggregatesParams) ([]aggregateRow, error) {
	if m.sqlError != nil {
		return []aggregateRow{}, m.sqlError
	}
	if m.empty {
		return nil, nil
	}
	var candles []aggregateRow
	i := *arg.Starttime
	for i.Before(*arg.Endtime) {
		bucket := i
		candles = append(candles, aggregateRow{
			Bucket:  &bucket,
			AssetID: arg.AssetID,
			Open:    decimal.NewFromInt(i.UnixMilli()),
			High:    decimal.NewFromInt(i.UnixMilli()),
			Low:     decimal.NewFromInt(i.UnixMilli()),
			Close:   decimal.NewFromInt(i.UnixMilli()),
			Volume:  decimal.NewFromInt(i.UnixMilli()),
		})
		i = i.Add(types.IntervalToTime[testInterval])
	}
	return candles, nil
}

func mockCandles(start, end time.Time) []types.Candle {
	var candles []types.Candle
	i := start
	for i.Before(end) {
		candles = append(candles, types.Candle{
			Symbol:    "AAPL",
			Timestamp: i,
			Interval:  testInterval,
			Open:      decimal.NewFromInt(i.UnixMilli()),
			High:      decimal.NewFromInt(i.UnixMilli()),
			Low:       decimal.NewFromInt(i.UnixMilli()),
			Close:     decimal.NewFromInt(i.UnixMilli()),
			Volume:    decimal.NewFromInt(i.UnixMilli()),
		})
		i = i.Add(types.IntervalToTime[testInterval])
	}
	return candles
}
