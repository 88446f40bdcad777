package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"stratlab/types"

	"github.com/jackc/pgx/v5"
)

type mockAssetsRepository struct {
	sqlError error
}

func TestDatabase_GetAssetByTicker(t *testing.T) {
	type args struct {
		ticker string
	}
	tests := []struct {
		name    string
		args    args
		want    *types.Asset
		sqlErr  error
		wantErr error
	}{
		{"should throw ErrAssetNotFound", args{"AAPL"}, nil, pgx.ErrNoRows, ErrAssetNotFound},
		{"should pass through driver errors", args{"AAPL"}, nil, errors.New("conn reset"), nil},
		{"should return asset", args{"AAPL"}, &types.Asset{Symbol: "AAPL", ID: 1}, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &Database{
				assets: mockAssetsRepository{
					sqlError: tt.sqlErr,
				},
			}
			got, err := db.GetAssetByTicker(context.Background(), tt.args.ticker)
			if tt.sqlErr != nil {
				if err == nil {
					t.Fatalf("GetAssetByTicker() expected error")
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Errorf("GetAssetByTicker() error = %v, wantErr %v", err, tt.wantErr)
				}
				if tt.wantErr == nil && errors.Is(err, ErrAssetNotFound) {
					t.Errorf("GetAssetByTicker() driver error reported as not found")
				}
				return
			}
			if err != nil {
				t.Fatalf("GetAssetByTicker() error = %v", err)
			}
			if got.Symbol != tt.want.Symbol {
				t.Errorf("GetAssetByTicker() symbol = %v, want %v", got, tt.want)
			}
			if got.ID != tt.want.ID {
				t.Errorf("GetAssetByTicker() id = %v, want %v", got, tt.want)
			}
		})
	}
}

func (m mockAssetsRepository) GetAssetByTicker(_ context.Context, ticker string) (assetRow, error) {
	if m.sqlError != nil {
		return assetRow{}, m.sqlError
	}
	curTime := time.UnixMilli(1)
	return assetRow{
		ID:         1,
		Ticker:     ticker,
		Name:       "Apple",
		Type:       string(types.AssetTypeStock),
		CreatedAt:  &curTime,
		ModifiedAt: &curTime,
	}, nil
}
