package repository

import (
	"context"
	"errors"
	"fmt"

	"stratlab/types"

	"github.com/jackc/pgx/v5"
)

// GetAssetByTicker retrieves a types.Asset by its symbol.
func (db *Database) GetAssetByTicker(ctx context.Context, ticker string) (*types.Asset, error) {
	asset, err := db.assets.GetAssetByTicker(ctx, ticker)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("ticker %s %w", ticker, ErrAssetNotFound)
		}
		return nil, err
	}
	out := &types.Asset{
		ID:     int(asset.ID),
		Symbol: asset.Ticker,
		Name:   asset.Name,
		Type:   types.AssetType(asset.Type),
	}
	if asset.CreatedAt != nil {
		out.CreatedAt = *asset.CreatedAt
	}
	if asset.ModifiedAt != nil {
		out.ModifiedAt = *asset.ModifiedAt
	}
	return out, nil
}
