package types

import (
	"time"
)

type AssetType string

const (
	AssetTypeStock  AssetType = "STOCK"
	AssetTypeCrypto AssetType = "CRYPTO"
	AssetTypeEtf    AssetType = "ETF"
)

// Asset is an instrument with stored bars. Symbol is the key strategies use.
type Asset struct {
	ID         int       `json:"id"`
	Symbol     string    `json:"symbol"`
	Name       string    `json:"name"`
	Type       AssetType `json:"type"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}
