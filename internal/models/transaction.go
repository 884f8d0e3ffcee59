package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset type constants
const (
	AssetTypeStock = "stock"
	AssetTypeETF   = "etf"
	AssetTypeFII   = "fii"
	AssetTypeOther = "other"
)

// Transaction represents a recorded buy in a user's ledger
type Transaction struct {
	ID         int             `json:"id"`
	UserID     string          `json:"user_id"`
	Ticker     string          `json:"ticker"`
	Name       string          `json:"name,omitempty"`
	AssetType  string          `json:"asset_type,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TradeDate  time.Time       `json:"trade_date"`
	ExternalID string          `json:"external_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Cost returns quantity × unit price
func (t Transaction) Cost() decimal.Decimal {
	return t.Quantity.Mul(t.UnitPrice)
}

// NormalizeAssetType maps free-form asset type labels onto the known set
func NormalizeAssetType(s string) string {
	switch s {
	case AssetTypeStock, "acoes", "acao", "equity":
		return AssetTypeStock
	case AssetTypeETF:
		return AssetTypeETF
	case AssetTypeFII, "reit":
		return AssetTypeFII
	case "":
		return ""
	default:
		return AssetTypeOther
	}
}
