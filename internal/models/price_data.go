package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceTick represents one trading day of price data for a ticker.
// AdjustedClose is zero when the source did not provide one.
type PriceTick struct {
	ID            int             `json:"id"`
	Ticker        string          `json:"ticker"`
	TradeDate     time.Time       `json:"trade_date"`
	Open          decimal.Decimal `json:"open"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	Close         decimal.Decimal `json:"close"`
	AdjustedClose decimal.Decimal `json:"adjusted_close,omitempty"`
	Volume        int64           `json:"volume"`
	CreatedAt     time.Time       `json:"created_at"`
}

// EffectiveAdjustedClose returns the adjusted close, falling back to the raw
// close when the adjusted value is missing or non-positive.
func (p PriceTick) EffectiveAdjustedClose() decimal.Decimal {
	if p.AdjustedClose.IsPositive() {
		return p.AdjustedClose
	}
	return p.Close
}
