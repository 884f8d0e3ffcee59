package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BenchmarkTick is the benchmark's periodic percentage return for one date
type BenchmarkTick struct {
	Benchmark string          `json:"benchmark"`
	TradeDate time.Time       `json:"trade_date"`
	RatePct   decimal.Decimal `json:"rate_pct"`
}
