package engine

import (
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-valuation-service/internal/models"
)

// balancePrecision bounds the digits carried by the compounding balance.
// Presentation rounding happens separately, at two places.
const balancePrecision = 12

var hundred = decimal.NewFromInt(100)

// BenchmarkStep applies one day of the benchmark recurrence:
// balance × (1 + rate/100) + cash. A missing rate means no growth that day.
func BenchmarkStep(balance, ratePct decimal.Decimal, hasRate bool, cash decimal.Decimal) decimal.Decimal {
	if hasRate {
		factor := decimal.NewFromInt(1).Add(ratePct.Div(hundred))
		balance = balance.Mul(factor).Round(balancePrecision)
	}
	return balance.Add(cash)
}

// CompoundBenchmark replays the daily cash injections into a single balance
// driven by the benchmark's daily rate, in strict ascending date order.
func CompoundBenchmark(cal Calendar, rates []models.BenchmarkTick, cash []decimal.Decimal) []decimal.Decimal {
	byDay := make(map[int]decimal.Decimal, len(rates))
	for _, r := range rates {
		idx := DaysBetween(cal.Start, r.TradeDate)
		if idx < 0 || idx >= cal.Len() {
			continue
		}
		byDay[idx] = r.RatePct
	}

	out := make([]decimal.Decimal, cal.Len())
	balance := decimal.Zero
	for i := range out {
		rate, ok := byDay[i]
		var injected decimal.Decimal
		if i < len(cash) {
			injected = cash[i]
		}
		balance = BenchmarkStep(balance, rate, ok, injected)
		out[i] = balance
	}
	return out
}
