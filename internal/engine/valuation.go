package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Valuate computes Σ holdings(ticker, day) × price(ticker, day) for every day.
// Tickers without a price yet on a given day contribute nothing.
func Valuate(cal Calendar, holdings map[string][]decimal.Decimal, prices map[string]Series) []decimal.Decimal {
	tickers := make([]string, 0, len(holdings))
	for ticker := range holdings {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	values := make([]decimal.Decimal, cal.Len())
	for _, ticker := range tickers {
		series, ok := prices[ticker]
		if !ok {
			continue
		}
		qty := holdings[ticker]
		for i := range values {
			price, ok := series.At(i)
			if !ok || qty[i].IsZero() {
				continue
			}
			values[i] = values[i].Add(qty[i].Mul(price))
		}
	}
	return values
}
