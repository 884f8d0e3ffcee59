package engine

import (
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-valuation-service/internal/models"
)

// dailyDeltas buckets a per-transaction amount onto calendar days. Transactions
// dated before the calendar start land on day 0; those after the end are left out.
func dailyDeltas(cal Calendar, txs []models.Transaction, amount func(models.Transaction) decimal.Decimal) []decimal.Decimal {
	deltas := make([]decimal.Decimal, cal.Len())
	for _, tx := range txs {
		idx, ok := cal.Index(tx.TradeDate)
		if !ok {
			continue
		}
		deltas[idx] = deltas[idx].Add(amount(tx))
	}
	return deltas
}

// prefixSum folds deltas into a running total, one accumulator threaded through the days
func prefixSum(deltas []decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(deltas))
	acc := decimal.Zero
	for i, d := range deltas {
		acc = acc.Add(d)
		out[i] = acc
	}
	return out
}

// AccumulateHoldings returns, for every ticker, the cumulative quantity held on
// each calendar day: the sum of that ticker's transactions dated on or before the day.
func AccumulateHoldings(cal Calendar, txs []models.Transaction) map[string][]decimal.Decimal {
	byTicker := make(map[string][]models.Transaction)
	for _, tx := range txs {
		byTicker[tx.Ticker] = append(byTicker[tx.Ticker], tx)
	}

	holdings := make(map[string][]decimal.Decimal, len(byTicker))
	for ticker, group := range byTicker {
		holdings[ticker] = prefixSum(dailyDeltas(cal, group, func(tx models.Transaction) decimal.Decimal {
			return tx.Quantity
		}))
	}
	return holdings
}

// CashFlows returns the cash injected on each calendar day (Σ quantity × unit price)
func CashFlows(cal Calendar, txs []models.Transaction) []decimal.Decimal {
	return dailyDeltas(cal, txs, models.Transaction.Cost)
}
