package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/trogers1052/portfolio-valuation-service/internal/models"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func clockAt(s string) func() time.Time {
	return func() time.Time { return date(s).Add(15 * time.Hour) }
}

func buy(ticker string, qty, price, day string) models.Transaction {
	return models.Transaction{
		Ticker:    ticker,
		Quantity:  dec(qty),
		UnitPrice: dec(price),
		TradeDate: date(day),
	}
}

func tick(id int, ticker, day, closePrice, adjusted string) models.PriceTick {
	p := models.PriceTick{
		ID:        id,
		Ticker:    ticker,
		TradeDate: date(day),
		Close:     dec(closePrice),
	}
	if adjusted != "" {
		p.AdjustedClose = dec(adjusted)
	}
	return p
}

func rate(day, pct string) models.BenchmarkTick {
	return models.BenchmarkTick{Benchmark: "CDI", TradeDate: date(day), RatePct: dec(pct)}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]interface{}{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}
