package engine

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-valuation-service/internal/models"
)

// Run-rate multipliers. These are a linear extrapolation of the average day,
// not a compounded annualization.
const (
	daysPerMonth = 30
	daysPerYear  = 365
)

// Project converts a total profit and yield accumulated since start into
// day, month and year run-rate figures. A nil start yields an all-zero projection.
func Project(category string, profit, yield decimal.Decimal, start *time.Time, today time.Time) models.PeriodProjection {
	p := models.PeriodProjection{
		Category:    category,
		TotalProfit: roundMoney(profit),
		TotalYield:  roundPct(yield),
	}
	if start == nil {
		p.TotalProfit = decimal.Zero
		p.TotalYield = decimal.Zero
		return p
	}

	s := Day(*start)
	p.StartDate = &s
	p.DaysElapsed = DaysBetween(s, today)
	if p.DaysElapsed < 1 {
		p.DaysElapsed = 1
	}

	days := decimal.NewFromInt(int64(p.DaysElapsed))
	dayProfit := profit.Div(days)
	dayYield := yield.Div(days)

	p.DayProfit = roundMoney(dayProfit)
	p.DayYield = dayYield.Round(4)
	p.MonthProfit = roundMoney(dayProfit.Mul(decimal.NewFromInt(daysPerMonth)))
	p.MonthYield = roundPct(dayYield.Mul(decimal.NewFromInt(daysPerMonth)))
	p.YearProfit = roundMoney(dayProfit.Mul(decimal.NewFromInt(daysPerYear)))
	p.YearYield = roundPct(dayYield.Mul(decimal.NewFromInt(daysPerYear)))
	return p
}

func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func roundPct(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// percentOf returns part / whole × 100, or zero when whole is zero
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}
