package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyValuationPoint is one calendar day of the reconstructed portfolio
type DailyValuationPoint struct {
	Date           time.Time       `json:"date"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
	AdjustedValue  decimal.Decimal `json:"adjusted_value"`
	BenchmarkValue decimal.Decimal `json:"benchmark_value"`
	InvestedAmount decimal.Decimal `json:"invested_amount"`
}

// Price source constants
const (
	PriceSourceMarket    = "market"
	PriceSourceCostBasis = "cost_basis"
)

// PositionSnapshot is the reconciled state of a single held ticker
type PositionSnapshot struct {
	Ticker               string          `json:"ticker"`
	Name                 string          `json:"name,omitempty"`
	AssetType            string          `json:"asset_type"`
	Sector               string          `json:"sector,omitempty"`
	Subtype              string          `json:"subtype,omitempty"`
	Quantity             decimal.Decimal `json:"quantity"`
	AvgCostRaw           decimal.Decimal `json:"avg_cost_raw"`
	AvgCostAdjusted      decimal.Decimal `json:"avg_cost_adjusted"`
	CostRaw              decimal.Decimal `json:"cost_raw"`
	CostAdjusted         decimal.Decimal `json:"cost_adjusted"`
	CurrentPriceRaw      decimal.Decimal `json:"current_price_raw"`
	CurrentPriceAdjusted decimal.Decimal `json:"current_price_adjusted"`
	PriceDate            *time.Time      `json:"price_date,omitempty"`
	PriceSource          string          `json:"price_source"`
	MarketValue          decimal.Decimal `json:"market_value"`
	ProfitRaw            decimal.Decimal `json:"profit_raw"`
	ProfitPctRaw         decimal.Decimal `json:"profit_pct_raw"`
	TotalReturnProfit    decimal.Decimal `json:"total_return_profit"`
	TotalReturnPct       decimal.Decimal `json:"total_return_pct"`
	AllocationPct        decimal.Decimal `json:"allocation_pct"`
	FirstTradeDate       time.Time       `json:"first_trade_date"`
	Age                  string          `json:"age"`
}

// PortfolioSummary aggregates all active positions
type PortfolioSummary struct {
	TotalInvested         decimal.Decimal `json:"total_invested"`
	TotalCurrent          decimal.Decimal `json:"total_current"`
	Profit                decimal.Decimal `json:"profit"`
	ProfitPct             decimal.Decimal `json:"profit_pct"`
	TotalInvestedAdjusted decimal.Decimal `json:"total_invested_adjusted"`
	TotalCurrentAdjusted  decimal.Decimal `json:"total_current_adjusted"`
	TotalReturnProfit     decimal.Decimal `json:"total_return_profit"`
	TotalReturnPct        decimal.Decimal `json:"total_return_pct"`
	BenchmarkValue        decimal.Decimal `json:"benchmark_value"`
	PositionCount         int             `json:"position_count"`
	FirstTradeDate        *time.Time      `json:"first_trade_date,omitempty"`
	Age                   string          `json:"age"`
}

// Projection category for the whole portfolio
const CategoryOverall = "overall"

// PeriodProjection is a linear run-rate extrapolation of profit and yield
type PeriodProjection struct {
	Category    string          `json:"category"`
	StartDate   *time.Time      `json:"start_date,omitempty"`
	DaysElapsed int             `json:"days_elapsed"`
	TotalProfit decimal.Decimal `json:"total_profit"`
	TotalYield  decimal.Decimal `json:"total_yield"`
	DayProfit   decimal.Decimal `json:"day_profit"`
	DayYield    decimal.Decimal `json:"day_yield"`
	MonthProfit decimal.Decimal `json:"month_profit"`
	MonthYield  decimal.Decimal `json:"month_yield"`
	YearProfit  decimal.Decimal `json:"year_profit"`
	YearYield   decimal.Decimal `json:"year_yield"`
}

// AllocationSlice is the share of one asset class in the portfolio
type AllocationSlice struct {
	AssetType string          `json:"asset_type"`
	Value     decimal.Decimal `json:"value"`
	Pct       decimal.Decimal `json:"pct"`
}

// Dashboard is the full reconciled view of a user's portfolio
type Dashboard struct {
	Summary           PortfolioSummary      `json:"summary"`
	PeriodProjections []PeriodProjection    `json:"period_projections"`
	Positions         []PositionSnapshot    `json:"positions"`
	History           []DailyValuationPoint `json:"history"`
	Allocation        []AllocationSlice     `json:"allocation"`
	Warnings          []string              `json:"warnings"`
}
