package engine

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/portfolio-valuation-service/internal/models"
)

func TestComputeHistory(t *testing.T) {
	e := New(WithClock(clockAt("2024-02-01")))

	t.Run("single transaction", func(t *testing.T) {
		history, err := e.ComputeHistory(
			[]models.Transaction{buy("AAPL", "10", "100", "2024-01-01")},
			[]models.PriceTick{tick(1, "AAPL", "2024-01-02", "110", "")},
			nil,
		)
		require.NoError(t, err)
		require.Len(t, history, 2)

		assertDecimal(t, "0", history[0].PortfolioValue, "no price on the first day")
		assertDecimal(t, "1100", history[1].PortfolioValue)
		assertDecimal(t, "1000", history[1].InvestedAmount)
		assertDecimal(t, "1000", history[1].BenchmarkValue)
	})

	t.Run("forward fill across non trading days", func(t *testing.T) {
		history, err := e.ComputeHistory(
			[]models.Transaction{
				buy("AAA", "1", "50", "2024-01-01"),
				buy("BBB", "1", "10", "2024-01-01"),
			},
			[]models.PriceTick{
				tick(1, "AAA", "2024-01-01", "50", ""),
				tick(2, "AAA", "2024-01-05", "55", ""),
				tick(3, "BBB", "2024-01-07", "10", ""),
			},
			nil,
		)
		require.NoError(t, err)
		require.Len(t, history, 7)

		want := []string{"50", "50", "50", "50", "55", "55", "65"}
		for i, w := range want {
			assertDecimal(t, w, history[i].PortfolioValue, "day %s", history[i].Date.Format("2006-01-02"))
		}
	})

	t.Run("dates strictly increase without gaps", func(t *testing.T) {
		history, err := e.ComputeHistory(
			[]models.Transaction{
				buy("AAA", "3", "20", "2024-01-10"),
				buy("AAA", "1", "20", "2023-12-28"),
			},
			[]models.PriceTick{
				tick(1, "AAA", "2024-01-02", "21", ""),
				tick(2, "AAA", "2024-01-31", "25", ""),
			},
			nil,
		)
		require.NoError(t, err)
		require.Len(t, history, 35)
		assert.Equal(t, date("2023-12-28"), history[0].Date)
		for i := 0; i+1 < len(history); i++ {
			assert.Equal(t, history[i].Date.AddDate(0, 0, 1), history[i+1].Date)
		}
	})

	t.Run("zero rates leave the benchmark equal to cash invested", func(t *testing.T) {
		txs := []models.Transaction{
			buy("AAA", "10", "10", "2024-01-01"),
			buy("AAA", "5", "20", "2024-01-03"),
			buy("BBB", "2", "7.5", "2024-01-03"),
			buy("BBB", "1", "8", "2024-01-05"),
		}
		rates := []models.BenchmarkTick{
			rate("2024-01-01", "0"),
			rate("2024-01-02", "0"),
			rate("2024-01-03", "0"),
			rate("2024-01-04", "0"),
			rate("2024-01-05", "0"),
		}
		history, err := e.ComputeHistory(txs, []models.PriceTick{
			tick(1, "AAA", "2024-01-05", "12", ""),
			tick(2, "BBB", "2024-01-05", "8", ""),
		}, rates)
		require.NoError(t, err)

		cumulative := []string{"100", "100", "215", "215", "223"}
		require.Len(t, history, len(cumulative))
		for i, w := range cumulative {
			assertDecimal(t, w, history[i].BenchmarkValue)
			assertDecimal(t, w, history[i].InvestedAmount)
		}
	})

	t.Run("benchmark compounds with positive rates", func(t *testing.T) {
		history, err := e.ComputeHistory(
			[]models.Transaction{buy("AAA", "10", "100", "2024-01-01")},
			[]models.PriceTick{tick(1, "AAA", "2024-01-03", "100", "")},
			[]models.BenchmarkTick{rate("2024-01-02", "1"), rate("2024-01-03", "1")},
		)
		require.NoError(t, err)
		require.Len(t, history, 3)
		assertDecimal(t, "1000", history[0].BenchmarkValue)
		assertDecimal(t, "1010", history[1].BenchmarkValue)
		assertDecimal(t, "1020.1", history[2].BenchmarkValue)
	})

	t.Run("adjusted value uses adjusted close", func(t *testing.T) {
		history, err := e.ComputeHistory(
			[]models.Transaction{buy("AAA", "10", "100", "2024-01-01")},
			[]models.PriceTick{
				tick(1, "AAA", "2024-01-01", "100", ""),
				tick(2, "AAA", "2024-01-02", "110", "104.5"),
			},
			nil,
		)
		require.NoError(t, err)
		assertDecimal(t, "1000", history[0].AdjustedValue)
		assertDecimal(t, "1045", history[1].AdjustedValue)
		assertDecimal(t, "1100", history[1].PortfolioValue)
	})

	t.Run("no price data yields an empty series", func(t *testing.T) {
		history, err := e.ComputeHistory(
			[]models.Transaction{buy("AAA", "1", "10", "2024-01-01")},
			[]models.PriceTick{tick(1, "ZZZ", "2024-01-05", "10", "")},
			nil,
		)
		require.NoError(t, err)
		assert.NotNil(t, history)
		assert.Empty(t, history)
	})

	t.Run("window cap folds earlier cash into the opening day", func(t *testing.T) {
		capped := New(WithMaxHistoryDays(2))
		history, err := capped.ComputeHistory(
			[]models.Transaction{
				buy("AAA", "1", "50", "2024-01-01"),
				buy("AAA", "1", "55", "2024-01-05"),
			},
			[]models.PriceTick{
				tick(1, "AAA", "2024-01-01", "50", ""),
				tick(2, "AAA", "2024-01-05", "55", ""),
			},
			[]models.BenchmarkTick{rate("2024-01-02", "10")},
		)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, date("2024-01-04"), history[0].Date)
		assertDecimal(t, "50", history[0].PortfolioValue)
		assertDecimal(t, "50", history[0].BenchmarkValue)
		assertDecimal(t, "110", history[1].PortfolioValue)
		assertDecimal(t, "105", history[1].InvestedAmount)
	})

	t.Run("rejects negative quantities", func(t *testing.T) {
		_, err := e.ComputeHistory([]models.Transaction{buy("AAA", "-1", "10", "2024-01-01")}, nil, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidTransaction))
	})
}

func TestComputeDashboard(t *testing.T) {
	e := New(WithClock(clockAt("2024-01-11")))

	t.Run("single transaction", func(t *testing.T) {
		d, err := e.ComputeDashboard(
			[]models.Transaction{buy("AAPL", "10", "100", "2024-01-01")},
			[]models.PriceTick{tick(1, "AAPL", "2024-01-02", "110", "")},
			nil,
			nil,
		)
		require.NoError(t, err)

		require.Len(t, d.Positions, 1)
		p := d.Positions[0]
		assertDecimal(t, "1100", p.MarketValue)
		assertDecimal(t, "100", p.ProfitRaw)
		assertDecimal(t, "10", p.ProfitPctRaw)
		assertDecimal(t, "100", p.AllocationPct)
		assertDecimal(t, "100", p.AvgCostRaw)
		assert.Equal(t, models.PriceSourceMarket, p.PriceSource)
		assert.Equal(t, "10d", p.Age)

		assertDecimal(t, "1100", d.History[len(d.History)-1].PortfolioValue)
		assertDecimal(t, "1000", d.Summary.TotalInvested)
		assertDecimal(t, "1100", d.Summary.TotalCurrent)
		assertDecimal(t, "100", d.Summary.Profit)
		assertDecimal(t, "10", d.Summary.ProfitPct)
		assertDecimal(t, "1000", d.Summary.BenchmarkValue)
		assert.Equal(t, 1, d.Summary.PositionCount)

		require.Len(t, d.PeriodProjections, 2)
		overall := d.PeriodProjections[0]
		assert.Equal(t, models.CategoryOverall, overall.Category)
		assert.Equal(t, 10, overall.DaysElapsed)
		assertDecimal(t, "10", overall.DayProfit)
		assertDecimal(t, "3650", overall.YearProfit)
		assert.Equal(t, models.AssetTypeOther, d.PeriodProjections[1].Category)
	})

	t.Run("adjusted and raw returns diverge after a dividend", func(t *testing.T) {
		d, err := e.ComputeDashboard(
			[]models.Transaction{buy("ITSA4", "10", "100", "2024-01-01")},
			[]models.PriceTick{
				tick(1, "ITSA4", "2024-01-01", "100", ""),
				tick(2, "ITSA4", "2024-01-02", "110", "104.5"),
			},
			nil,
			nil,
		)
		require.NoError(t, err)

		p := d.Positions[0]
		assertDecimal(t, "10", p.ProfitPctRaw)
		assertDecimal(t, "45", p.TotalReturnProfit)
		assertDecimal(t, "4.5", p.TotalReturnPct)
		assertDecimal(t, "5.5", p.ProfitPctRaw.Sub(p.TotalReturnPct))
	})

	t.Run("cost basis is adjusted by the factor in force on the trade date", func(t *testing.T) {
		d, err := e.ComputeDashboard(
			[]models.Transaction{buy("ITSA4", "10", "100", "2024-01-03")},
			[]models.PriceTick{
				tick(1, "ITSA4", "2024-01-02", "100", "95"),
				tick(2, "ITSA4", "2024-01-05", "110", "104.5"),
			},
			nil,
			nil,
		)
		require.NoError(t, err)

		p := d.Positions[0]
		assertDecimal(t, "95", p.AvgCostAdjusted)
		assertDecimal(t, "950", p.CostAdjusted)
		assertDecimal(t, "10", p.TotalReturnPct)
	})

	t.Run("position market values sum to the summary total", func(t *testing.T) {
		d, err := e.ComputeDashboard(
			[]models.Transaction{
				buy("AAA", "3", "10.333", "2024-01-01"),
				buy("BBB", "7", "3.141", "2024-01-02"),
				buy("CCC", "1.5", "99.99", "2024-01-03"),
				buy("AAA", "0.333", "10.5", "2024-01-04"),
			},
			[]models.PriceTick{
				tick(1, "AAA", "2024-01-10", "10.777", ""),
				tick(2, "BBB", "2024-01-10", "3.333", ""),
				tick(3, "CCC", "2024-01-09", "101.015", ""),
			},
			nil,
			nil,
		)
		require.NoError(t, err)

		sum := decimal.Zero
		alloc := decimal.Zero
		for _, p := range d.Positions {
			sum = sum.Add(p.MarketValue)
			alloc = alloc.Add(p.AllocationPct)
		}
		assert.True(t, sum.Sub(d.Summary.TotalCurrent).Abs().LessThanOrEqual(dec("0.01")))
		assert.True(t, alloc.Sub(dec("100")).Abs().LessThanOrEqual(dec("0.05")))

		for i := 0; i+1 < len(d.Positions); i++ {
			assert.True(t, d.Positions[i].MarketValue.GreaterThanOrEqual(d.Positions[i+1].MarketValue))
		}
	})

	t.Run("missing prices fall back to cost basis", func(t *testing.T) {
		d, err := e.ComputeDashboard(
			[]models.Transaction{buy("NEW3", "4", "25", "2024-01-05")},
			nil,
			nil,
			nil,
		)
		require.NoError(t, err)

		assert.Empty(t, d.History)
		require.Len(t, d.Positions, 1)
		p := d.Positions[0]
		assert.Equal(t, models.PriceSourceCostBasis, p.PriceSource)
		assert.Nil(t, p.PriceDate)
		assertDecimal(t, "25", p.CurrentPriceRaw)
		assertDecimal(t, "100", p.MarketValue)
		assertDecimal(t, "0", p.ProfitRaw)
		assertDecimal(t, "0", p.ProfitPctRaw)
		assertDecimal(t, "100", d.Summary.TotalCurrent)
		assert.Contains(t, d.Warnings, "NEW3 has no price data; valued at cost basis")
	})

	t.Run("zero cost basis reports profit without a percentage", func(t *testing.T) {
		d, err := e.ComputeDashboard(
			[]models.Transaction{buy("GIFT", "5", "0", "2024-01-02")},
			[]models.PriceTick{tick(1, "GIFT", "2024-01-10", "10", "")},
			nil,
			nil,
		)
		require.NoError(t, err)

		require.Len(t, d.Positions, 1)
		p := d.Positions[0]
		assert.Equal(t, models.PriceSourceMarket, p.PriceSource)
		assertDecimal(t, "50", p.MarketValue)
		assertDecimal(t, "50", p.ProfitRaw)
		assertDecimal(t, "0", p.ProfitPctRaw)
		assertDecimal(t, "0", p.TotalReturnPct)
		assertDecimal(t, "0", d.Summary.TotalInvested)
		assertDecimal(t, "50", d.Summary.Profit)
		assertDecimal(t, "0", d.Summary.ProfitPct)
		assertDecimal(t, "0", d.Summary.TotalReturnPct)
	})

	t.Run("no transactions produce a zeroed dashboard", func(t *testing.T) {
		d, err := e.ComputeDashboard(nil, nil, nil, nil)
		require.NoError(t, err)

		assert.True(t, d.Summary.TotalInvested.IsZero())
		assert.True(t, d.Summary.TotalCurrent.IsZero())
		assert.True(t, d.Summary.ProfitPct.IsZero())
		assert.Equal(t, 0, d.Summary.PositionCount)
		assert.Equal(t, "0d", d.Summary.Age)
		assert.Nil(t, d.Summary.FirstTradeDate)

		require.Len(t, d.PeriodProjections, 1)
		assert.Equal(t, models.CategoryOverall, d.PeriodProjections[0].Category)
		assert.True(t, d.PeriodProjections[0].YearProfit.IsZero())

		assert.NotNil(t, d.Positions)
		assert.NotNil(t, d.History)
		assert.NotNil(t, d.Allocation)
		assert.NotNil(t, d.Warnings)
		assert.Empty(t, d.Positions)
	})

	t.Run("fully negligible positions are inactive", func(t *testing.T) {
		d, err := e.ComputeDashboard(
			[]models.Transaction{buy("DUST", "0.00005", "10", "2024-01-01")},
			[]models.PriceTick{tick(1, "DUST", "2024-01-10", "10", "")},
			nil,
			nil,
		)
		require.NoError(t, err)
		assert.Empty(t, d.Positions)
		assert.Len(t, d.History, 10)
	})

	t.Run("classification and asset type resolution", func(t *testing.T) {
		lookup := StaticClassifications{
			"PETR4": {Ticker: "PETR4", AssetClass: models.AssetTypeStock, Sector: "Energy", Subtype: "Oil", Known: true},
		}
		hglg := buy("HGLG11", "10", "150", "2024-01-02")
		hglg.AssetType = models.AssetTypeFII

		d, err := e.ComputeDashboard(
			[]models.Transaction{
				buy("PETR4", "100", "30", "2024-01-01"),
				hglg,
				buy("XYZ9", "1", "10", "2024-01-03"),
			},
			[]models.PriceTick{
				tick(1, "PETR4", "2024-01-10", "33", ""),
				tick(2, "HGLG11", "2024-01-10", "160", ""),
				tick(3, "XYZ9", "2024-01-10", "10", ""),
			},
			nil,
			lookup,
		)
		require.NoError(t, err)
		require.Len(t, d.Positions, 3)

		byTicker := map[string]models.PositionSnapshot{}
		for _, p := range d.Positions {
			byTicker[p.Ticker] = p
		}
		assert.Equal(t, models.AssetTypeStock, byTicker["PETR4"].AssetType)
		assert.Equal(t, "Energy", byTicker["PETR4"].Sector)
		assert.Equal(t, models.AssetTypeFII, byTicker["HGLG11"].AssetType)
		assert.Equal(t, models.AssetTypeOther, byTicker["XYZ9"].AssetType)
		assert.Equal(t, "Unknown", byTicker["XYZ9"].Sector)

		categories := []string{}
		for _, p := range d.PeriodProjections {
			categories = append(categories, p.Category)
		}
		assert.Equal(t, []string{models.CategoryOverall, models.AssetTypeStock, models.AssetTypeFII, models.AssetTypeOther}, categories)

		stock := d.PeriodProjections[1]
		assertDecimal(t, "300", stock.TotalProfit)
		assertDecimal(t, "10", stock.TotalYield)
		assert.Equal(t, 10, stock.DaysElapsed)

		require.Len(t, d.Allocation, 3)
		assert.Equal(t, models.AssetTypeStock, d.Allocation[0].AssetType)
		assertDecimal(t, "3300", d.Allocation[0].Value)
		assertDecimal(t, "1600", d.Allocation[1].Value)
	})

	t.Run("stale series are reported", func(t *testing.T) {
		d, err := e.ComputeDashboard(
			[]models.Transaction{
				buy("AAA", "1", "10", "2024-01-01"),
				buy("BBB", "1", "10", "2024-01-01"),
			},
			[]models.PriceTick{
				tick(1, "AAA", "2024-01-10", "10", ""),
				tick(2, "BBB", "2024-01-02", "10", ""),
			},
			[]models.BenchmarkTick{rate("2024-01-05", "0.04")},
			nil,
		)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"BBB price is 8 days behind (last 2024-01-02)",
			"benchmark rates are 5 days behind (last 2024-01-05)",
		}, d.Warnings)
	})

	t.Run("identical inputs produce identical output", func(t *testing.T) {
		txs := []models.Transaction{
			buy("AAA", "3", "10", "2024-01-01"),
			buy("BBB", "2", "15", "2024-01-01"),
			buy("CCC", "1", "30", "2024-01-02"),
		}
		prices := []models.PriceTick{
			tick(1, "AAA", "2024-01-05", "10", ""),
			tick(2, "BBB", "2024-01-05", "15", ""),
			tick(3, "CCC", "2024-01-05", "30", "29"),
		}
		rates := []models.BenchmarkTick{rate("2024-01-03", "0.05")}

		first, err := e.ComputeDashboard(txs, prices, rates, nil)
		require.NoError(t, err)
		second, err := e.ComputeDashboard(txs, prices, rates, nil)
		require.NoError(t, err)

		a, err := json.Marshal(first)
		require.NoError(t, err)
		b, err := json.Marshal(second)
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b))

		// equal market values fall back to ticker order
		assert.Equal(t, "AAA", first.Positions[0].Ticker)
		assert.Equal(t, "BBB", first.Positions[1].Ticker)
		assert.Equal(t, "CCC", first.Positions[2].Ticker)
	})

	t.Run("invalid transactions fail fast", func(t *testing.T) {
		_, err := e.ComputeDashboard([]models.Transaction{buy("", "1", "10", "2024-01-01")}, nil, nil, nil)
		assert.ErrorIs(t, err, ErrInvalidTransaction)

		_, err = e.ComputeDashboard([]models.Transaction{buy("AAA", "0", "10", "2024-01-01")}, nil, nil, nil)
		assert.ErrorIs(t, err, ErrInvalidTransaction)

		_, err = e.ComputeDashboard([]models.Transaction{buy("AAA", "1", "-10", "2024-01-01")}, nil, nil, nil)
		assert.ErrorIs(t, err, ErrInvalidTransaction)
	})
}
