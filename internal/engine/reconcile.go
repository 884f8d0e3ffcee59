package engine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-valuation-service/internal/models"
)

// activeEpsilon is the smallest quantity still considered a held position
var activeEpsilon = decimal.New(1, -4)

// tickerPrices is one ticker's ticks sorted by date, ties ordered by ID
type tickerPrices []models.PriceTick

func groupPrices(ticks []models.PriceTick) map[string]tickerPrices {
	grouped := make(map[string]tickerPrices)
	for _, p := range ticks {
		grouped[p.Ticker] = append(grouped[p.Ticker], p)
	}
	for _, list := range grouped {
		sort.SliceStable(list, func(i, j int) bool {
			di, dj := Day(list[i].TradeDate), Day(list[j].TradeDate)
			if di.Equal(dj) {
				return list[i].ID < list[j].ID
			}
			return di.Before(dj)
		})
	}
	return grouped
}

// latest picks the tick with the maximum trade date
func (tp tickerPrices) latest() (models.PriceTick, bool) {
	if len(tp) == 0 {
		return models.PriceTick{}, false
	}
	return tp[len(tp)-1], true
}

// asOf returns the most recent tick dated on or before d
func (tp tickerPrices) asOf(d time.Time) (models.PriceTick, bool) {
	d = Day(d)
	idx := sort.Search(len(tp), func(i int) bool {
		return Day(tp[i].TradeDate).After(d)
	})
	if idx == 0 {
		return models.PriceTick{}, false
	}
	return tp[idx-1], true
}

// adjustmentFactor maps a raw price on d onto the adjusted scale using the
// adjusted/close ratio in force that day. It is 1 when no tick precedes d.
func (tp tickerPrices) adjustmentFactor(d time.Time) decimal.Decimal {
	tick, ok := tp.asOf(d)
	if !ok || !tick.Close.IsPositive() {
		return decimal.NewFromInt(1)
	}
	return tick.EffectiveAdjustedClose().Div(tick.Close)
}

// adjustedUnitPrice is the theoretical price paid on the adjusted scale
func adjustedUnitPrice(tx models.Transaction, prices tickerPrices) decimal.Decimal {
	return tx.UnitPrice.Mul(prices.adjustmentFactor(tx.TradeDate))
}

type positionAccumulator struct {
	ticker       string
	name         string
	assetType    string
	quantity     decimal.Decimal
	costRaw      decimal.Decimal
	costAdjusted decimal.Decimal
	firstTrade   time.Time
}

func accumulatePositions(txs []models.Transaction, prices map[string]tickerPrices) map[string]*positionAccumulator {
	acc := make(map[string]*positionAccumulator)
	for _, tx := range txs {
		p, ok := acc[tx.Ticker]
		if !ok {
			p = &positionAccumulator{ticker: tx.Ticker, firstTrade: Day(tx.TradeDate)}
			acc[tx.Ticker] = p
		}
		p.quantity = p.quantity.Add(tx.Quantity)
		p.costRaw = p.costRaw.Add(tx.Cost())
		p.costAdjusted = p.costAdjusted.Add(tx.Quantity.Mul(adjustedUnitPrice(tx, prices[tx.Ticker])))
		if d := Day(tx.TradeDate); d.Before(p.firstTrade) {
			p.firstTrade = d
		}
		if tx.Name != "" {
			p.name = tx.Name
		}
		if t := models.NormalizeAssetType(tx.AssetType); t != "" {
			p.assetType = t
		}
	}
	return acc
}

// resolveAssetType prefers the ledger's asset type, then the classification
func resolveAssetType(ledger string, c models.Classification) string {
	if ledger != "" {
		return ledger
	}
	if t := models.NormalizeAssetType(c.AssetClass); t != "" {
		return t
	}
	return models.AssetTypeOther
}

// reconcilePositions builds the snapshot of every active position, sorted by
// market value descending then ticker.
func reconcilePositions(txs []models.Transaction, prices map[string]tickerPrices, lookup ClassificationLookup, today time.Time) []models.PositionSnapshot {
	acc := accumulatePositions(txs, prices)

	positions := make([]models.PositionSnapshot, 0, len(acc))
	for ticker, p := range acc {
		if p.quantity.LessThanOrEqual(activeEpsilon) {
			continue
		}

		class := lookup.Classify(ticker)
		snap := models.PositionSnapshot{
			Ticker:          ticker,
			Name:            p.name,
			AssetType:       resolveAssetType(p.assetType, class),
			Sector:          class.Sector,
			Subtype:         class.Subtype,
			Quantity:        p.quantity,
			AvgCostRaw:      p.costRaw.Div(p.quantity),
			AvgCostAdjusted: p.costAdjusted.Div(p.quantity),
			CostRaw:         p.costRaw,
			CostAdjusted:    p.costAdjusted,
			FirstTradeDate:  p.firstTrade,
			Age:             FormatAge(p.firstTrade, today),
		}

		if tick, ok := prices[ticker].latest(); ok {
			d := Day(tick.TradeDate)
			snap.PriceDate = &d
			snap.PriceSource = models.PriceSourceMarket
			snap.CurrentPriceRaw = tick.Close
			snap.CurrentPriceAdjusted = tick.EffectiveAdjustedClose()
		} else {
			snap.PriceSource = models.PriceSourceCostBasis
			snap.CurrentPriceRaw = snap.AvgCostRaw
			snap.CurrentPriceAdjusted = snap.AvgCostAdjusted
		}

		marketValue := p.quantity.Mul(snap.CurrentPriceRaw)
		adjustedValue := p.quantity.Mul(snap.CurrentPriceAdjusted)
		snap.MarketValue = marketValue
		snap.ProfitRaw = marketValue.Sub(p.costRaw)
		snap.ProfitPctRaw = percentOf(snap.ProfitRaw, p.costRaw)
		snap.TotalReturnProfit = adjustedValue.Sub(p.costAdjusted)
		snap.TotalReturnPct = percentOf(snap.TotalReturnProfit, p.costAdjusted)
		if snap.PriceSource == models.PriceSourceCostBasis {
			snap.ProfitRaw, snap.ProfitPctRaw = decimal.Zero, decimal.Zero
			snap.TotalReturnProfit, snap.TotalReturnPct = decimal.Zero, decimal.Zero
		}
		positions = append(positions, snap)
	}

	total := decimal.Zero
	for _, snap := range positions {
		total = total.Add(snap.MarketValue)
	}
	for i := range positions {
		positions[i].AllocationPct = percentOf(positions[i].MarketValue, total)
		roundPosition(&positions[i])
	}

	sort.Slice(positions, func(i, j int) bool {
		if !positions[i].MarketValue.Equal(positions[j].MarketValue) {
			return positions[i].MarketValue.GreaterThan(positions[j].MarketValue)
		}
		return positions[i].Ticker < positions[j].Ticker
	})
	return positions
}

func roundPosition(p *models.PositionSnapshot) {
	p.AvgCostRaw = p.AvgCostRaw.Round(4)
	p.AvgCostAdjusted = p.AvgCostAdjusted.Round(4)
	if p.PriceSource == models.PriceSourceCostBasis {
		p.CurrentPriceRaw = p.AvgCostRaw
		p.CurrentPriceAdjusted = p.AvgCostAdjusted
	}
	p.CostRaw = roundMoney(p.CostRaw)
	p.CostAdjusted = roundMoney(p.CostAdjusted)
	p.MarketValue = roundMoney(p.MarketValue)
	p.ProfitRaw = roundMoney(p.ProfitRaw)
	p.ProfitPctRaw = roundPct(p.ProfitPctRaw)
	p.TotalReturnProfit = roundMoney(p.TotalReturnProfit)
	p.TotalReturnPct = roundPct(p.TotalReturnPct)
	p.AllocationPct = roundPct(p.AllocationPct)
}

// summarize aggregates rounded position figures so the totals reconcile exactly
// with the sum of the rows.
func summarize(positions []models.PositionSnapshot, firstTrade *time.Time, today time.Time) models.PortfolioSummary {
	var s models.PortfolioSummary
	for _, p := range positions {
		s.TotalInvested = s.TotalInvested.Add(p.CostRaw)
		s.TotalCurrent = s.TotalCurrent.Add(p.MarketValue)
		s.TotalInvestedAdjusted = s.TotalInvestedAdjusted.Add(p.CostAdjusted)
		s.TotalCurrentAdjusted = s.TotalCurrentAdjusted.Add(p.CostAdjusted.Add(p.TotalReturnProfit))
	}
	s.Profit = s.TotalCurrent.Sub(s.TotalInvested)
	s.ProfitPct = roundPct(percentOf(s.Profit, s.TotalInvested))
	s.TotalReturnProfit = s.TotalCurrentAdjusted.Sub(s.TotalInvestedAdjusted)
	s.TotalReturnPct = roundPct(percentOf(s.TotalReturnProfit, s.TotalInvestedAdjusted))
	s.PositionCount = len(positions)
	s.Age = "0d"
	if firstTrade != nil {
		s.FirstTradeDate = firstTrade
		s.Age = FormatAge(*firstTrade, today)
	}
	return s
}

// allocate splits the current value by asset class, omitting empty classes
func allocate(positions []models.PositionSnapshot, total decimal.Decimal) []models.AllocationSlice {
	values := make(map[string]decimal.Decimal)
	for _, p := range positions {
		values[p.AssetType] = values[p.AssetType].Add(p.MarketValue)
	}

	slices := make([]models.AllocationSlice, 0, len(values))
	for _, class := range assetClassOrder {
		v, ok := values[class]
		if !ok || v.IsZero() {
			continue
		}
		slices = append(slices, models.AllocationSlice{
			AssetType: class,
			Value:     roundMoney(v),
			Pct:       roundPct(percentOf(v, total)),
		})
	}
	return slices
}

var assetClassOrder = []string{
	models.AssetTypeStock,
	models.AssetTypeETF,
	models.AssetTypeFII,
	models.AssetTypeOther,
}

// projectCategories returns the overall projection followed by one per asset
// class that has at least one active position.
func projectCategories(positions []models.PositionSnapshot, summary models.PortfolioSummary, today time.Time) []models.PeriodProjection {
	projections := []models.PeriodProjection{
		Project(models.CategoryOverall, summary.Profit, percentOf(summary.Profit, summary.TotalInvested), summary.FirstTradeDate, today),
	}

	for _, class := range assetClassOrder {
		var cost, value decimal.Decimal
		var start *time.Time
		for _, p := range positions {
			if p.AssetType != class {
				continue
			}
			cost = cost.Add(p.CostRaw)
			value = value.Add(p.MarketValue)
			if start == nil || p.FirstTradeDate.Before(*start) {
				d := p.FirstTradeDate
				start = &d
			}
		}
		if start == nil {
			continue
		}
		profit := value.Sub(cost)
		projections = append(projections, Project(class, profit, percentOf(profit, cost), start, today))
	}
	return projections
}
