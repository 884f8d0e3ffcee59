package engine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-valuation-service/internal/models"
)

// Series is a per-day value table aligned to a Calendar. Valid[i] is false for
// days before the first observation; those days carry no value.
type Series struct {
	Values []decimal.Decimal
	Valid  []bool
}

// At returns the value on day i and whether one is defined
func (s Series) At(i int) (decimal.Decimal, bool) {
	if i < 0 || i >= len(s.Values) || !s.Valid[i] {
		return decimal.Zero, false
	}
	return s.Values[i], true
}

type observation struct {
	date  time.Time
	order int
	value decimal.Decimal
}

// forwardFill lays observations onto the calendar, repeating the most recent
// known value across days without a newer observation. Observations dated
// before the calendar start seed the first day; nothing is ever filled backwards.
func forwardFill(cal Calendar, obs []observation) Series {
	sort.SliceStable(obs, func(i, j int) bool {
		if obs[i].date.Equal(obs[j].date) {
			return obs[i].order < obs[j].order
		}
		return obs[i].date.Before(obs[j].date)
	})

	n := cal.Len()
	s := Series{Values: make([]decimal.Decimal, n), Valid: make([]bool, n)}

	var cur decimal.Decimal
	have := false
	j := 0
	for i := 0; i < n; i++ {
		d := cal.Date(i)
		for j < len(obs) && !obs[j].date.After(d) {
			cur = obs[j].value
			have = true
			j++
		}
		if have {
			s.Values[i] = cur
			s.Valid[i] = true
		}
	}
	return s
}

// PriceTable holds the resampled raw and adjusted price series per ticker
type PriceTable struct {
	Calendar Calendar
	Raw      map[string]Series
	Adjusted map[string]Series
}

// ResamplePrices forward-fills every ticker's trading-day prices onto the
// calendar. When a ticker has two ticks on the same date, the one with the
// higher ID wins.
func ResamplePrices(cal Calendar, ticks []models.PriceTick) PriceTable {
	rawObs := make(map[string][]observation)
	adjObs := make(map[string][]observation)
	for _, p := range ticks {
		d := Day(p.TradeDate)
		rawObs[p.Ticker] = append(rawObs[p.Ticker], observation{date: d, order: p.ID, value: p.Close})
		adjObs[p.Ticker] = append(adjObs[p.Ticker], observation{date: d, order: p.ID, value: p.EffectiveAdjustedClose()})
	}

	table := PriceTable{
		Calendar: cal,
		Raw:      make(map[string]Series, len(rawObs)),
		Adjusted: make(map[string]Series, len(adjObs)),
	}
	for ticker, obs := range rawObs {
		table.Raw[ticker] = forwardFill(cal, obs)
		table.Adjusted[ticker] = forwardFill(cal, adjObs[ticker])
	}
	return table
}
