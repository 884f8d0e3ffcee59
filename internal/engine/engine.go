// Package engine reconstructs a portfolio's daily value, its benchmark
// counterfactual and the reconciled position view from in-memory inputs.
// It performs no I/O; callers fetch transactions, prices and rates up front.
package engine

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-valuation-service/internal/models"
)

// ErrInvalidTransaction is wrapped by every transaction validation failure
var ErrInvalidTransaction = errors.New("invalid transaction")

// ClassificationLookup resolves a ticker's asset class and sector. Unknown
// tickers resolve to models.UnknownClassification rather than an error.
type ClassificationLookup interface {
	Classify(ticker string) models.Classification
}

// StaticClassifications is an in-memory ClassificationLookup
type StaticClassifications map[string]models.Classification

// Classify implements ClassificationLookup
func (s StaticClassifications) Classify(ticker string) models.Classification {
	if c, ok := s[ticker]; ok {
		return c
	}
	return models.UnknownClassification(ticker)
}

// Engine computes valuation histories and dashboards. It holds no per-request
// state and is safe for concurrent use.
type Engine struct {
	now            func() time.Time
	log            zerolog.Logger
	maxHistoryDays int
	staleAfterDays int
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides the source of "today"
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger used for debug output
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log.With().Str("component", "engine").Logger() }
}

// WithMaxHistoryDays caps the reconstructed window to its trailing n days.
// Zero disables the cap.
func WithMaxHistoryDays(n int) Option {
	return func(e *Engine) { e.maxHistoryDays = n }
}

// WithStaleAfterDays sets how far a series may lag the latest price date
// before the dashboard warns about it
func WithStaleAfterDays(n int) Option {
	return func(e *Engine) { e.staleAfterDays = n }
}

// New creates an Engine
func New(opts ...Option) *Engine {
	e := &Engine{
		now:            time.Now,
		log:            zerolog.Nop(),
		staleAfterDays: 3,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ValidateTransactions rejects inputs the engine cannot value
func ValidateTransactions(txs []models.Transaction) error {
	for i, tx := range txs {
		switch {
		case tx.Ticker == "":
			return fmt.Errorf("%w: transaction %d has no ticker", ErrInvalidTransaction, i)
		case tx.TradeDate.IsZero():
			return fmt.Errorf("%w: transaction %d (%s) has no trade date", ErrInvalidTransaction, i, tx.Ticker)
		case !tx.Quantity.IsPositive():
			return fmt.Errorf("%w: transaction %d (%s) has non-positive quantity %s", ErrInvalidTransaction, i, tx.Ticker, tx.Quantity)
		case tx.UnitPrice.IsNegative():
			return fmt.Errorf("%w: transaction %d (%s) has negative unit price %s", ErrInvalidTransaction, i, tx.Ticker, tx.UnitPrice)
		}
	}
	return nil
}

// ComputeHistory reconstructs one DailyValuationPoint per calendar day from the
// first transaction to the latest price of any held ticker.
func (e *Engine) ComputeHistory(txs []models.Transaction, prices []models.PriceTick, rates []models.BenchmarkTick) ([]models.DailyValuationPoint, error) {
	if err := ValidateTransactions(txs); err != nil {
		return nil, err
	}
	return e.reconstruct(txs, prices, rates), nil
}

// heldPrices keeps only ticks for tickers that appear in the ledger
func heldPrices(txs []models.Transaction, prices []models.PriceTick) []models.PriceTick {
	held := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		held[tx.Ticker] = struct{}{}
	}
	out := make([]models.PriceTick, 0, len(prices))
	for _, p := range prices {
		if _, ok := held[p.Ticker]; ok {
			out = append(out, p)
		}
	}
	return out
}

// window returns the reconstruction calendar and whether it is non-empty
func (e *Engine) window(txs []models.Transaction, prices []models.PriceTick) (Calendar, bool) {
	if len(txs) == 0 || len(prices) == 0 {
		return Calendar{}, false
	}
	start := Day(txs[0].TradeDate)
	for _, tx := range txs[1:] {
		if d := Day(tx.TradeDate); d.Before(start) {
			start = d
		}
	}
	end := Day(prices[0].TradeDate)
	for _, p := range prices[1:] {
		if d := Day(p.TradeDate); d.After(end) {
			end = d
		}
	}
	cal := NewCalendar(start, end).Trim(e.maxHistoryDays)
	return cal, cal.Len() > 0
}

func (e *Engine) reconstruct(txs []models.Transaction, prices []models.PriceTick, rates []models.BenchmarkTick) []models.DailyValuationPoint {
	prices = heldPrices(txs, prices)
	cal, ok := e.window(txs, prices)
	if !ok {
		e.log.Debug().Int("transactions", len(txs)).Int("prices", len(prices)).Msg("no valuation window")
		return []models.DailyValuationPoint{}
	}

	table := ResamplePrices(cal, prices)
	holdings := AccumulateHoldings(cal, txs)
	raw := Valuate(cal, holdings, table.Raw)
	adjusted := Valuate(cal, holdings, table.Adjusted)
	cash := CashFlows(cal, txs)
	benchmark := CompoundBenchmark(cal, rates, cash)
	invested := prefixSum(cash)

	e.log.Debug().
		Time("start", cal.Start).
		Time("end", cal.End).
		Int("days", cal.Len()).
		Int("tickers", len(holdings)).
		Int("rates", len(rates)).
		Msg("reconstructed valuation history")

	history := make([]models.DailyValuationPoint, cal.Len())
	for i := range history {
		history[i] = models.DailyValuationPoint{
			Date:           cal.Date(i),
			PortfolioValue: roundMoney(raw[i]),
			AdjustedValue:  roundMoney(adjusted[i]),
			BenchmarkValue: roundMoney(benchmark[i]),
			InvestedAmount: roundMoney(invested[i]),
		}
	}
	return history
}

// ComputeDashboard builds the full reconciled view: summary, run-rate
// projections, positions, history, allocation and data-freshness warnings.
// A nil lookup classifies every ticker as unknown.
func (e *Engine) ComputeDashboard(txs []models.Transaction, prices []models.PriceTick, rates []models.BenchmarkTick, lookup ClassificationLookup) (*models.Dashboard, error) {
	if err := ValidateTransactions(txs); err != nil {
		return nil, err
	}
	if lookup == nil {
		lookup = StaticClassifications(nil)
	}
	today := Day(e.now())

	history := e.reconstruct(txs, prices, rates)
	grouped := groupPrices(heldPrices(txs, prices))
	positions := reconcilePositions(txs, grouped, lookup, today)

	summary := summarize(positions, firstTradeDate(txs), today)
	if len(history) > 0 {
		summary.BenchmarkValue = history[len(history)-1].BenchmarkValue
	}

	return &models.Dashboard{
		Summary:           summary,
		PeriodProjections: projectCategories(positions, summary, today),
		Positions:         positions,
		History:           history,
		Allocation:        allocate(positions, summary.TotalCurrent),
		Warnings:          e.staleWarnings(positions, grouped, rates),
	}, nil
}

func firstTradeDate(txs []models.Transaction) *time.Time {
	var first *time.Time
	for _, tx := range txs {
		d := Day(tx.TradeDate)
		if first == nil || d.Before(*first) {
			first = &d
		}
	}
	return first
}

// staleWarnings lists held tickers and the benchmark whose latest data lags
// the newest price date by more than the configured number of days.
func (e *Engine) staleWarnings(positions []models.PositionSnapshot, prices map[string]tickerPrices, rates []models.BenchmarkTick) []string {
	warnings := []string{}

	var newest time.Time
	for _, tp := range prices {
		if tick, ok := tp.latest(); ok && Day(tick.TradeDate).After(newest) {
			newest = Day(tick.TradeDate)
		}
	}

	tickers := make([]string, 0, len(positions))
	for _, p := range positions {
		tickers = append(tickers, p.Ticker)
	}
	sort.Strings(tickers)

	for _, ticker := range tickers {
		tick, ok := prices[ticker].latest()
		if !ok {
			warnings = append(warnings, fmt.Sprintf("%s has no price data; valued at cost basis", ticker))
			continue
		}
		if lag := DaysBetween(tick.TradeDate, newest); lag > e.staleAfterDays {
			warnings = append(warnings, fmt.Sprintf("%s price is %d days behind (last %s)", ticker, lag, tick.TradeDate.Format("2006-01-02")))
		}
	}

	if newest.IsZero() {
		return warnings
	}
	if len(rates) == 0 {
		return append(warnings, "no benchmark rates available; benchmark shows cash invested without growth")
	}
	last := Day(rates[0].TradeDate)
	for _, r := range rates[1:] {
		if d := Day(r.TradeDate); d.After(last) {
			last = d
		}
	}
	if lag := DaysBetween(last, newest); lag > e.staleAfterDays {
		warnings = append(warnings, fmt.Sprintf("benchmark rates are %d days behind (last %s)", lag, last.Format("2006-01-02")))
	}
	return warnings
}
