// Package portfolio fetches a user's inputs up front and hands them to the
// valuation engine.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-valuation-service/internal/engine"
	"github.com/trogers1052/portfolio-valuation-service/internal/models"
)

// ErrInvalidInput is wrapped by validation failures on price, rate and classification writes
var ErrInvalidInput = errors.New("invalid input")

// Repository is the persistence the service reads from and writes to
type Repository interface {
	GetTransactionsByUser(ctx context.Context, userID string) ([]models.Transaction, error)
	CreateTransactionsBatch(ctx context.Context, txs []*models.Transaction) error
	GetPricesSince(ctx context.Context, tickers []string, since time.Time) ([]models.PriceTick, error)
	GetLatestPriceDate(ctx context.Context, tickers []string) (time.Time, bool, error)
	UpsertPriceTicks(ctx context.Context, prices []*models.PriceTick) error
	GetBenchmarkRatesSince(ctx context.Context, benchmark string, since time.Time) ([]models.BenchmarkTick, error)
	UpsertBenchmarkRates(ctx context.Context, rates []models.BenchmarkTick) error
	GetClassification(ctx context.Context, ticker string) (models.Classification, bool, error)
	UpsertClassification(ctx context.Context, c *models.Classification) error
}

// ClassificationCache is a read-through cache in front of the classification table
type ClassificationCache interface {
	Get(ctx context.Context, ticker string) (models.Classification, bool, error)
	Set(ctx context.Context, c models.Classification) error
	Invalidate(ctx context.Context, ticker string) error
}

// Publisher announces newly recorded transactions
type Publisher interface {
	PublishTransactionRecorded(ctx context.Context, tx *models.Transaction) error
}

// Config bounds the data pulled for one computation
type Config struct {
	BenchmarkName     string
	PriceLookbackDays int
	MaxHistoryDays    int
}

// Service orchestrates one synchronous valuation per request
type Service struct {
	repo      Repository
	cache     ClassificationCache
	publisher Publisher
	engine    *engine.Engine
	cfg       Config
	now       func() time.Time
	log       zerolog.Logger
}

// NewService creates a Service. cache and publisher may be nil.
func NewService(repo Repository, cache ClassificationCache, publisher Publisher, eng *engine.Engine, cfg Config, log zerolog.Logger) *Service {
	cfg.BenchmarkName = strings.ToUpper(strings.TrimSpace(cfg.BenchmarkName))
	return &Service{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		engine:    eng,
		cfg:       cfg,
		now:       time.Now,
		log:       log.With().Str("component", "portfolio").Logger(),
	}
}

type inputs struct {
	transactions []models.Transaction
	prices       []models.PriceTick
	rates        []models.BenchmarkTick
	tickers      []string
}

// since returns the earliest date worth fetching prices and rates for. The
// history cap is counted back from the latest stored price, the same end date
// the engine trims from, and the lookback lets older prices seed the first day.
func (s *Service) since(txs []models.Transaction, latest time.Time, hasLatest bool) time.Time {
	start := engine.Day(txs[0].TradeDate)
	for _, tx := range txs[1:] {
		if d := engine.Day(tx.TradeDate); d.Before(start) {
			start = d
		}
	}
	if s.cfg.MaxHistoryDays > 0 && hasLatest {
		if floor := engine.Day(latest).AddDate(0, 0, -(s.cfg.MaxHistoryDays - 1)); floor.After(start) {
			start = floor
		}
	}
	return start.AddDate(0, 0, -s.cfg.PriceLookbackDays)
}

func uniqueTickers(txs []models.Transaction) []string {
	seen := make(map[string]struct{}, len(txs))
	tickers := make([]string, 0, len(txs))
	for _, tx := range txs {
		if _, ok := seen[tx.Ticker]; ok {
			continue
		}
		seen[tx.Ticker] = struct{}{}
		tickers = append(tickers, tx.Ticker)
	}
	sort.Strings(tickers)
	return tickers
}

func (s *Service) load(ctx context.Context, userID string) (*inputs, error) {
	txs, err := s.repo.GetTransactionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	in := &inputs{transactions: txs}
	if len(txs) == 0 {
		return in, nil
	}

	in.tickers = uniqueTickers(txs)
	latest, hasLatest, err := s.repo.GetLatestPriceDate(ctx, in.tickers)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest price date: %w", err)
	}
	since := s.since(txs, latest, hasLatest)

	in.prices, err = s.repo.GetPricesSince(ctx, in.tickers, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load prices: %w", err)
	}
	in.rates, err = s.repo.GetBenchmarkRatesSince(ctx, s.cfg.BenchmarkName, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load benchmark rates: %w", err)
	}

	s.log.Debug().
		Str("user_id", userID).
		Int("transactions", len(txs)).
		Int("tickers", len(in.tickers)).
		Int("prices", len(in.prices)).
		Int("rates", len(in.rates)).
		Time("since", since).
		Msg("loaded valuation inputs")
	return in, nil
}

// History returns the reconstructed daily valuation series for a user
func (s *Service) History(ctx context.Context, userID string) ([]models.DailyValuationPoint, error) {
	in, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.engine.ComputeHistory(in.transactions, in.prices, in.rates)
}

// Dashboard returns the full reconciled view for a user
func (s *Service) Dashboard(ctx context.Context, userID string) (*models.Dashboard, error) {
	in, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.engine.ComputeDashboard(in.transactions, in.prices, in.rates, s.classifications(ctx, in.tickers))
}

// classifications resolves every ticker before the engine runs. Lookup
// failures degrade to the unknown sentinel and never fail the request.
func (s *Service) classifications(ctx context.Context, tickers []string) engine.StaticClassifications {
	out := make(engine.StaticClassifications, len(tickers))
	for _, ticker := range tickers {
		out[ticker] = s.classify(ctx, ticker)
	}
	return out
}

func (s *Service) classify(ctx context.Context, ticker string) models.Classification {
	if s.cache != nil {
		cls, found, err := s.cache.Get(ctx, ticker)
		if err != nil {
			s.log.Warn().Err(err).Str("ticker", ticker).Msg("classification cache read failed")
		} else if found {
			return cls
		}
	}

	cls, found, err := s.repo.GetClassification(ctx, ticker)
	if err != nil {
		s.log.Warn().Err(err).Str("ticker", ticker).Msg("classification lookup failed")
		return models.UnknownClassification(ticker)
	}
	if !found {
		return models.UnknownClassification(ticker)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cls); err != nil {
			s.log.Warn().Err(err).Str("ticker", ticker).Msg("classification cache write failed")
		}
	}
	return cls
}

// ListTransactions returns a user's ledger ordered by trade date
func (s *Service) ListTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	txs, err := s.repo.GetTransactionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	return txs, nil
}

// NormalizeTransaction canonicalises ticker, asset type and trade date
func NormalizeTransaction(tx models.Transaction) models.Transaction {
	tx.Ticker = strings.ToUpper(strings.TrimSpace(tx.Ticker))
	tx.AssetType = models.NormalizeAssetType(strings.ToLower(strings.TrimSpace(tx.AssetType)))
	tx.Name = strings.TrimSpace(tx.Name)
	if !tx.TradeDate.IsZero() {
		tx.TradeDate = engine.Day(tx.TradeDate)
	}
	return tx
}

// RecordTransactions validates and stores a batch of buys for one user, then
// announces each of them. Publishing failures are logged, not returned.
func (s *Service) RecordTransactions(ctx context.Context, userID string, txs []models.Transaction) ([]models.Transaction, error) {
	batch := make([]*models.Transaction, len(txs))
	normalized := make([]models.Transaction, len(txs))
	for i, tx := range txs {
		normalized[i] = NormalizeTransaction(tx)
		normalized[i].UserID = userID
	}
	if err := engine.ValidateTransactions(normalized); err != nil {
		return nil, err
	}
	for i := range normalized {
		batch[i] = &normalized[i]
	}

	if err := s.repo.CreateTransactionsBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to record transactions: %w", err)
	}
	s.log.Info().Str("user_id", userID).Int("count", len(batch)).Msg("recorded transactions")

	if s.publisher != nil {
		for _, tx := range batch {
			if err := s.publisher.PublishTransactionRecorded(ctx, tx); err != nil {
				s.log.Warn().Err(err).Int("transaction_id", tx.ID).Msg("failed to publish transaction")
			}
		}
	}
	return normalized, nil
}

// UpsertPrices stores manually supplied price ticks
func (s *Service) UpsertPrices(ctx context.Context, prices []models.PriceTick) error {
	batch := make([]*models.PriceTick, len(prices))
	for i := range prices {
		p := &prices[i]
		p.Ticker = strings.ToUpper(strings.TrimSpace(p.Ticker))
		switch {
		case p.Ticker == "":
			return fmt.Errorf("%w: price %d has no ticker", ErrInvalidInput, i)
		case p.TradeDate.IsZero():
			return fmt.Errorf("%w: price %d (%s) has no trade date", ErrInvalidInput, i, p.Ticker)
		case !p.Close.IsPositive():
			return fmt.Errorf("%w: price %d (%s) has non-positive close", ErrInvalidInput, i, p.Ticker)
		}
		p.TradeDate = engine.Day(p.TradeDate)
		batch[i] = p
	}
	if err := s.repo.UpsertPriceTicks(ctx, batch); err != nil {
		return fmt.Errorf("failed to store prices: %w", err)
	}
	return nil
}

// UpsertBenchmarkRates stores daily rates for the named benchmark
func (s *Service) UpsertBenchmarkRates(ctx context.Context, benchmark string, rates []models.BenchmarkTick) error {
	benchmark = strings.ToUpper(strings.TrimSpace(benchmark))
	if benchmark == "" {
		return fmt.Errorf("%w: benchmark name is required", ErrInvalidInput)
	}
	for i := range rates {
		if rates[i].TradeDate.IsZero() {
			return fmt.Errorf("%w: rate %d has no trade date", ErrInvalidInput, i)
		}
		rates[i].Benchmark = benchmark
		rates[i].TradeDate = engine.Day(rates[i].TradeDate)
	}
	if err := s.repo.UpsertBenchmarkRates(ctx, rates); err != nil {
		return fmt.Errorf("failed to store benchmark rates: %w", err)
	}
	return nil
}

// SetClassification stores a ticker's classification and refreshes the cache
func (s *Service) SetClassification(ctx context.Context, c models.Classification) (models.Classification, error) {
	c.Ticker = strings.ToUpper(strings.TrimSpace(c.Ticker))
	if c.Ticker == "" {
		return c, fmt.Errorf("%w: ticker is required", ErrInvalidInput)
	}
	c.AssetClass = models.NormalizeAssetType(strings.ToLower(strings.TrimSpace(c.AssetClass)))
	if c.AssetClass == "" {
		c.AssetClass = models.AssetTypeOther
	}

	if err := s.repo.UpsertClassification(ctx, &c); err != nil {
		return c, fmt.Errorf("failed to store classification: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, c); err != nil {
			s.log.Warn().Err(err).Str("ticker", c.Ticker).Msg("classification cache refresh failed")
			if err := s.cache.Invalidate(ctx, c.Ticker); err != nil {
				s.log.Warn().Err(err).Str("ticker", c.Ticker).Msg("classification cache invalidation failed")
			}
		}
	}
	return c, nil
}
