package database

import (
	"context"
	"fmt"
	"time"

	"github.com/trogers1052/portfolio-valuation-service/internal/models"
)

// UpsertBenchmarkRates inserts or replaces daily rates for a benchmark
func (db *DB) UpsertBenchmarkRates(ctx context.Context, rates []models.BenchmarkTick) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO benchmark_rates (benchmark, trade_date, rate_pct, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (benchmark, trade_date) DO UPDATE SET rate_pct = EXCLUDED.rate_pct
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, r := range rates {
		if _, err := stmt.ExecContext(ctx, r.Benchmark, r.TradeDate, r.RatePct, now); err != nil {
			return fmt.Errorf("failed to insert %s rate for %s: %w", r.Benchmark, r.TradeDate.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetBenchmarkRatesSince returns a benchmark's rates dated on or after since, ascending
func (db *DB) GetBenchmarkRatesSince(ctx context.Context, benchmark string, since time.Time) ([]models.BenchmarkTick, error) {
	query := `
		SELECT benchmark, trade_date, rate_pct
		FROM benchmark_rates
		WHERE benchmark = $1 AND trade_date >= $2
		ORDER BY trade_date ASC
	`
	rows, err := db.conn.QueryContext(ctx, query, benchmark, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get benchmark rates: %w", err)
	}
	defer rows.Close()

	rates := []models.BenchmarkTick{}
	for rows.Next() {
		var r models.BenchmarkTick
		if err := rows.Scan(&r.Benchmark, &r.TradeDate, &r.RatePct); err != nil {
			return nil, fmt.Errorf("failed to scan benchmark rate: %w", err)
		}
		rates = append(rates, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate benchmark rates: %w", err)
	}
	return rates, nil
}
