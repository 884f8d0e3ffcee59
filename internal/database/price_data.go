package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-valuation-service/internal/models"
)

const upsertPriceTickSQL = `
	INSERT INTO price_data_daily (ticker, trade_date, open, high, low, close, adjusted_close, volume, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (ticker, trade_date) DO UPDATE SET
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		adjusted_close = EXCLUDED.adjusted_close,
		volume = EXCLUDED.volume
	RETURNING id
`

// UpsertPriceTicks inserts or replaces many ticks in one database transaction
func (db *DB) UpsertPriceTicks(ctx context.Context, prices []*models.PriceTick) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertPriceTickSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, p := range prices {
		err := stmt.QueryRowContext(ctx,
			p.Ticker, p.TradeDate, p.Open, p.High, p.Low, p.Close, nullDecimal(p.AdjustedClose), p.Volume, now,
		).Scan(&p.ID)
		if err != nil {
			return fmt.Errorf("failed to insert price data for %s: %w", p.Ticker, err)
		}
		p.CreatedAt = now
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetPricesSince returns every tick for the given tickers dated on or after since
func (db *DB) GetPricesSince(ctx context.Context, tickers []string, since time.Time) ([]models.PriceTick, error) {
	prices := []models.PriceTick{}
	if len(tickers) == 0 {
		return prices, nil
	}

	query := `
		SELECT id, ticker, trade_date, open, high, low, close, adjusted_close, volume, created_at
		FROM price_data_daily
		WHERE ticker = ANY($1) AND trade_date >= $2
		ORDER BY ticker ASC, trade_date ASC
	`
	rows, err := db.conn.QueryContext(ctx, query, pq.Array(tickers), since)
	if err != nil {
		return nil, fmt.Errorf("failed to get price data: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPriceTick(rows)
		if err != nil {
			return nil, err
		}
		prices = append(prices, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate price data: %w", err)
	}
	return prices, nil
}

// GetLatestPriceDate returns the newest trade date stored for any of the
// given tickers. The boolean is false when none of them has prices.
func (db *DB) GetLatestPriceDate(ctx context.Context, tickers []string) (time.Time, bool, error) {
	if len(tickers) == 0 {
		return time.Time{}, false, nil
	}

	var latest sql.NullTime
	query := `SELECT MAX(trade_date) FROM price_data_daily WHERE ticker = ANY($1)`
	if err := db.conn.QueryRowContext(ctx, query, pq.Array(tickers)).Scan(&latest); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get latest price date: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, false, nil
	}
	return latest.Time, true, nil
}

func scanPriceTick(rows *sql.Rows) (models.PriceTick, error) {
	var p models.PriceTick
	var open, high, low, adjusted sql.NullString

	err := rows.Scan(&p.ID, &p.Ticker, &p.TradeDate, &open, &high, &low, &p.Close, &adjusted, &p.Volume, &p.CreatedAt)
	if err != nil {
		return p, fmt.Errorf("failed to scan price data: %w", err)
	}

	if open.Valid {
		p.Open, _ = decimal.NewFromString(open.String)
	}
	if high.Valid {
		p.High, _ = decimal.NewFromString(high.String)
	}
	if low.Valid {
		p.Low, _ = decimal.NewFromString(low.String)
	}
	if adjusted.Valid {
		p.AdjustedClose, _ = decimal.NewFromString(adjusted.String)
	}
	return p, nil
}

// nullDecimal stores a zero decimal as NULL
func nullDecimal(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: !d.IsZero()}
}
