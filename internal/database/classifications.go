package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/trogers1052/portfolio-valuation-service/internal/models"
)

// UpsertClassification stores a ticker's asset class and sector
func (db *DB) UpsertClassification(ctx context.Context, c *models.Classification) error {
	query := `
		INSERT INTO asset_classifications (ticker, asset_class, sector, subtype, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (ticker) DO UPDATE SET
			asset_class = EXCLUDED.asset_class,
			sector = EXCLUDED.sector,
			subtype = EXCLUDED.subtype,
			updated_at = EXCLUDED.updated_at
	`
	now := time.Now()
	_, err := db.conn.ExecContext(ctx, query, c.Ticker, c.AssetClass, nullString(c.Sector), nullString(c.Subtype), now)
	if err != nil {
		return fmt.Errorf("failed to upsert classification for %s: %w", c.Ticker, err)
	}
	c.Known = true
	c.UpdatedAt = now
	return nil
}

// GetClassification returns the stored classification for a ticker. The
// boolean is false when the ticker has never been classified.
func (db *DB) GetClassification(ctx context.Context, ticker string) (models.Classification, bool, error) {
	query := `
		SELECT ticker, asset_class, sector, subtype, updated_at
		FROM asset_classifications
		WHERE ticker = $1
	`
	var c models.Classification
	var sector, subtype sql.NullString

	err := db.conn.QueryRowContext(ctx, query, ticker).Scan(&c.Ticker, &c.AssetClass, &sector, &subtype, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.Classification{}, false, nil
	}
	if err != nil {
		return models.Classification{}, false, fmt.Errorf("failed to get classification for %s: %w", ticker, err)
	}

	c.Sector = sector.String
	c.Subtype = subtype.String
	c.Known = true
	return c, true, nil
}
