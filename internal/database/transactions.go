package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/trogers1052/portfolio-valuation-service/internal/models"
)

const insertTransactionSQL = `
	INSERT INTO transactions (
		user_id, ticker, name, asset_type, quantity, unit_price, trade_date, external_id, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING id
`

// CreateTransaction records a buy in the user's ledger
func (db *DB) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	now := time.Now()
	err := db.conn.QueryRowContext(ctx, insertTransactionSQL,
		t.UserID, t.Ticker, nullString(t.Name), nullString(t.AssetType),
		t.Quantity, t.UnitPrice, t.TradeDate, nullString(t.ExternalID), now,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	t.CreatedAt = now
	return nil
}

// CreateTransactionsBatch records several buys atomically
func (db *DB) CreateTransactionsBatch(ctx context.Context, txs []*models.Transaction) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertTransactionSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, t := range txs {
		err := stmt.QueryRowContext(ctx,
			t.UserID, t.Ticker, nullString(t.Name), nullString(t.AssetType),
			t.Quantity, t.UnitPrice, t.TradeDate, nullString(t.ExternalID), now,
		).Scan(&t.ID)
		if err != nil {
			return fmt.Errorf("failed to insert transaction for %s: %w", t.Ticker, err)
		}
		t.CreatedAt = now
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// TransactionExistsByExternalID checks whether a broker order was already recorded for the user
func (db *DB) TransactionExistsByExternalID(ctx context.Context, userID, externalID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM transactions WHERE user_id = $1 AND external_id = $2)`
	var exists bool
	if err := db.conn.QueryRowContext(ctx, query, userID, externalID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check transaction existence: %w", err)
	}
	return exists, nil
}

// GetTransactionsByUser returns the user's ledger ordered by trade date ascending
func (db *DB) GetTransactionsByUser(ctx context.Context, userID string) ([]models.Transaction, error) {
	query := `
		SELECT id, user_id, ticker, name, asset_type, quantity, unit_price, trade_date, external_id, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY trade_date ASC, id ASC
	`
	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	txs := []models.Transaction{}
	for rows.Next() {
		var t models.Transaction
		var name, assetType, externalID sql.NullString

		err := rows.Scan(
			&t.ID, &t.UserID, &t.Ticker, &name, &assetType,
			&t.Quantity, &t.UnitPrice, &t.TradeDate, &externalID, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.Name = name.String
		t.AssetType = assetType.String
		t.ExternalID = externalID.String
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txs, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
