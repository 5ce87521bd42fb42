package custody

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openlend/lendcore/internal/common"
	"github.com/openlend/lendcore/internal/dbx"
)

// PostgresLedger implements Ledger over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresLedger struct {
	db dbx.DBTX
}

func NewPostgresLedger(db dbx.DBTX) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) Transfer(ctx context.Context, from, to, assetID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: non-positive amount", common.ErrTransferFailed)
	}

	debit := `
		UPDATE holdings SET amount = amount - $3
		WHERE account = $1 AND asset_id = $2 AND amount >= $3
	`
	res, err := l.db.ExecContext(ctx, debit, from, assetID, amount)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: insufficient balance of %s for %s", common.ErrTransferFailed, assetID, from)
	}

	return l.Credit(ctx, to, assetID, amount)
}

func (l *PostgresLedger) TransferToken(ctx context.Context, from, to, assetID string, tokenID int64) error {
	query := `
		UPDATE nft_holdings SET owner = $4
		WHERE asset_id = $1 AND token_id = $2 AND owner = $3
	`
	res, err := l.db.ExecContext(ctx, query, assetID, tokenID, from, to)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s does not hold token %d of %s", common.ErrTransferFailed, from, tokenID, assetID)
	}
	return nil
}

func (l *PostgresLedger) Credit(ctx context.Context, account, assetID string, amount int64) error {
	query := `
		INSERT INTO holdings (account, asset_id, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (account, asset_id)
		DO UPDATE SET amount = holdings.amount + EXCLUDED.amount;
	`
	if _, err := l.db.ExecContext(ctx, query, account, assetID, amount); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (l *PostgresLedger) MintToken(ctx context.Context, account, assetID string, tokenID int64) error {
	query := `INSERT INTO nft_holdings (asset_id, token_id, owner) VALUES ($1, $2, $3)`
	if _, err := l.db.ExecContext(ctx, query, assetID, tokenID, account); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (l *PostgresLedger) Balance(ctx context.Context, account, assetID string) (int64, error) {
	query := `SELECT amount FROM holdings WHERE account = $1 AND asset_id = $2`
	var amount int64
	err := l.db.QueryRowContext(ctx, query, account, assetID).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return amount, nil
}

func (l *PostgresLedger) TokenOwner(ctx context.Context, assetID string, tokenID int64) (string, error) {
	query := `SELECT owner FROM nft_holdings WHERE asset_id = $1 AND token_id = $2`
	var owner string
	err := l.db.QueryRowContext(ctx, query, assetID, tokenID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", common.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}
	return owner, nil
}
