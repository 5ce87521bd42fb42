package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openlend/lendcore/internal/common"
	"github.com/openlend/lendcore/internal/dbx"
)

// PostgresRepository implements asset storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, a *Asset) error {
	query := `
		INSERT INTO assets (id, symbol, category, whitelisted, min_collateral_ratio_bps, privacy_eligible, cross_chain_eligible)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id)
		DO UPDATE SET
			symbol = EXCLUDED.symbol,
			category = EXCLUDED.category,
			whitelisted = EXCLUDED.whitelisted,
			min_collateral_ratio_bps = EXCLUDED.min_collateral_ratio_bps,
			privacy_eligible = EXCLUDED.privacy_eligible,
			cross_chain_eligible = EXCLUDED.cross_chain_eligible,
			updated_at = now();
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Symbol, a.Category, a.Whitelisted, a.MinCollateralRatioBps, a.PrivacyEligible, a.CrossChainEligible)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Asset, error) {
	query := `
		SELECT id, symbol, category, whitelisted, min_collateral_ratio_bps, privacy_eligible, cross_chain_eligible, created_at, updated_at
		FROM assets WHERE id = $1
	`
	var a Asset
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.Symbol, &a.Category, &a.Whitelisted, &a.MinCollateralRatioBps,
		&a.PrivacyEligible, &a.CrossChainEligible, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrAssetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &a, nil
}

func (r *PostgresRepository) SetWhitelisted(ctx context.Context, id string, whitelisted bool) error {
	query := `UPDATE assets SET whitelisted = $2, updated_at = now() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, whitelisted)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrAssetNotFound
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*Asset, error) {
	query := `
		SELECT id, symbol, category, whitelisted, min_collateral_ratio_bps, privacy_eligible, cross_chain_eligible, created_at, updated_at
		FROM assets ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select assets: %w", err)
	}
	defer rows.Close()

	var result []*Asset
	for rows.Next() {
		var a Asset
		if err := rows.Scan(
			&a.ID, &a.Symbol, &a.Category, &a.Whitelisted, &a.MinCollateralRatioBps,
			&a.PrivacyEligible, &a.CrossChainEligible, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
