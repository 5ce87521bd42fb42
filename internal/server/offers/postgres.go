package offers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/openlend/lendcore/internal/common"
	"github.com/openlend/lendcore/internal/dbx"
)

// PostgresRepository implements offer storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, o *Offer) error {
	accepted, err := json.Marshal(o.AcceptedCollateral)
	if err != nil {
		return fmt.Errorf("failed to encode accepted collateral: %w", err)
	}
	query := `
		INSERT INTO offers (creator, direction, asset_id, min_amount, max_amount,
			rate_floor_bps, rate_ceiling_bps, min_duration_secs, max_duration_secs,
			min_reputation, collateral_policy, accepted_collateral, accepts_rwa,
			accepts_cross_chain, private, expires_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, created_at
	`
	err = r.db.QueryRowContext(ctx, query,
		o.Creator, o.Direction, o.AssetID, o.MinAmount, o.MaxAmount,
		o.RateFloorBps, o.RateCeilingBps,
		int64(o.MinDuration/time.Second), int64(o.MaxDuration/time.Second),
		o.MinReputation, o.CollateralPolicy, accepted, o.AcceptsRWA,
		o.AcceptsCrossChain, o.Private, o.ExpiresAt, o.Status,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const offerColumns = `
	id, creator, direction, asset_id, min_amount, max_amount,
	rate_floor_bps, rate_ceiling_bps, min_duration_secs, max_duration_secs,
	min_reputation, collateral_policy, accepted_collateral, accepts_rwa,
	accepts_cross_chain, private, created_at, expires_at, status
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOffer(row rowScanner) (*Offer, error) {
	var o Offer
	var minSecs, maxSecs int64
	var accepted []byte
	err := row.Scan(
		&o.ID, &o.Creator, &o.Direction, &o.AssetID, &o.MinAmount, &o.MaxAmount,
		&o.RateFloorBps, &o.RateCeilingBps, &minSecs, &maxSecs,
		&o.MinReputation, &o.CollateralPolicy, &accepted, &o.AcceptsRWA,
		&o.AcceptsCrossChain, &o.Private, &o.CreatedAt, &o.ExpiresAt, &o.Status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrOfferNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	o.MinDuration = time.Duration(minSecs) * time.Second
	o.MaxDuration = time.Duration(maxSecs) * time.Second
	if err := json.Unmarshal(accepted, &o.AcceptedCollateral); err != nil {
		return nil, fmt.Errorf("failed to decode accepted collateral: %w", err)
	}
	return &o, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE id = $1`
	return scanOffer(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) FindMatching(ctx context.Context, q *Query, now time.Time) ([]*Offer, error) {
	query := `
		SELECT ` + offerColumns + `
		FROM offers
		WHERE status = $1 AND expires_at > $2
		  AND asset_id = $3 AND direction = $4 AND min_reputation <= $5
		  AND ($6 = 0 OR (min_amount <= $6 AND max_amount >= $6))
		  AND ($7 = 0 OR rate_floor_bps <= $7)
		ORDER BY rate_ceiling_bps, id
		LIMIT $8
	`
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, query, StatusActive, now, q.AssetID, q.Direction, q.MaxReputation, q.Amount, q.MaxRateBps, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select offers: %w", err)
	}
	defer rows.Close()

	var result []*Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) CountActiveByCreator(ctx context.Context, creator string) (int, error) {
	query := `SELECT count(*) FROM offers WHERE creator = $1 AND status = $2`
	var n int
	if err := r.db.QueryRowContext(ctx, query, creator, StatusActive).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Transition(ctx context.Context, id int64, from, to Status) error {
	query := `UPDATE offers SET status = $3 WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id, from, to)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrOfferNotActive
	}
	return nil
}

func (r *PostgresRepository) ExpireBefore(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE offers SET status = $1 WHERE status = $2 AND expires_at <= $3`
	res, err := r.db.ExecContext(ctx, query, StatusExpired, StatusActive, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) ExpireByIDs(ctx context.Context, ids []int64, now time.Time) (int64, error) {
	query := `UPDATE offers SET status = $1 WHERE id = ANY($2) AND status = $3 AND expires_at <= $4`
	res, err := r.db.ExecContext(ctx, query, StatusExpired, ids, StatusActive, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
