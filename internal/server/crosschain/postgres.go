package crosschain

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openlend/lendcore/internal/common"
	"github.com/openlend/lendcore/internal/dbx"
)

// PostgresRepository implements lock storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateLock(ctx context.Context, l *Lock) (bool, error) {
	query := `
		INSERT INTO locks (id, owner, asset_id, amount, token_id, foreign_tx_hash, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query,
		l.ID, l.Owner, l.AssetID, l.Amount, l.TokenID, l.ForeignTxHash, l.Status,
	)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) GetLock(ctx context.Context, id string) (*Lock, error) {
	query := `
		SELECT id, owner, asset_id, amount, token_id, foreign_tx_hash,
		       status, locked_at, released_at, recipient
		FROM locks WHERE id = $1
	`
	var l Lock
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&l.ID, &l.Owner, &l.AssetID, &l.Amount, &l.TokenID, &l.ForeignTxHash,
		&l.Status, &l.LockedAt, &l.ReleasedAt, &l.Recipient,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrLockNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &l, nil
}

func (r *PostgresRepository) TransitionLock(ctx context.Context, id string, to Status, recipient string) error {
	query := `
		UPDATE locks SET status = $2, recipient = $3, released_at = now()
		WHERE id = $1 AND status = $4
	`
	res, err := r.db.ExecContext(ctx, query, id, to, recipient, StatusLocked)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrLockNotLocked
	}
	return nil
}

func (r *PostgresRepository) AddAttestation(ctx context.Context, a *Attestation) (bool, error) {
	query := `
		INSERT INTO lock_attestations (candidate_id, relayer, id)
		VALUES ($1, $2, $3)
		ON CONFLICT (candidate_id, relayer) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, a.CandidateID, a.Relayer, a.ID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) CountAttestations(ctx context.Context, candidateID string) (int, error) {
	query := `SELECT count(*) FROM lock_attestations WHERE candidate_id = $1`
	var n int
	if err := r.db.QueryRowContext(ctx, query, candidateID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
