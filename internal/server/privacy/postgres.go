package privacy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openlend/lendcore/internal/common"
	"github.com/openlend/lendcore/internal/dbx"
)

// PostgresRepository implements privacy storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateCommitment(ctx context.Context, c *Commitment) error {
	query := `
		INSERT INTO commitments (hash, creator, proof_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (hash) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, c.Hash, c.Creator, c.ProofType)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrCommitmentExists
	}
	return nil
}

func (r *PostgresRepository) GetCommitment(ctx context.Context, hash string) (*Commitment, error) {
	query := `
		SELECT hash, creator, proof_type, verified, used, created_at, verified_at
		FROM commitments WHERE hash = $1
	`
	var c Commitment
	err := r.db.QueryRowContext(ctx, query, hash).Scan(
		&c.Hash, &c.Creator, &c.ProofType, &c.Verified, &c.Used, &c.CreatedAt, &c.VerifiedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrCommitmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &c, nil
}

func (r *PostgresRepository) MarkVerified(ctx context.Context, hash string) error {
	query := `
		UPDATE commitments SET verified = true, verified_at = now()
		WHERE hash = $1 AND verified = false
	`
	res, err := r.db.ExecContext(ctx, query, hash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrCommitmentVerified
	}
	return nil
}

func (r *PostgresRepository) MarkUsed(ctx context.Context, hash string) error {
	query := `
		UPDATE commitments SET used = true
		WHERE hash = $1 AND verified = true AND used = false
	`
	res, err := r.db.ExecContext(ctx, query, hash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrCommitmentUsed
	}
	return nil
}

func (r *PostgresRepository) AppendEvent(ctx context.Context, hash string, ok bool, detail string) error {
	query := `INSERT INTO commitment_events (hash, ok, detail) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, hash, ok, detail); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UseNullifier(ctx context.Context, hash, account string) error {
	query := `
		INSERT INTO nullifiers (hash, account)
		VALUES ($1, $2)
		ON CONFLICT (hash) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, hash, account)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNullifierReused
	}
	return nil
}

func (r *PostgresRepository) GetVerifier(ctx context.Context, proofType string) (*VerifierConfig, error) {
	query := `
		SELECT proof_type, handle, min_signals, max_signals
		FROM verifiers WHERE proof_type = $1
	`
	var cfg VerifierConfig
	err := r.db.QueryRowContext(ctx, query, proofType).Scan(
		&cfg.ProofType, &cfg.Handle, &cfg.MinSignals, &cfg.MaxSignals,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrVerifierNotSet
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &cfg, nil
}

func (r *PostgresRepository) UpsertVerifier(ctx context.Context, cfg *VerifierConfig) error {
	query := `
		INSERT INTO verifiers (proof_type, handle, min_signals, max_signals)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (proof_type)
		DO UPDATE SET
			handle = EXCLUDED.handle,
			min_signals = EXCLUDED.min_signals,
			max_signals = EXCLUDED.max_signals;
	`
	_, err := r.db.ExecContext(ctx, query, cfg.ProofType, cfg.Handle, cfg.MinSignals, cfg.MaxSignals)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
