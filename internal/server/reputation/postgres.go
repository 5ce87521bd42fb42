package reputation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openlend/lendcore/internal/common"
	"github.com/openlend/lendcore/internal/dbx"
)

// PostgresRepository implements reputation storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, account string) (*Record, error) {
	query := `
		SELECT account, loans_created, loans_repaid, loans_defaulted,
		       borrowed_volume, lent_volume, repaid_volume,
		       score, tier, blacklisted, updated_at
		FROM reputation WHERE account = $1
	`
	var rec Record
	err := r.db.QueryRowContext(ctx, query, account).Scan(
		&rec.Account, &rec.LoansCreated, &rec.LoansRepaid, &rec.LoansDefaulted,
		&rec.BorrowedVolume, &rec.LentVolume, &rec.RepaidVolume,
		&rec.Score, &rec.Tier, &rec.Blacklisted, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &rec, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO reputation (account, loans_created, loans_repaid, loans_defaulted,
			borrowed_volume, lent_volume, repaid_volume, score, tier, blacklisted, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (account)
		DO UPDATE SET
			loans_created = EXCLUDED.loans_created,
			loans_repaid = EXCLUDED.loans_repaid,
			loans_defaulted = EXCLUDED.loans_defaulted,
			borrowed_volume = EXCLUDED.borrowed_volume,
			lent_volume = EXCLUDED.lent_volume,
			repaid_volume = EXCLUDED.repaid_volume,
			score = EXCLUDED.score,
			tier = EXCLUDED.tier,
			blacklisted = EXCLUDED.blacklisted,
			updated_at = EXCLUDED.updated_at;
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.Account, rec.LoansCreated, rec.LoansRepaid, rec.LoansDefaulted,
		rec.BorrowedVolume, rec.LentVolume, rec.RepaidVolume,
		rec.Score, rec.Tier, rec.Blacklisted, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) AppendInteraction(ctx context.Context, in *Interaction) error {
	query := `
		INSERT INTO reputation_events (account, counterparty, loan_id, kind, amount)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query, in.Account, in.Counterparty, in.LoanID, in.Kind, in.Amount)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RecentCounterparties(ctx context.Context, account string, limit int) ([]string, error) {
	query := `
		SELECT counterparty FROM reputation_events
		WHERE account = $1 AND counterparty <> ''
		ORDER BY id DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, account, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select interactions: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) CreateProof(ctx context.Context, p *Proof) error {
	query := `
		INSERT INTO reputation_proofs (account, commitment, nullifier, threshold)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account, nullifier) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, p.Account, p.Commitment, p.Nullifier, p.Threshold)
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
