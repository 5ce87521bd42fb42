package loans

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/openlend/lendcore/internal/common"
	"github.com/openlend/lendcore/internal/dbx"
)

// PostgresRepository implements loan storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, l *Loan) error {
	query := `
		INSERT INTO loans (borrower, principal_asset, principal, rate_bps, duration_secs,
			collateral_kind, collateral_asset, collateral_token_id, collateral_amount,
			lock_id, status, private, commitment_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		l.Borrower, l.Terms.PrincipalAsset, l.Terms.Principal, l.Terms.RateBps,
		int64(l.Terms.Duration/time.Second),
		l.Terms.Collateral.Kind, l.Terms.Collateral.AssetID,
		l.Terms.Collateral.TokenID, l.Terms.Collateral.Amount, l.Terms.Collateral.LockID,
		l.Status, l.Terms.Private, l.Terms.CommitmentRef,
	).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*Loan, error) {
	query := `
		SELECT id, borrower, COALESCE(lender, ''), principal_asset, principal, rate_bps,
		       duration_secs, started_at, collateral_kind, collateral_asset,
		       collateral_token_id, collateral_amount, lock_id, status, repaid,
		       private, commitment_ref, created_at
		FROM loans WHERE id = $1
	`
	return r.scanLoan(r.db.QueryRowContext(ctx, query, id))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRepository) scanLoan(row rowScanner) (*Loan, error) {
	var l Loan
	var durationSecs int64
	err := row.Scan(
		&l.ID, &l.Borrower, &l.Lender, &l.Terms.PrincipalAsset, &l.Terms.Principal,
		&l.Terms.RateBps, &durationSecs, &l.StartedAt,
		&l.Terms.Collateral.Kind, &l.Terms.Collateral.AssetID,
		&l.Terms.Collateral.TokenID, &l.Terms.Collateral.Amount, &l.Terms.Collateral.LockID,
		&l.Status, &l.Repaid, &l.Terms.Private, &l.Terms.CommitmentRef, &l.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrLoanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	l.Terms.Duration = time.Duration(durationSecs) * time.Second
	return &l, nil
}

func (r *PostgresRepository) Update(ctx context.Context, l *Loan) error {
	query := `
		UPDATE loans SET lender = NULLIF($2, ''), status = $3, started_at = $4, repaid = $5
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, l.ID, l.Lender, l.Status, l.StartedAt, l.Repaid)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrLoanNotFound
	}
	return nil
}

func (r *PostgresRepository) ListByBorrower(ctx context.Context, borrower string) ([]*Loan, error) {
	query := `
		SELECT id, borrower, COALESCE(lender, ''), principal_asset, principal, rate_bps,
		       duration_secs, started_at, collateral_kind, collateral_asset,
		       collateral_token_id, collateral_amount, lock_id, status, repaid,
		       private, commitment_ref, created_at
		FROM loans WHERE borrower = $1
		ORDER BY id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, borrower)
	if err != nil {
		return nil, fmt.Errorf("failed to select loans: %w", err)
	}
	defer rows.Close()

	var result []*Loan
	for rows.Next() {
		l, err := r.scanLoan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) AppendEvent(ctx context.Context, e *Event) error {
	query := `INSERT INTO loan_events (loan_id, kind, actor, amount) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, e.LoanID, e.Kind, e.Actor, e.Amount); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Events(ctx context.Context, loanID int64) ([]*Event, error) {
	query := `
		SELECT id, loan_id, kind, actor, amount, created_at
		FROM loan_events WHERE loan_id = $1
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to select loan events: %w", err)
	}
	defer rows.Close()

	var result []*Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.LoanID, &e.Kind, &e.Actor, &e.Amount, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
