package accesscontrol

import (
	"context"
	"fmt"

	"github.com/openlend/lendcore/internal/dbx"
)

// PostgresRepository stores capability grants over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Grant(ctx context.Context, capability, account string) error {
	query := `
		INSERT INTO capabilities (capability, account)
		VALUES ($1, $2)
		ON CONFLICT (capability, account) DO NOTHING;
	`
	if _, err := r.db.ExecContext(ctx, query, capability, account); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Revoke(ctx context.Context, capability, account string) error {
	query := `DELETE FROM capabilities WHERE capability = $1 AND account = $2`
	if _, err := r.db.ExecContext(ctx, query, capability, account); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Has(ctx context.Context, capability, account string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM capabilities WHERE capability = $1 AND account = $2)`
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, capability, account).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}
