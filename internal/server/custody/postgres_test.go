package custody

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/openlend/lendcore/internal/common"
)

func newLedgerWithMock(t *testing.T) (*PostgresLedger, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresLedger(db), mock, db
}

func TestTransfer_DebitsAndCredits(t *testing.T) {
	l, mock, db := newLedgerWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE holdings SET amount = amount - \$3`).
		WithArgs("alice", "usdc", int64(100)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO holdings`).
		WithArgs("bob", "usdc", int64(100)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := l.Transfer(context.Background(), "alice", "bob", "usdc", 100); err != nil {
		t.Fatalf("Transfer error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTransfer_InsufficientBalance(t *testing.T) {
	l, mock, db := newLedgerWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE holdings SET amount = amount - \$3`).
		WithArgs("alice", "usdc", int64(100)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := l.Transfer(context.Background(), "alice", "bob", "usdc", 100)
	if !errors.Is(err, common.ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}
}

func TestTransfer_NonPositiveAmount(t *testing.T) {
	l, _, db := newLedgerWithMock(t)
	defer db.Close()

	err := l.Transfer(context.Background(), "alice", "bob", "usdc", 0)
	if !errors.Is(err, common.ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}
}

func TestTransferToken_NotOwner(t *testing.T) {
	l, mock, db := newLedgerWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE nft_holdings SET owner = \$4`).
		WithArgs("deed", int64(7), "alice", "bob").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := l.TransferToken(context.Background(), "alice", "bob", "deed", 7)
	if !errors.Is(err, common.ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}
}

func TestBalance_NoRowMeansZero(t *testing.T) {
	l, mock, db := newLedgerWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT amount FROM holdings`).
		WithArgs("alice", "usdc").
		WillReturnError(sql.ErrNoRows)

	got, err := l.Balance(context.Background(), "alice", "usdc")
	if err != nil {
		t.Fatalf("Balance error: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected 0 balance, got %d", got)
	}
}
