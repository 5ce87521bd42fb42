package privacy

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlend/lendcore/internal/common"
)

func newPostgresRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestPostgresCreateCommitment_Conflict(t *testing.T) {
	repo, mock := newPostgresRepo(t)

	mock.ExpectExec("INSERT INTO commitments").
		WithArgs("aa", "bob", ProofTypeReputation).
		WillReturnResult(sqlmock.NewResult(0, 1))
	err := repo.CreateCommitment(context.Background(), &Commitment{Hash: "aa", Creator: "bob", ProofType: ProofTypeReputation})
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO commitments").
		WithArgs("aa", "lucy", ProofTypeLoanAmount).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.CreateCommitment(context.Background(), &Commitment{Hash: "aa", Creator: "lucy", ProofType: ProofTypeLoanAmount})
	assert.ErrorIs(t, err, common.ErrCommitmentExists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetCommitment_NotFound(t *testing.T) {
	repo, mock := newPostgresRepo(t)

	mock.ExpectQuery("SELECT hash, creator, proof_type").
		WithArgs("aa").
		WillReturnRows(sqlmock.NewRows([]string{"hash"}))

	_, err := repo.GetCommitment(context.Background(), "aa")
	assert.ErrorIs(t, err, common.ErrCommitmentNotFound)
}

func TestPostgresMarkVerified_OnlyOnce(t *testing.T) {
	repo, mock := newPostgresRepo(t)

	mock.ExpectExec("UPDATE commitments SET verified").
		WithArgs("aa").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkVerified(context.Background(), "aa"))

	mock.ExpectExec("UPDATE commitments SET verified").
		WithArgs("aa").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.MarkVerified(context.Background(), "aa")
	assert.ErrorIs(t, err, common.ErrCommitmentVerified)
}

func TestPostgresUseNullifier_Reuse(t *testing.T) {
	repo, mock := newPostgresRepo(t)

	mock.ExpectExec("INSERT INTO nullifiers").
		WithArgs("nn", "bob").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UseNullifier(context.Background(), "nn", "bob"))

	mock.ExpectExec("INSERT INTO nullifiers").
		WithArgs("nn", "lucy").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UseNullifier(context.Background(), "nn", "lucy")
	assert.ErrorIs(t, err, common.ErrNullifierReused)
}

func TestPostgresGetVerifier_NotSet(t *testing.T) {
	repo, mock := newPostgresRepo(t)

	mock.ExpectQuery("SELECT proof_type, handle").
		WithArgs(ProofTypeLoanAmount).
		WillReturnRows(sqlmock.NewRows([]string{"proof_type"}))

	_, err := repo.GetVerifier(context.Background(), ProofTypeLoanAmount)
	assert.ErrorIs(t, err, common.ErrVerifierNotSet)
}
