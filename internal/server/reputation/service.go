package reputation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/openlend/lendcore/internal/common"
	"github.com/openlend/lendcore/internal/dbx"
	"github.com/openlend/lendcore/internal/logging"
	"github.com/openlend/lendcore/internal/server/accesscontrol"
)

// historyWindow bounds how many recent interactions feed the diversity
// sub-score.
const historyWindow = 50

type AccessChecker interface {
	Require(ctx context.Context, capability, account string) error
}

type Service struct {
	db      *sql.DB
	repoFor func(dbx.DBTX) Repository
	acl     AccessChecker
	logger  logging.Logger
	now     func() time.Time
}

func NewService(db *sql.DB, acl AccessChecker, logger logging.Logger) *Service {
	return &Service{
		db:      db,
		repoFor: func(tx dbx.DBTX) Repository { return NewPostgresRepository(tx) },
		acl:     acl,
		logger:  logger.With("module", "reputation"),
		now:     time.Now,
	}
}

// Get returns the account's record. Accounts with no history yet read as a
// zero record; no recompute happens on read.
func (s *Service) Get(ctx context.Context, account string) (*Record, error) {
	return s.get(ctx, s.repoFor(s.db), account)
}

func (s *Service) get(ctx context.Context, repo Repository, account string) (*Record, error) {
	rec, err := repo.Get(ctx, account)
	if errors.Is(err, common.ErrNotFound) {
		return &Record{Account: account, Tier: TierNone}, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Recompute explicitly re-derives the score from current counters.
func (s *Service) Recompute(ctx context.Context, account string) (*Record, error) {
	var out *Record
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repoFor(tx)
		rec, err := s.get(ctx, repo, account)
		if err != nil {
			return err
		}
		if err := s.recompute(ctx, repo, rec); err != nil {
			return err
		}
		out = rec
		return nil
	})
	return out, err
}

// recompute derives score and tier from the record's counters and persists
// the record. The age sub-score uses the age of the previous update, read
// before the timestamp is advanced.
func (s *Service) recompute(ctx context.Context, repo Repository, rec *Record) error {
	counterparties, err := repo.RecentCounterparties(ctx, rec.Account, historyWindow)
	if err != nil {
		return err
	}
	distinct := map[string]struct{}{}
	for _, c := range counterparties {
		distinct[c] = struct{}{}
	}

	var age time.Duration
	if !rec.UpdatedAt.IsZero() {
		age = s.now().Sub(rec.UpdatedAt)
	}

	rec.Score = computeScore(rec, len(distinct), age)
	rec.Tier = TierForScore(rec.Score)
	rec.UpdatedAt = s.now()
	return repo.Upsert(ctx, rec)
}

// applyTx loads the record inside the caller's transaction, applies mutate,
// appends the history entry, and recomputes.
func (s *Service) applyTx(ctx context.Context, tx dbx.DBTX, account, counterparty string, loanID int64, kind string, amount int64, mutate func(*Record)) error {
	repo := s.repoFor(tx)
	rec, err := s.get(ctx, repo, account)
	if err != nil {
		return err
	}
	mutate(rec)
	if err := repo.AppendInteraction(ctx, &Interaction{
		Account:      account,
		Counterparty: counterparty,
		LoanID:       loanID,
		Kind:         kind,
		Amount:       amount,
	}); err != nil {
		return err
	}
	return s.recompute(ctx, repo, rec)
}

// RecordLoanCreatedTx bumps the borrower's created counter. Engine capability
// required; runs inside the engine's transaction.
func (s *Service) RecordLoanCreatedTx(ctx context.Context, tx dbx.DBTX, caller, borrower string, loanID, amount int64) error {
	if err := s.acl.Require(ctx, accesscontrol.CapEngine, caller); err != nil {
		return err
	}
	return s.applyTx(ctx, tx, borrower, "", loanID, InteractionCreated, amount, func(r *Record) {
		r.LoansCreated++
		r.BorrowedVolume += amount
	})
}

// RecordLoanFundedTx credits the lender's lent volume and links both parties
// in history. Engine capability required.
func (s *Service) RecordLoanFundedTx(ctx context.Context, tx dbx.DBTX, caller, lender, borrower string, loanID, amount int64) error {
	if err := s.acl.Require(ctx, accesscontrol.CapEngine, caller); err != nil {
		return err
	}
	if err := s.applyTx(ctx, tx, lender, borrower, loanID, InteractionFunded, amount, func(r *Record) {
		r.LentVolume += amount
	}); err != nil {
		return err
	}
	return s.applyTx(ctx, tx, borrower, lender, loanID, InteractionFunded, amount, func(r *Record) {})
}

// RecordLoanRepaidTx reports a fully repaid loan. Engine capability required.
func (s *Service) RecordLoanRepaidTx(ctx context.Context, tx dbx.DBTX, caller, borrower, lender string, loanID, amount int64) error {
	if err := s.acl.Require(ctx, accesscontrol.CapEngine, caller); err != nil {
		return err
	}
	return s.applyTx(ctx, tx, borrower, lender, loanID, InteractionRepaid, amount, func(r *Record) {
		r.LoansRepaid++
		r.RepaidVolume += amount
	})
}

// RecordLoanRepaid is the standalone form used on the best-effort reporting
// path after the repayment transaction has committed.
func (s *Service) RecordLoanRepaid(ctx context.Context, caller, borrower, lender string, loanID, amount int64) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.RecordLoanRepaidTx(ctx, tx, caller, borrower, lender, loanID, amount)
	})
}

// RecordLoanDefaultedTx reports a default. Engine capability required.
func (s *Service) RecordLoanDefaultedTx(ctx context.Context, tx dbx.DBTX, caller, borrower, lender string, loanID, amount int64) error {
	if err := s.acl.Require(ctx, accesscontrol.CapEngine, caller); err != nil {
		return err
	}
	return s.applyTx(ctx, tx, borrower, lender, loanID, InteractionDefaulted, amount, func(r *Record) {
		r.LoansDefaulted++
	})
}

// SetBlacklisted flips the blacklist flag. Admin capability required.
func (s *Service) SetBlacklisted(ctx context.Context, caller, account string, blacklisted bool) error {
	if err := s.acl.Require(ctx, accesscontrol.CapAdmin, caller); err != nil {
		return err
	}
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repoFor(tx)
		rec, err := s.get(ctx, repo, account)
		if err != nil {
			return err
		}
		rec.Blacklisted = blacklisted
		if rec.UpdatedAt.IsZero() {
			rec.UpdatedAt = s.now()
		}
		return repo.Upsert(ctx, rec)
	})
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "blacklist updated", "account", account, "blacklisted", blacklisted)
	return nil
}

// IsEligibleForLoan reports whether the account may open new loans.
func (s *Service) IsEligibleForLoan(ctx context.Context, account string) (bool, error) {
	return s.isEligible(ctx, s.repoFor(s.db), account)
}

// IsEligibleForLoanTx is the in-transaction form used by the loan engine.
func (s *Service) IsEligibleForLoanTx(ctx context.Context, tx dbx.DBTX, account string) (bool, error) {
	return s.isEligible(ctx, s.repoFor(tx), account)
}

func (s *Service) isEligible(ctx context.Context, repo Repository, account string) (bool, error) {
	rec, err := s.get(ctx, repo, account)
	if err != nil {
		return false, err
	}
	return !rec.Blacklisted, nil
}

// GenerateProof registers a pending reputation proof: the caller claims its
// current score meets threshold and binds the claim to a commitment and a
// fresh nullifier. The privacy gateway verifies the proof later.
func (s *Service) GenerateProof(ctx context.Context, caller string, threshold int, commitment, nullifier string) (*Proof, error) {
	if threshold < 0 || commitment == "" || nullifier == "" {
		return nil, fmt.Errorf("%w: threshold, commitment and nullifier are required", common.ErrInvalidTerms)
	}

	var out *Proof
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repoFor(tx)
		rec, err := s.get(ctx, repo, caller)
		if err != nil {
			return err
		}
		if rec.Score < threshold {
			return fmt.Errorf("%w: score %d < threshold %d", common.ErrScoreBelowThreshold, rec.Score, threshold)
		}
		p := &Proof{Account: caller, Commitment: commitment, Nullifier: nullifier, Threshold: threshold}
		if err := repo.CreateProof(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "reputation proof registered", "account", caller, "threshold", threshold)
	return out, nil
}
