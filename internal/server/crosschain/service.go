package crosschain

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openlend/lendcore/internal/common"
	"github.com/openlend/lendcore/internal/dbx"
	"github.com/openlend/lendcore/internal/logging"
	"github.com/openlend/lendcore/internal/server/accesscontrol"
)

type AccessChecker interface {
	Require(ctx context.Context, capability, account string) error
}

type Service struct {
	db      *sql.DB
	repoFor func(dbx.DBTX) Repository
	acl     AccessChecker
	logger  logging.Logger
	quorum  int
}

func NewService(db *sql.DB, acl AccessChecker, logger logging.Logger, quorum int) *Service {
	return &Service{
		db:      db,
		repoFor: func(tx dbx.DBTX) Repository { return NewPostgresRepository(tx) },
		acl:     acl,
		logger:  logger.With("module", "crosschain"),
		quorum:  quorum,
	}
}

// LockRequest describes one foreign-chain lock as observed by a relayer or
// asserted by a trusted verifier.
type LockRequest struct {
	Owner         string
	AssetID       string
	Amount        int64
	TokenID       int64
	ForeignTxHash string
}

func (r *LockRequest) validate() error {
	if r.Owner == "" || r.AssetID == "" || r.ForeignTxHash == "" {
		return fmt.Errorf("%w: owner, asset and foreign tx hash are required", common.ErrInvalidTerms)
	}
	if r.Amount <= 0 && r.TokenID == 0 {
		return fmt.Errorf("%w: either a positive amount or a token id is required", common.ErrInvalidTerms)
	}
	return nil
}

func (r *LockRequest) lock(id string) *Lock {
	return &Lock{
		ID:            id,
		Owner:         r.Owner,
		AssetID:       r.AssetID,
		Amount:        r.Amount,
		TokenID:       r.TokenID,
		ForeignTxHash: r.ForeignTxHash,
		Status:        StatusLocked,
	}
}

// SubmitAttestation records one relayer's vote for a lock candidate. The
// lock materializes exactly once, on the vote that reaches quorum; votes
// after that are accepted and ignored. Relayer capability required.
func (s *Service) SubmitAttestation(ctx context.Context, caller string, req *LockRequest) (*AttestationResult, error) {
	if err := s.acl.Require(ctx, accesscontrol.CapRelayer, caller); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	id := ComputeLockID(req.Owner, req.AssetID, req.Amount, req.ForeignTxHash)
	out := &AttestationResult{LockID: id}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repoFor(tx)
		fresh, err := repo.AddAttestation(ctx, &Attestation{
			CandidateID: id,
			Relayer:     caller,
			ID:          uuid.NewString(),
		})
		if err != nil {
			return err
		}

		out.Attestations, err = repo.CountAttestations(ctx, id)
		if err != nil {
			return err
		}
		if !fresh || out.Attestations < s.quorum {
			return nil
		}

		out.Materialized, err = repo.CreateLock(ctx, req.lock(id))
		return err
	})
	if err != nil {
		return nil, err
	}

	if out.Materialized {
		s.logger.Info(ctx, "lock materialized by quorum", "lock_id", id, "attestations", out.Attestations)
	}
	return out, nil
}

// VerifyLockDirect registers a lock from a single trusted verifier carrying
// a state proof. The proof blob itself is opaque here; possession of the
// verify capability is what authorizes the claim. Idempotent on repeat
// submissions.
func (s *Service) VerifyLockDirect(ctx context.Context, caller string, req *LockRequest, proof []byte) (*Lock, error) {
	if err := s.acl.Require(ctx, accesscontrol.CapCrossChainVerify, caller); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	if len(proof) == 0 {
		return nil, common.ErrEmptyProof
	}

	id := ComputeLockID(req.Owner, req.AssetID, req.Amount, req.ForeignTxHash)
	l := req.lock(id)

	created, err := s.repoFor(s.db).CreateLock(ctx, l)
	if err != nil {
		return nil, err
	}
	if !created {
		return s.repoFor(s.db).GetLock(ctx, id)
	}

	l.LockedAt = time.Now()
	s.logger.Info(ctx, "lock verified directly", "lock_id", id, "verifier", caller)
	return l, nil
}

// GetLock returns the lock by id.
func (s *Service) GetLock(ctx context.Context, id string) (*Lock, error) {
	return s.repoFor(s.db).GetLock(ctx, id)
}

// RequireLockedTx loads the lock inside the caller's transaction and checks
// it is held by owner and still in StatusLocked.
func (s *Service) RequireLockedTx(ctx context.Context, tx dbx.DBTX, id, owner string) (*Lock, error) {
	l, err := s.repoFor(tx).GetLock(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Owner != owner {
		return nil, fmt.Errorf("%w: lock is not held by %s", common.ErrUnauthorized, owner)
	}
	if l.Status != StatusLocked {
		return nil, common.ErrLockNotLocked
	}
	return l, nil
}

// ReleaseToTx moves the lock to StatusReleased with the given recipient.
// Engine capability required; runs inside the engine's transaction.
func (s *Service) ReleaseToTx(ctx context.Context, tx dbx.DBTX, caller, id, recipient string) error {
	return s.transitionTx(ctx, tx, caller, id, StatusReleased, recipient)
}

// SeizeTx moves the lock to StatusSeized with the given recipient. Engine
// capability required; runs inside the engine's transaction.
func (s *Service) SeizeTx(ctx context.Context, tx dbx.DBTX, caller, id, recipient string) error {
	return s.transitionTx(ctx, tx, caller, id, StatusSeized, recipient)
}

func (s *Service) transitionTx(ctx context.Context, tx dbx.DBTX, caller, id string, to Status, recipient string) error {
	if err := s.acl.Require(ctx, accesscontrol.CapEngine, caller); err != nil {
		return err
	}
	if recipient == "" {
		return fmt.Errorf("%w: recipient is required", common.ErrInvalidTerms)
	}
	if err := s.repoFor(tx).TransitionLock(ctx, id, to, recipient); err != nil {
		return fmt.Errorf("%w: %w", common.ErrCrossChainRelease, err)
	}
	s.logger.Info(ctx, "lock transitioned", "lock_id", id, "status", to, "recipient", recipient)
	return nil
}
