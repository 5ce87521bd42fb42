package privacy

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

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
	checker PairingChecker
	acl     AccessChecker
	logger  logging.Logger
}

func NewService(db *sql.DB, checker PairingChecker, acl AccessChecker, logger logging.Logger) *Service {
	return &Service{
		db:      db,
		repoFor: func(tx dbx.DBTX) Repository { return NewPostgresRepository(tx) },
		checker: checker,
		acl:     acl,
		logger:  logger.With("module", "privacy"),
	}
}

// normalizeHash canonicalizes a 256-bit hex value: optional 0x prefix
// stripped, lowercased.
func normalizeHash(h string) (string, error) {
	h = strings.ToLower(strings.TrimPrefix(h, "0x"))
	raw, err := hex.DecodeString(h)
	if err != nil || len(raw) != 32 {
		return "", fmt.Errorf("%w: expected a 256-bit hex value", common.ErrInvalidTerms)
	}
	return h, nil
}

// CreateCommitment registers a new commitment for the caller. The hash is
// opaque to the gateway; only well-formedness is checked.
func (s *Service) CreateCommitment(ctx context.Context, caller, hash, proofType string) (*Commitment, error) {
	h, err := normalizeHash(hash)
	if err != nil {
		return nil, err
	}
	if !KnownProofType(proofType) {
		return nil, fmt.Errorf("%w: unknown proof type %q", common.ErrInvalidTerms, proofType)
	}

	c := &Commitment{Hash: h, Creator: caller, ProofType: proofType}
	if err := s.repoFor(s.db).CreateCommitment(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "commitment created", "hash", h, "creator", caller, "proof_type", proofType)
	return c, nil
}

// GetCommitment returns the registry entry for hash.
func (s *Service) GetCommitment(ctx context.Context, hash string) (*Commitment, error) {
	h, err := normalizeHash(hash)
	if err != nil {
		return nil, err
	}
	return s.repoFor(s.db).GetCommitment(ctx, h)
}

// ConfigureVerifier binds a verifier handle and signal bounds to a proof
// type. Admin capability required.
func (s *Service) ConfigureVerifier(ctx context.Context, caller string, cfg *VerifierConfig) error {
	if err := s.acl.Require(ctx, accesscontrol.CapAdmin, caller); err != nil {
		return err
	}
	if !KnownProofType(cfg.ProofType) {
		return fmt.Errorf("%w: unknown proof type %q", common.ErrInvalidTerms, cfg.ProofType)
	}
	if cfg.Handle == "" {
		return fmt.Errorf("%w: verifier handle is required", common.ErrInvalidTerms)
	}
	if cfg.MinSignals < 1 || cfg.MaxSignals < cfg.MinSignals {
		return fmt.Errorf("%w: signal bounds must satisfy 1 <= min <= max", common.ErrInvalidTerms)
	}
	if err := s.repoFor(s.db).UpsertVerifier(ctx, cfg); err != nil {
		return err
	}
	s.logger.Info(ctx, "verifier configured", "proof_type", cfg.ProofType, "handle", cfg.Handle)
	return nil
}

// VerifyProof validates a proof against a pending commitment and, on
// success, marks the commitment verified. For reputation proofs the second
// signal is a nullifier consumed exactly once. The pairing check runs
// against the verifier bound to the commitment's proof type; no transaction
// is held open across that call.
func (s *Service) VerifyProof(ctx context.Context, commitmentHash string, proof Proof, signals []string) error {
	h, err := normalizeHash(commitmentHash)
	if err != nil {
		return err
	}

	repo := s.repoFor(s.db)
	c, err := repo.GetCommitment(ctx, h)
	if err != nil {
		return err
	}
	if c.Verified {
		return common.ErrCommitmentVerified
	}

	cfg, err := repo.GetVerifier(ctx, c.ProofType)
	if err != nil {
		return err
	}

	nullifier, err := s.validateSignals(c, cfg, h, signals)
	if err != nil {
		return err
	}

	ok, err := s.checker.Check(ctx, cfg.Handle, proof, signals)
	if err != nil {
		s.recordOutcome(ctx, h, false, "verifier unreachable")
		return err
	}
	if !ok {
		s.recordOutcome(ctx, h, false, "pairing check failed")
		return common.ErrProofInvalid
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		txRepo := s.repoFor(tx)
		if err := txRepo.MarkVerified(ctx, h); err != nil {
			return err
		}
		if nullifier != "" {
			if err := txRepo.UseNullifier(ctx, nullifier, c.Creator); err != nil {
				return err
			}
		}
		return txRepo.AppendEvent(ctx, h, true, "verified")
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "commitment verified", "hash", h, "proof_type", c.ProofType)
	return nil
}

// validateSignals enforces the verifier's signal bounds, the binding of the
// first signal to the commitment, and the reputation-specific layout. It
// returns the nullifier to consume, or "" for proof types without one.
func (s *Service) validateSignals(c *Commitment, cfg *VerifierConfig, hash string, signals []string) (string, error) {
	if len(signals) < cfg.MinSignals || len(signals) > cfg.MaxSignals {
		return "", fmt.Errorf("%w: got %d signals, verifier accepts %d..%d",
			common.ErrInvalidSignals, len(signals), cfg.MinSignals, cfg.MaxSignals)
	}

	first, err := normalizeHash(signals[0])
	if err != nil || first != hash {
		return "", fmt.Errorf("%w: first signal must equal the commitment", common.ErrInvalidSignals)
	}

	if c.ProofType != ProofTypeReputation {
		return "", nil
	}

	// Reputation proofs carry [commitment, nullifier, threshold].
	if len(signals) < 3 {
		return "", fmt.Errorf("%w: reputation proofs require a nullifier and a threshold", common.ErrInvalidSignals)
	}
	nullifier, err := normalizeHash(signals[1])
	if err != nil {
		return "", fmt.Errorf("%w: malformed nullifier", common.ErrInvalidSignals)
	}
	if _, err := strconv.ParseInt(signals[2], 10, 64); err != nil {
		return "", fmt.Errorf("%w: threshold signal must be an integer", common.ErrInvalidSignals)
	}
	return nullifier, nil
}

// recordOutcome appends an audit event outside the verification transaction
// so that failed attempts are kept.
func (s *Service) recordOutcome(ctx context.Context, hash string, ok bool, detail string) {
	if err := s.repoFor(s.db).AppendEvent(ctx, hash, ok, detail); err != nil {
		s.logger.Warn(ctx, "failed to record verification outcome", "hash", hash, "error", err)
	}
}

// BatchVerify verifies each item independently; one invalid proof never
// blocks the rest of the batch.
func (s *Service) BatchVerify(ctx context.Context, items []BatchItem) []BatchResult {
	results := make([]BatchResult, 0, len(items))
	for _, it := range items {
		res := BatchResult{Commitment: it.Commitment}
		if err := s.VerifyProof(ctx, it.Commitment, it.Proof, it.Signals); err != nil {
			res.Error = err.Error()
		} else {
			res.OK = true
		}
		results = append(results, res)
	}
	return results
}

// UseCommitmentTx consumes a verified commitment inside the caller's
// transaction. Engine capability required; a commitment is usable at most
// once.
func (s *Service) UseCommitmentTx(ctx context.Context, tx dbx.DBTX, caller, hash string) error {
	if err := s.acl.Require(ctx, accesscontrol.CapEngine, caller); err != nil {
		return err
	}
	h, err := normalizeHash(hash)
	if err != nil {
		return err
	}

	repo := s.repoFor(tx)
	c, err := repo.GetCommitment(ctx, h)
	if err != nil {
		return err
	}
	if !c.Verified {
		return common.ErrCommitmentNotVerified
	}
	if c.Used {
		return common.ErrCommitmentUsed
	}
	return repo.MarkUsed(ctx, h)
}
