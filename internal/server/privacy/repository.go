package privacy

import "context"

type Repository interface {
	// CreateCommitment inserts a new commitment;
	// common.ErrCommitmentExists on duplicate hash.
	CreateCommitment(ctx context.Context, c *Commitment) error

	// GetCommitment returns the entry or common.ErrCommitmentNotFound.
	GetCommitment(ctx context.Context, hash string) (*Commitment, error)

	// MarkVerified flips verified once;
	// common.ErrCommitmentVerified when already verified.
	MarkVerified(ctx context.Context, hash string) error

	// MarkUsed flips used once on a verified commitment; the caller checks
	// state first, so a zero-row update is reported as a conflict.
	MarkUsed(ctx context.Context, hash string) error

	// AppendEvent records a verification outcome for audit.
	AppendEvent(ctx context.Context, hash string, ok bool, detail string) error

	// UseNullifier consumes a nullifier exactly once;
	// common.ErrNullifierReused on a second use.
	UseNullifier(ctx context.Context, hash, account string) error

	// GetVerifier returns the proof-type binding or common.ErrVerifierNotSet.
	GetVerifier(ctx context.Context, proofType string) (*VerifierConfig, error)

	// UpsertVerifier creates or replaces a proof-type binding.
	UpsertVerifier(ctx context.Context, cfg *VerifierConfig) error
}
