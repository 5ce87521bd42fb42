// Package crosschain tracks collateral locked on foreign chains. A lock
// becomes visible here either through a quorum of relayer attestations or
// through a single trusted verifier submitting a state proof. Lock ids are
// derived from the lock's content, so independent relayers converge on the
// same candidate without coordination.
package crosschain

import (
	"fmt"
	"time"

	"golang.org/x/crypto/sha3"
)

type Status string

// Locked is the only non-terminal status: a lock ends as either Released
// (collateral returned to its owner) or Seized (handed to a lender).
const (
	StatusLocked   Status = "locked"
	StatusReleased Status = "released"
	StatusSeized   Status = "seized"
)

type Lock struct {
	ID            string
	Owner         string
	AssetID       string
	Amount        int64
	TokenID       int64
	ForeignTxHash string
	Status        Status
	LockedAt      time.Time
	ReleasedAt    *time.Time
	Recipient     string
}

// Attestation is one relayer's vote for a lock candidate. The primary key
// (candidate, relayer) makes repeat votes idempotent.
type Attestation struct {
	CandidateID string
	Relayer     string
	ID          string
	CreatedAt   time.Time
}

// AttestationResult reports the candidate's state after a vote.
type AttestationResult struct {
	LockID       string
	Attestations int
	Materialized bool
}

// ComputeLockID derives the content-addressed lock id.
func ComputeLockID(owner, assetID string, amount int64, foreignTxHash string) string {
	h := sha3.New256()
	fmt.Fprintf(h, "%s|%s|%d|%s", owner, assetID, amount, foreignTxHash)
	return fmt.Sprintf("%x", h.Sum(nil))
}
