// Package reputation implements the per-account reputation ledger: raw
// counters, the derived score and tier, the blacklist flag, and pending
// reputation proofs. Scores are recomputed only on counter-mutating events or
// explicit recompute, never on read.
package reputation

import "time"

// Tier is the ordered reputation bracket derived from a score.
type Tier string

const (
	TierNone     Tier = "none"
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
	TierDiamond  Tier = "diamond"
)

// TierForScore maps a score in [0,1000] to its bracket.
func TierForScore(score int) Tier {
	switch {
	case score >= 1000:
		return TierDiamond
	case score >= 500:
		return TierPlatinum
	case score >= 250:
		return TierGold
	case score >= 100:
		return TierSilver
	case score >= 50:
		return TierBronze
	default:
		return TierNone
	}
}

// Record holds one account's counters and derived standing.
type Record struct {
	Account        string
	LoansCreated   int
	LoansRepaid    int
	LoansDefaulted int
	BorrowedVolume int64
	LentVolume     int64
	RepaidVolume   int64
	Score          int
	Tier           Tier
	Blacklisted    bool
	UpdatedAt      time.Time
}

// Interaction kinds recorded in the append-only history.
const (
	InteractionCreated   = "created"
	InteractionFunded    = "funded"
	InteractionRepaid    = "repaid"
	InteractionDefaulted = "defaulted"
)

// Interaction is one append-only history entry for an account.
type Interaction struct {
	ID           int64
	Account      string
	Counterparty string
	LoanID       int64
	Kind         string
	Amount       int64
	CreatedAt    time.Time
}

// Proof is a pending reputation proof registered for later verification by
// the privacy gateway.
type Proof struct {
	ID         int64
	Account    string
	Commitment string
	Nullifier  string
	Threshold  int
	CreatedAt  time.Time
}
