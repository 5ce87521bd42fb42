// Package privacy implements the commitment and nullifier registries and the
// verification flow for externally produced zero-knowledge proofs. The
// gateway never learns private values: commitments are opaque 256-bit hashes
// chosen by clients, and pairing checks are delegated to a pluggable
// per-proof-type verifier.
package privacy

import "time"

// Proof types accepted by the gateway. They mirror the circuits of the
// external proof service.
const (
	ProofTypeReputation      = "reputation"
	ProofTypeLoanAmount      = "loan_amount"
	ProofTypeCollateralValue = "collateral_value"
)

// KnownProofType reports whether t names a supported circuit.
func KnownProofType(t string) bool {
	switch t {
	case ProofTypeReputation, ProofTypeLoanAmount, ProofTypeCollateralValue:
		return true
	}
	return false
}

// Commitment is one registry entry. Verified and Used each flip to true at
// most once and never reset.
type Commitment struct {
	Hash       string
	Creator    string
	ProofType  string
	Verified   bool
	Used       bool
	CreatedAt  time.Time
	VerifiedAt *time.Time
}

// Nullifier marks one underlying secret as spent: a consumed nullifier can
// never back a second proof.
type Nullifier struct {
	Hash    string
	Account string
	UsedAt  time.Time
}

// VerifierConfig is the per-proof-type verifier binding: where to send the
// pairing check and the accepted public-input count range.
type VerifierConfig struct {
	ProofType  string
	Handle     string
	MinSignals int
	MaxSignals int
}

// Proof carries the Groth16-style proof points as opaque strings.
type Proof struct {
	A [2]string    `json:"a"`
	B [2][2]string `json:"b"`
	C [2]string    `json:"c"`
}

// BatchItem is one entry of a batch verification request.
type BatchItem struct {
	Commitment string   `json:"commitment"`
	Proof      Proof    `json:"proof"`
	Signals    []string `json:"public_signals"`
}

// BatchResult reports the outcome for one batch item.
type BatchResult struct {
	Commitment string `json:"commitment"`
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
}
