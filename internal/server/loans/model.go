// Package loans implements the settlement engine: loan lifecycle, escrowed
// collateral, interest accrual, and the hooks into reputation, privacy and
// cross-chain collateral. Every state transition settles atomically with its
// balance movements.
package loans

import "time"

type Status string

const (
	// StatusOpen is a created loan waiting for a lender.
	StatusOpen Status = "open"
	// StatusActive is a funded loan accruing interest.
	StatusActive Status = "active"
	// StatusRepaid, StatusDefaulted and StatusCancelled are terminal.
	StatusRepaid    Status = "repaid"
	StatusDefaulted Status = "defaulted"
	StatusCancelled Status = "cancelled"
)

// CollateralKind selects how the collateral is held and settled.
type CollateralKind string

const (
	// KindFungible escrows a fungible amount.
	KindFungible CollateralKind = "fungible"
	// KindNFT escrows a single non-fungible token.
	KindNFT CollateralKind = "nft"
	// KindMultiEdition escrows a quantity of one edition; editions settle
	// like fungible balances on the edition's asset id.
	KindMultiEdition CollateralKind = "multi_edition"
	// KindCrossChain references a lock held by the cross-chain coordinator
	// instead of local custody.
	KindCrossChain CollateralKind = "cross_chain"
)

// Collateral describes what backs a loan. Exactly one shape applies per
// kind: Amount for fungible and multi-edition, TokenID for NFTs, LockID for
// cross-chain.
type Collateral struct {
	Kind    CollateralKind
	AssetID string
	TokenID int64
	Amount  int64
	LockID  string
}

// Terms are the borrower-chosen parameters of a loan request.
type Terms struct {
	PrincipalAsset string
	Principal      int64
	RateBps        int
	Duration       time.Duration
	Collateral     Collateral
	Private        bool
	CommitmentRef  string
}

type Loan struct {
	ID        int64
	Borrower  string
	Lender    string
	Terms     Terms
	Status    Status
	StartedAt *time.Time
	Repaid    int64
	CreatedAt time.Time
}

// Event kinds recorded in the loan's audit trail.
const (
	EventCreated   = "created"
	EventFunded    = "funded"
	EventRepayment = "repayment"
	EventRepaid    = "repaid"
	EventDefaulted = "defaulted"
	EventCancelled = "cancelled"
)

type Event struct {
	ID        int64     `json:"id"`
	LoanID    int64     `json:"loan_id"`
	Kind      string    `json:"kind"`
	Actor     string    `json:"actor"`
	Amount    int64     `json:"amount,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
