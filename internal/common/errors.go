// Package common defines shared sentinel errors used across lendcore
// components. Callers should match these values with errors.Is; the HTTP
// layer maps each group to a status code.
package common

import "errors"

var (
	// Not-found errors.
	ErrNotFound           = errors.New("not found")
	ErrLoanNotFound       = errors.New("loan not found")
	ErrOfferNotFound      = errors.New("offer not found")
	ErrAssetNotFound      = errors.New("asset not found")
	ErrCommitmentNotFound = errors.New("commitment not found")
	ErrLockNotFound       = errors.New("lock not found")

	// Validation errors: rejected before any mutation.
	ErrInvalidTerms         = errors.New("invalid terms")
	ErrAssetNotWhitelisted  = errors.New("asset not whitelisted")
	ErrPrivacyNotConfigured = errors.New("privacy not configured")
	ErrVerifierNotSet       = errors.New("verifier not configured for proof type")
	ErrInvalidSignals       = errors.New("invalid public signals")
	ErrEmptyProof           = errors.New("empty proof")
	ErrAmountExceedsDebt    = errors.New("amount exceeds outstanding debt")

	// Authorization errors: wrong caller for a privileged or
	// party-restricted operation.
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotBorrower  = errors.New("caller is not the borrower")
	ErrNotLender    = errors.New("caller is not the lender")
	ErrSelfFunding  = errors.New("borrower cannot fund own loan")

	// State-conflict errors: entity is not in the required state.
	ErrLoanNotOpen           = errors.New("loan is not open for funding")
	ErrLoanNotActive         = errors.New("loan is not active")
	ErrLoanNotExpired        = errors.New("loan has not expired")
	ErrOfferNotActive        = errors.New("offer is not active")
	ErrOfferExpired          = errors.New("offer has expired")
	ErrOfferLimitReached     = errors.New("active offer limit reached")
	ErrCommitmentExists      = errors.New("commitment already exists")
	ErrCommitmentVerified    = errors.New("commitment already verified")
	ErrCommitmentNotVerified = errors.New("commitment not verified")
	ErrCommitmentUsed        = errors.New("commitment already used")
	ErrNullifierReused       = errors.New("nullifier already used")
	ErrLockNotLocked         = errors.New("lock is not in locked state")
	ErrBlacklisted           = errors.New("account is blacklisted")
	ErrScoreBelowThreshold   = errors.New("reputation score below threshold")
	ErrReentrantCall         = errors.New("reentrant call rejected")

	// Downstream errors: a delegated call failed; the whole operation fails.
	ErrTransferFailed      = errors.New("asset transfer failed")
	ErrProofInvalid        = errors.New("proof verification failed")
	ErrVerifierUnavailable = errors.New("proof verifier unavailable")
	ErrCrossChainRelease   = errors.New("cross-chain release failed")

	// Auth token errors.
	ErrInvalidToken = errors.New("invalid token")
)
