// Package accesscontrol implements the capability map gating privileged
// operations: an explicit capability → set-of-identities relation checked at
// the start of every privileged entry point.
package accesscontrol

// Capabilities known to the system.
const (
	// CapAdmin gates asset registration, verifier configuration,
	// blacklisting, and capability grants.
	CapAdmin = "admin"

	// CapRelayer gates cross-chain lock attestations.
	CapRelayer = "relayer"

	// CapCrossChainVerify gates the trusted direct lock-verification path.
	CapCrossChainVerify = "crosschain.verify"

	// CapEngine gates entry points reserved for the loan engine:
	// reputation reporting and commitment consumption.
	CapEngine = "engine"
)
