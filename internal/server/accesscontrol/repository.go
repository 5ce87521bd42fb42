package accesscontrol

import "context"

type Repository interface {
	// Grant records that account holds capability. Granting twice is a no-op.
	Grant(ctx context.Context, capability, account string) error

	// Revoke removes a grant. Revoking a missing grant is a no-op.
	Revoke(ctx context.Context, capability, account string) error

	// Has reports whether account holds capability.
	Has(ctx context.Context, capability, account string) (bool, error)
}
