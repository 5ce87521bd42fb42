// Package custody models the asset custody primitive the engine settles
// against: debit/credit an account by asset and quantity. The engine treats
// every transfer as atomic; because custody rows are written inside the same
// transaction as the engine's own state, a failed transfer rolls back the
// whole operation.
package custody

import "context"

// Ledger moves balances between accounts. Implementations must leave no
// partial state behind on failure.
type Ledger interface {
	// Transfer moves a fungible amount; common.ErrTransferFailed when the
	// sender's balance is insufficient.
	Transfer(ctx context.Context, from, to, assetID string, amount int64) error

	// TransferToken moves one non-fungible token; common.ErrTransferFailed
	// when from does not own it.
	TransferToken(ctx context.Context, from, to, assetID string, tokenID int64) error

	// Credit mints a fungible amount into an account.
	Credit(ctx context.Context, account, assetID string, amount int64) error

	// MintToken mints one non-fungible token into an account.
	MintToken(ctx context.Context, account, assetID string, tokenID int64) error

	// Balance returns the fungible balance (0 when no row exists).
	Balance(ctx context.Context, account, assetID string) (int64, error)

	// TokenOwner returns the owner of a token or common.ErrNotFound.
	TokenOwner(ctx context.Context, assetID string, tokenID int64) (string, error)
}
