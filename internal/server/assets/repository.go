package assets

import "context"

type Repository interface {
	// Upsert creates or replaces a registry entry by asset id.
	Upsert(ctx context.Context, a *Asset) error

	// Get returns the entry or common.ErrAssetNotFound.
	Get(ctx context.Context, id string) (*Asset, error)

	// SetWhitelisted flips the whitelist flag; common.ErrAssetNotFound when missing.
	SetWhitelisted(ctx context.Context, id string, whitelisted bool) error

	// List returns all registry entries in id order.
	List(ctx context.Context) ([]*Asset, error)
}
