// Package assets implements the asset registry: which assets may be used as
// principal or collateral, their category, minimum collateral ratio, and
// privacy / cross-chain eligibility.
package assets

import "time"

// Category classifies a registered asset.
type Category string

const (
	CategoryStablecoin Category = "stablecoin"
	CategoryCrypto     Category = "crypto"
	CategoryRWA        Category = "rwa"
	CategoryNFT        Category = "nft"
	CategoryForeign    Category = "foreign"
)

// Asset is one registry entry.
type Asset struct {
	ID                    string
	Symbol                string
	Category              Category
	Whitelisted           bool
	MinCollateralRatioBps int
	PrivacyEligible       bool
	CrossChainEligible    bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
