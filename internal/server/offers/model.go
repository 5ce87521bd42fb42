// Package offers implements the offer book: standing lend and borrow
// intents with parameter ranges, matched into loans through the settlement
// engine.
package offers

import "time"

type Direction string

const (
	// DirectionLend is an offer to fund loans within the stated ranges.
	DirectionLend Direction = "lend"
	// DirectionBorrow is a standing loan request.
	DirectionBorrow Direction = "borrow"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusMatched   Status = "matched"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// CollateralPolicy selects which collateral assets an offer accepts.
type CollateralPolicy string

const (
	// PolicyAny accepts every whitelisted collateral asset.
	PolicyAny CollateralPolicy = "any"
	// PolicyListed accepts only the assets in AcceptedCollateral.
	PolicyListed CollateralPolicy = "listed"
)

type Offer struct {
	ID                 int64
	Creator            string
	Direction          Direction
	AssetID            string
	MinAmount          int64
	MaxAmount          int64
	RateFloorBps       int
	RateCeilingBps     int
	MinDuration        time.Duration
	MaxDuration        time.Duration
	MinReputation      int
	CollateralPolicy   CollateralPolicy
	AcceptedCollateral []string
	AcceptsRWA         bool
	AcceptsCrossChain  bool
	Private            bool
	CreatedAt          time.Time
	ExpiresAt          time.Time
	Status             Status
}

// Query narrows a book listing. Amount and MaxRateBps are zero for "any";
// otherwise an offer matches only when Amount falls inside its amount window
// and its rate floor does not exceed MaxRateBps.
type Query struct {
	AssetID       string
	Direction     Direction
	Amount        int64
	MaxRateBps    int
	MaxReputation int // only offers whose MinReputation <= this
	Limit         int
}
