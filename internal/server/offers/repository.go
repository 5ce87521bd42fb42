package offers

import (
	"context"
	"time"
)

type Repository interface {
	// Create inserts the offer and fills in its id.
	Create(ctx context.Context, o *Offer) error

	// Get returns the offer or common.ErrOfferNotFound.
	Get(ctx context.Context, id int64) (*Offer, error)

	// FindMatching lists active, unexpired offers matching the query, best
	// rate first.
	FindMatching(ctx context.Context, q *Query, now time.Time) ([]*Offer, error)

	// CountActiveByCreator returns the creator's active offer count.
	CountActiveByCreator(ctx context.Context, creator string) (int, error)

	// Transition moves id from one status to another;
	// common.ErrOfferNotActive when the offer is not in from.
	Transition(ctx context.Context, id int64, from, to Status) error

	// ExpireBefore marks active offers with expires_at <= now as expired and
	// returns how many were swept.
	ExpireBefore(ctx context.Context, now time.Time) (int64, error)

	// ExpireByIDs is ExpireBefore restricted to the given offers.
	ExpireByIDs(ctx context.Context, ids []int64, now time.Time) (int64, error)
}
