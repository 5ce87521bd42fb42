package reputation

import "context"

type Repository interface {
	// Get returns the record or common.ErrNotFound when the account has no
	// history yet.
	Get(ctx context.Context, account string) (*Record, error)

	// Upsert creates or replaces the account's record.
	Upsert(ctx context.Context, r *Record) error

	// AppendInteraction adds one history entry.
	AppendInteraction(ctx context.Context, in *Interaction) error

	// RecentCounterparties returns the counterparty column of the account's
	// most recent history entries, newest first, up to limit. Duplicates are
	// preserved; callers deduplicate.
	RecentCounterparties(ctx context.Context, account string, limit int) ([]string, error)

	// CreateProof registers a pending proof; common.ErrNullifierReused when
	// the account already registered the nullifier.
	CreateProof(ctx context.Context, p *Proof) error
}
