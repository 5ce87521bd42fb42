package crosschain

import "context"

type Repository interface {
	// CreateLock inserts the lock if absent and reports whether a row was
	// created. Repeat submissions of the same lock are no-ops.
	CreateLock(ctx context.Context, l *Lock) (bool, error)

	// GetLock returns the lock or common.ErrLockNotFound.
	GetLock(ctx context.Context, id string) (*Lock, error)

	// TransitionLock moves id from StatusLocked to the terminal status and
	// records the recipient; common.ErrLockNotLocked when the lock is not in
	// StatusLocked.
	TransitionLock(ctx context.Context, id string, to Status, recipient string) error

	// AddAttestation records a relayer vote and reports whether it was new.
	AddAttestation(ctx context.Context, a *Attestation) (bool, error)

	// CountAttestations returns the number of distinct relayer votes for the
	// candidate.
	CountAttestations(ctx context.Context, candidateID string) (int, error)
}
