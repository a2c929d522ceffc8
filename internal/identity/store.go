package identity

import (
	"context"
	"time"
)

//go:generate mockgen -source=store.go -destination=mocks/store.go -package=mocks

// Store is the persistence contract for patient identities. Implementations
// return sentinel.ErrNotFound for missing rows and sentinel.ErrConflict when
// a conditional update loses its precondition; services translate those into
// domain errors so transport never sees raw store failures.
type Store interface {
	FindByIdentifier(ctx context.Context, identifier string) (PatientIdentity, error)
	FindByID(ctx context.Context, id string) (PatientIdentity, error)
	FindByEmail(ctx context.Context, email string) (PatientIdentity, error)

	// FindUnclaimedByIdentifier looks up a profile matching the identifier
	// AND unclaimed=true in one step. Callers must not distinguish "no such
	// identifier" from "already claimed"; both are ErrNotFound.
	FindUnclaimedByIdentifier(ctx context.Context, identifier string) (PatientIdentity, error)

	InsertUnclaimed(ctx context.Context, p PatientIdentity) error

	// UpdateClaim flips unclaimed to false and sets email and credential hash,
	// conditional on the row still being unclaimed (compare-and-swap). Returns
	// sentinel.ErrConflict when the precondition fails, which is how exactly
	// one of two concurrent claims wins.
	UpdateClaim(ctx context.Context, id, email, credentialHash string, claimedAt time.Time) error

	ListCreatedBy(ctx context.Context, doctorID string) ([]PatientIdentity, error)

	// DeleteUnclaimedOlderThan removes unclaimed profiles created before the
	// cutoff. The unclaimed precondition and the delete share one transactional
	// statement so the job can never delete a profile mid-claim. Returns the
	// number of rows removed.
	DeleteUnclaimedOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
