package access

import (
	"context"
	"time"

	"medgate/internal/identity"
)

//go:generate mockgen -source=store.go -destination=mocks/store.go -package=mocks

// GrantStore is the persistence contract for access grants.
type GrantStore interface {
	Insert(ctx context.Context, grant Grant) error
	Get(ctx context.Context, id string) (Grant, error)

	// UpdateStatus records the review decision. It only applies to pending
	// rows; decided rows are immutable.
	UpdateStatus(ctx context.Context, id string, status GrantStatus, reviewedBy string, expiresAt *time.Time) error

	// ListApprovedForDoctor returns every approved grant held by the doctor,
	// expired ones included; activity is evaluated by the resolver against
	// its own clock.
	ListApprovedForDoctor(ctx context.Context, doctorID string) ([]Grant, error)
	ListForPatient(ctx context.Context, patientID string) ([]Grant, error)
}

// PatientDirectory is the narrow view of the identity store the resolver
// needs: creator linkage and record lookups, nothing else.
type PatientDirectory interface {
	FindByID(ctx context.Context, id string) (identity.PatientIdentity, error)
	ListCreatedBy(ctx context.Context, doctorID string) ([]identity.PatientIdentity, error)
}

// RecordDirectory resolves a medical record to its owning patient. The
// resolver follows exactly this one level of indirection and no deeper.
type RecordDirectory interface {
	OwnerOfRecord(ctx context.Context, recordID string) (string, error)
}
