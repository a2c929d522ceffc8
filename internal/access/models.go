package access

import "time"

// GrantStatus is the review state of an access grant. Rows are immutable
// after a decision; the only thing that changes afterwards is the passage of
// time relative to ExpiresAt.
type GrantStatus string

const (
	StatusPending  GrantStatus = "pending"
	StatusApproved GrantStatus = "approved"
	StatusRejected GrantStatus = "rejected"
)

func (s GrantStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Grant is an explicit, time-bound delegation of read access from a patient
// record to a specific doctor. It is distinct from the implicit access a
// doctor has over patients they created. Multiple historical rows may exist
// per (patient, requester) pair.
type Grant struct {
	ID          string
	PatientID   string
	RequesterID string
	Status      GrantStatus
	// ExpiresAt nil means the grant never expires.
	ExpiresAt  *time.Time
	ReviewedBy string
	CreatedAt  time.Time
}

// IsActive reports whether the grant conveys access at the given instant:
// approved and either unexpired or without expiry.
func (g Grant) IsActive(now time.Time) bool {
	if g.Status != StatusApproved {
		return false
	}
	return g.ExpiresAt == nil || g.ExpiresAt.After(now)
}

// ResourceType names the resource kinds this subsystem can authorize.
type ResourceType string

const (
	ResourcePatient       ResourceType = "patient"
	ResourceMedicalRecord ResourceType = "medical_record"
)
