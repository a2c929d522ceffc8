package identity

import "time"

// Role classifies the acting user. Unknown roles get no access anywhere.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// User is the acting principal as established by the auth middleware.
type User struct {
	ID   string
	Role Role
}

// Demographics is the caller-supplied profile data for an unclaimed patient.
// FirstName, LastName and DateOfBirth are required; the rest is optional.
type Demographics struct {
	FirstName   string
	LastName    string
	DateOfBirth string
	Gender      string
	Phone       string
	// NationalID is stored but never projected to any viewer; see
	// guard.SanitizeForViewer.
	NationalID string
}

// PatientIdentity is the patient record tracked by this subsystem.
//
// Invariants:
//   - Identifier is globally unique once assigned.
//   - Unclaimed=false implies Email and CredentialHash are both set.
//   - Unclaimed=true implies Email and CredentialHash are both empty and
//     CreatedByDoctorID is set.
//
// Lifecycle: created unclaimed by a doctor; transitions to claimed at most
// once; deleted only by retention cleanup and only while still unclaimed.
// Self-registered patients start claimed and never pass through the claim or
// cleanup paths.
type PatientIdentity struct {
	ID                string
	Identifier        string
	Unclaimed         bool
	CreatedByDoctorID string
	Email             string
	CredentialHash    string
	Demographics      Demographics
	CreatedAt         time.Time
	ClaimedAt         *time.Time
}

// CreatedBy reports whether the profile was created by the given doctor.
// This is the implicit access path: creators can always read their patients.
func (p PatientIdentity) CreatedBy(doctorID string) bool {
	return doctorID != "" && p.CreatedByDoctorID == doctorID
}
