package guard

import "medgate/internal/identity"

// PatientView is the projection of a patient record a viewer is allowed to
// see. It is built field by field from an allowlist; credential material and
// the national id never appear in this struct at all, so adding a sensitive
// field to the entity cannot silently leak it here.
type PatientView struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Unclaimed bool   `json:"isUnclaimed"`

	// Clinical fields, populated only for doctor and admin viewers.
	Identifier        string `json:"patientIdentifier,omitempty"`
	CreatedByDoctorID string `json:"createdByDoctorId,omitempty"`
	DateOfBirth       string `json:"dateOfBirth,omitempty"`
	Gender            string `json:"gender,omitempty"`
	Phone             string `json:"phone,omitempty"`
	Email             string `json:"email,omitempty"`
}

// SanitizeForViewer projects a patient record down to what the viewer's role
// may see. Doctors and admins get demographics and the operational fields,
// including the identifier and creator linkage while the profile is
// unclaimed; every other role gets the minimal public subset.
func SanitizeForViewer(p identity.PatientIdentity, viewerRole identity.Role) PatientView {
	view := PatientView{
		ID:        p.ID,
		FirstName: p.Demographics.FirstName,
		LastName:  p.Demographics.LastName,
		Unclaimed: p.Unclaimed,
	}

	switch viewerRole {
	case identity.RoleDoctor, identity.RoleAdmin:
		view.DateOfBirth = p.Demographics.DateOfBirth
		view.Gender = p.Demographics.Gender
		view.Phone = p.Demographics.Phone
		view.Email = p.Email
		view.Identifier = p.Identifier
		if p.Unclaimed {
			view.CreatedByDoctorID = p.CreatedByDoctorID
		}
	}
	return view
}
