package guard

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medgate/internal/identity"
)

func samplePatient(unclaimed bool) identity.PatientIdentity {
	claimed := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	p := identity.PatientIdentity{
		ID:                "pat-1",
		Identifier:        "PAT-20250601-A1B2",
		Unclaimed:         unclaimed,
		CreatedByDoctorID: "doc-1",
		Email:             "ada@example.com",
		CredentialHash:    "$2a$10$secret-hash",
		Demographics: identity.Demographics{
			FirstName:   "Ada",
			LastName:    "Lovelace",
			DateOfBirth: "1990-03-14",
			Gender:      "female",
			Phone:       "+31-600000000",
			NationalID:  "NL-123456789",
		},
		CreatedAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	if !unclaimed {
		p.ClaimedAt = &claimed
	}
	return p
}

func TestSanitizeForViewer_Patient(t *testing.T) {
	view := SanitizeForViewer(samplePatient(false), identity.RolePatient)

	assert.Equal(t, "pat-1", view.ID)
	assert.Equal(t, "Ada", view.FirstName)
	assert.Equal(t, "Lovelace", view.LastName)
	assert.Empty(t, view.Identifier)
	assert.Empty(t, view.DateOfBirth)
	assert.Empty(t, view.Phone)
	assert.Empty(t, view.Email)
	assert.Empty(t, view.CreatedByDoctorID)
}

func TestSanitizeForViewer_DoctorAndAdmin(t *testing.T) {
	for _, role := range []identity.Role{identity.RoleDoctor, identity.RoleAdmin} {
		t.Run(string(role), func(t *testing.T) {
			view := SanitizeForViewer(samplePatient(false), role)
			assert.Equal(t, "PAT-20250601-A1B2", view.Identifier)
			assert.Equal(t, "1990-03-14", view.DateOfBirth)
			assert.Equal(t, "ada@example.com", view.Email)
		})
	}
}

func TestSanitizeForViewer_CreatorLinkageOnlyWhileUnclaimed(t *testing.T) {
	unclaimed := SanitizeForViewer(samplePatient(true), identity.RoleDoctor)
	assert.Equal(t, "doc-1", unclaimed.CreatedByDoctorID)

	claimed := SanitizeForViewer(samplePatient(false), identity.RoleDoctor)
	assert.Empty(t, claimed.CreatedByDoctorID)
}

// The serialized view must never contain credential material, the national
// id, or any key outside the allowlist, for any role.
func TestSanitizeForViewer_SerializedAllowlist(t *testing.T) {
	allowed := map[string]struct{}{
		"id": {}, "firstName": {}, "lastName": {}, "isUnclaimed": {},
		"patientIdentifier": {}, "createdByDoctorId": {}, "dateOfBirth": {},
		"gender": {}, "phone": {}, "email": {},
	}

	for _, role := range []identity.Role{identity.RolePatient, identity.RoleDoctor, identity.RoleAdmin, identity.Role("unknown")} {
		for _, unclaimed := range []bool{true, false} {
			raw, err := json.Marshal(SanitizeForViewer(samplePatient(unclaimed), role))
			require.NoError(t, err)

			var keys map[string]any
			require.NoError(t, json.Unmarshal(raw, &keys))
			for k, v := range keys {
				_, ok := allowed[k]
				assert.True(t, ok, "unexpected key %q for role %s", k, role)
				if s, isString := v.(string); isString {
					assert.NotContains(t, s, "secret-hash")
					assert.NotContains(t, s, "NL-123456789")
				}
			}
		}
	}
}
