package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medgate/pkg/platform/sentinel"
)

func seedPatient(t *testing.T, s *InMemoryStore, p PatientIdentity) PatientIdentity {
	t.Helper()
	require.NoError(t, s.InsertUnclaimed(context.Background(), p))
	return p
}

func TestInMemoryStore_FindUnclaimedByIdentifier(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	p := seedPatient(t, s, PatientIdentity{
		ID:         "id-1",
		Identifier: "PAT-20250601-A1B2",
		Unclaimed:  true,
		CreatedAt:  time.Now(),
	})

	got, err := s.FindUnclaimedByIdentifier(ctx, p.Identifier)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	// After the claim, the same lookup behaves exactly like a miss.
	require.NoError(t, s.UpdateClaim(ctx, p.ID, "a@example.com", "hash", time.Now()))
	_, errClaimed := s.FindUnclaimedByIdentifier(ctx, p.Identifier)
	_, errMissing := s.FindUnclaimedByIdentifier(ctx, "PAT-20250601-FFFF")
	assert.ErrorIs(t, errClaimed, sentinel.ErrNotFound)
	assert.ErrorIs(t, errMissing, sentinel.ErrNotFound)
}

func TestInMemoryStore_UpdateClaimPrecondition(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	p := seedPatient(t, s, PatientIdentity{
		ID:         "id-1",
		Identifier: "PAT-20250601-A1B2",
		Unclaimed:  true,
	})

	require.NoError(t, s.UpdateClaim(ctx, p.ID, "a@example.com", "hash", time.Now()))

	err := s.UpdateClaim(ctx, p.ID, "b@example.com", "hash2", time.Now())
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	err = s.UpdateClaim(ctx, "no-such-id", "c@example.com", "hash3", time.Now())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	// The losing update left nothing behind.
	got, err := s.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", got.Email)
}

func TestInMemoryStore_UpdateClaimRejectsTakenEmail(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	first := seedPatient(t, s, PatientIdentity{ID: "id-1", Identifier: "PAT-20250601-A1B2", Unclaimed: true})
	second := seedPatient(t, s, PatientIdentity{ID: "id-2", Identifier: "PAT-20250601-C3D4", Unclaimed: true})

	require.NoError(t, s.UpdateClaim(ctx, first.ID, "taken@example.com", "hash", time.Now()))

	err := s.UpdateClaim(ctx, second.ID, "Taken@Example.com", "hash2", time.Now())
	assert.ErrorIs(t, err, sentinel.ErrDuplicate)

	// The rejected claim left the second profile untouched.
	got, err := s.FindByID(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, got.Unclaimed)
}

func TestInMemoryStore_InsertRejectsDuplicateIdentifier(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	seedPatient(t, s, PatientIdentity{ID: "id-1", Identifier: "PAT-20250601-A1B2", Unclaimed: true})

	err := s.InsertUnclaimed(ctx, PatientIdentity{ID: "id-2", Identifier: "PAT-20250601-A1B2", Unclaimed: true})
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestInMemoryStore_DeleteUnclaimedOlderThan(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	now := time.Now()

	seedPatient(t, s, PatientIdentity{ID: "old-unclaimed", Identifier: "PAT-20240101-AAAA", Unclaimed: true, CreatedAt: now.AddDate(0, 0, -400)})
	seedPatient(t, s, PatientIdentity{ID: "new-unclaimed", Identifier: "PAT-20250601-BBBB", Unclaimed: true, CreatedAt: now.AddDate(0, 0, -10)})
	old := seedPatient(t, s, PatientIdentity{ID: "old-claimed", Identifier: "PAT-20240101-CCCC", Unclaimed: true, CreatedAt: now.AddDate(0, 0, -400)})
	require.NoError(t, s.UpdateClaim(ctx, old.ID, "kept@example.com", "hash", now))

	deleted, err := s.DeleteUnclaimedOlderThan(ctx, now.AddDate(0, 0, -365))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = s.FindByID(ctx, "old-unclaimed")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	_, err = s.FindByID(ctx, "new-unclaimed")
	assert.NoError(t, err)
	_, err = s.FindByID(ctx, "old-claimed")
	assert.NoError(t, err, "claimed profiles are never retention-deleted")
}

func TestInMemoryStore_ListCreatedBy(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	seedPatient(t, s, PatientIdentity{ID: "p1", Identifier: "PAT-20250601-AAAA", CreatedByDoctorID: "doc-1"})
	seedPatient(t, s, PatientIdentity{ID: "p2", Identifier: "PAT-20250601-BBBB", CreatedByDoctorID: "doc-2"})

	out, err := s.ListCreatedBy(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "p1", out[0].ID)
}
