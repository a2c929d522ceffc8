package access_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medgate/internal/access"
	"medgate/internal/identity"
	"medgate/internal/platform/metrics"
	"medgate/internal/records"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type resolverFixture struct {
	ctx      context.Context
	patients *identity.InMemoryStore
	grants   *access.InMemoryGrantStore
	records  *records.InMemoryStore
	resolver *access.Resolver
	now      time.Time
}

func newResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()
	f := &resolverFixture{
		ctx:      context.Background(),
		patients: identity.NewInMemoryStore(),
		grants:   access.NewInMemoryGrantStore(),
		records:  records.NewInMemoryStore(),
		now:      time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
	}
	f.resolver = access.NewResolver(f.patients, f.grants, f.records, discardLogger(), metrics.NewForTest(),
		access.WithResolverClock(func() time.Time { return f.now }))
	return f
}

func (f *resolverFixture) addPatient(t *testing.T, id, lastName, doctorID string) {
	t.Helper()
	require.NoError(t, f.patients.InsertUnclaimed(f.ctx, identity.PatientIdentity{
		ID:                id,
		Identifier:        "PAT-20250601-" + id[len(id)-4:],
		Unclaimed:         true,
		CreatedByDoctorID: doctorID,
		Demographics:      identity.Demographics{FirstName: "Pat", LastName: lastName, DateOfBirth: "1990-01-01"},
		CreatedAt:         f.now,
	}))
}

func (f *resolverFixture) addGrant(t *testing.T, patientID, doctorID string, status access.GrantStatus, expiresAt *time.Time) {
	t.Helper()
	require.NoError(t, f.grants.Insert(f.ctx, access.Grant{
		ID:          "grant-" + patientID + "-" + doctorID + "-" + string(status),
		PatientID:   patientID,
		RequesterID: doctorID,
		Status:      status,
		ExpiresAt:   expiresAt,
		CreatedAt:   f.now,
	}))
}

func TestDoctorHasAccessToPatient(t *testing.T) {
	t.Run("creator has access with zero grants", func(t *testing.T) {
		f := newResolverFixture(t)
		f.addPatient(t, "pat-aaaa", "Ng", "doc-1")
		assert.True(t, f.resolver.DoctorHasAccessToPatient(f.ctx, "doc-1", "pat-aaaa"))
	})

	t.Run("non-creator without a grant is denied", func(t *testing.T) {
		f := newResolverFixture(t)
		f.addPatient(t, "pat-aaaa", "Ng", "doc-1")
		assert.False(t, f.resolver.DoctorHasAccessToPatient(f.ctx, "doc-2", "pat-aaaa"))
	})

	t.Run("approved unexpired grant gives access", func(t *testing.T) {
		f := newResolverFixture(t)
		f.addPatient(t, "pat-aaaa", "Ng", "doc-1")
		exp := f.now.Add(24 * time.Hour)
		f.addGrant(t, "pat-aaaa", "doc-2", access.StatusApproved, &exp)
		assert.True(t, f.resolver.DoctorHasAccessToPatient(f.ctx, "doc-2", "pat-aaaa"))
	})

	t.Run("approved grant with no expiry never lapses", func(t *testing.T) {
		f := newResolverFixture(t)
		f.addPatient(t, "pat-aaaa", "Ng", "doc-1")
		f.addGrant(t, "pat-aaaa", "doc-2", access.StatusApproved, nil)
		assert.True(t, f.resolver.DoctorHasAccessToPatient(f.ctx, "doc-2", "pat-aaaa"))
	})

	t.Run("pending and rejected grants give nothing", func(t *testing.T) {
		f := newResolverFixture(t)
		f.addPatient(t, "pat-aaaa", "Ng", "doc-1")
		f.addGrant(t, "pat-aaaa", "doc-2", access.StatusPending, nil)
		f.addGrant(t, "pat-aaaa", "doc-3", access.StatusRejected, nil)
		assert.False(t, f.resolver.DoctorHasAccessToPatient(f.ctx, "doc-2", "pat-aaaa"))
		assert.False(t, f.resolver.DoctorHasAccessToPatient(f.ctx, "doc-3", "pat-aaaa"))
	})

	t.Run("expired grant is dead", func(t *testing.T) {
		f := newResolverFixture(t)
		f.addPatient(t, "pat-aaaa", "Ng", "doc-1")
		exp := f.now.Add(-time.Minute)
		f.addGrant(t, "pat-aaaa", "doc-2", access.StatusApproved, &exp)
		assert.False(t, f.resolver.DoctorHasAccessToPatient(f.ctx, "doc-2", "pat-aaaa"))
	})

	t.Run("unknown patient is denied", func(t *testing.T) {
		f := newResolverFixture(t)
		assert.False(t, f.resolver.DoctorHasAccessToPatient(f.ctx, "doc-1", "pat-none"))
	})
}

func TestListAccessiblePatients(t *testing.T) {
	t.Run("union of created and granted, deduplicated and sorted", func(t *testing.T) {
		f := newResolverFixture(t)
		f.addPatient(t, "pat-aaaa", "Zhou", "doc-1")
		f.addPatient(t, "pat-bbbb", "Abara", "doc-2")
		f.addPatient(t, "pat-cccc", "Meyer", "doc-2")
		// Grant on a patient doc-1 also created: must not duplicate.
		f.addGrant(t, "pat-aaaa", "doc-1", access.StatusApproved, nil)
		f.addGrant(t, "pat-bbbb", "doc-1", access.StatusApproved, nil)
		// Rejected grant contributes nothing.
		f.addGrant(t, "pat-cccc", "doc-1", access.StatusRejected, nil)

		out, err := f.resolver.ListAccessiblePatients(f.ctx, "doc-1")
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, "Abara", out[0].Demographics.LastName)
		assert.Equal(t, "Zhou", out[1].Demographics.LastName)
	})

	t.Run("grant outliving the profile is skipped", func(t *testing.T) {
		f := newResolverFixture(t)
		f.addGrant(t, "pat-gone", "doc-1", access.StatusApproved, nil)

		out, err := f.resolver.ListAccessiblePatients(f.ctx, "doc-1")
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("doctor with nothing sees nothing", func(t *testing.T) {
		f := newResolverFixture(t)
		out, err := f.resolver.ListAccessiblePatients(f.ctx, "doc-9")
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}

func TestBuildAccessFilter(t *testing.T) {
	f := newResolverFixture(t)
	f.addPatient(t, "pat-aaaa", "Ng", "doc-1")
	f.addPatient(t, "pat-bbbb", "Diaz", "doc-2")

	t.Run("patient sees only themself", func(t *testing.T) {
		filter := f.resolver.BuildAccessFilter(f.ctx, identity.User{ID: "pat-aaaa", Role: identity.RolePatient}, "")
		assert.True(t, filter.Matches("pat-aaaa"))
		assert.False(t, filter.Matches("pat-bbbb"))
	})

	t.Run("patient asking for someone else gets nothing", func(t *testing.T) {
		filter := f.resolver.BuildAccessFilter(f.ctx, identity.User{ID: "pat-aaaa", Role: identity.RolePatient}, "pat-bbbb")
		assert.Equal(t, access.ScopeNone, filter.Scope)
	})

	t.Run("doctor filter covers accessible patients only", func(t *testing.T) {
		filter := f.resolver.BuildAccessFilter(f.ctx, identity.User{ID: "doc-1", Role: identity.RoleDoctor}, "")
		assert.True(t, filter.Matches("pat-aaaa"))
		assert.False(t, filter.Matches("pat-bbbb"))
	})

	t.Run("doctor narrowed to a denied target gets none", func(t *testing.T) {
		filter := f.resolver.BuildAccessFilter(f.ctx, identity.User{ID: "doc-1", Role: identity.RoleDoctor}, "pat-bbbb")
		assert.Equal(t, access.ScopeNone, filter.Scope)
	})

	t.Run("admin is unrestricted", func(t *testing.T) {
		filter := f.resolver.BuildAccessFilter(f.ctx, identity.User{ID: "adm-1", Role: identity.RoleAdmin}, "")
		assert.Equal(t, access.ScopeAll, filter.Scope)
		assert.True(t, filter.Matches("pat-bbbb"))
	})

	t.Run("unknown role matches nothing", func(t *testing.T) {
		filter := f.resolver.BuildAccessFilter(f.ctx, identity.User{ID: "x", Role: identity.Role("intern")}, "")
		assert.Equal(t, access.ScopeNone, filter.Scope)
	})
}

func TestCanAccessResource(t *testing.T) {
	f := newResolverFixture(t)
	f.addPatient(t, "pat-aaaa", "Ng", "doc-1")
	rec, err := records.NewRecordEntry("pat-aaaa", f.now)
	require.NoError(t, err)
	require.NoError(t, f.records.Insert(f.ctx, rec))

	doctor := identity.User{ID: "doc-1", Role: identity.RoleDoctor}
	stranger := identity.User{ID: "doc-2", Role: identity.RoleDoctor}
	owner := identity.User{ID: "pat-aaaa", Role: identity.RolePatient}

	t.Run("record resolves to its owning patient", func(t *testing.T) {
		assert.True(t, f.resolver.CanAccessResource(f.ctx, doctor, access.ResourceMedicalRecord, rec.ID))
		assert.True(t, f.resolver.CanAccessResource(f.ctx, owner, access.ResourceMedicalRecord, rec.ID))
		assert.False(t, f.resolver.CanAccessResource(f.ctx, stranger, access.ResourceMedicalRecord, rec.ID))
	})

	t.Run("unknown record denies", func(t *testing.T) {
		assert.False(t, f.resolver.CanAccessResource(f.ctx, doctor, access.ResourceMedicalRecord, "rec-none"))
	})

	t.Run("patient resource goes straight to the patient check", func(t *testing.T) {
		assert.True(t, f.resolver.CanAccessResource(f.ctx, owner, access.ResourcePatient, "pat-aaaa"))
		assert.False(t, f.resolver.CanAccessResource(f.ctx, owner, access.ResourcePatient, "pat-bbbb"))
	})

	t.Run("unknown resource type denies", func(t *testing.T) {
		assert.False(t, f.resolver.CanAccessResource(f.ctx, doctor, access.ResourceType("appointment"), "x"))
	})
}
