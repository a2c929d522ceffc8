//go:build integration

package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"medgate/internal/identity"
	"medgate/internal/platform/database"
	"medgate/pkg/platform/sentinel"
	"medgate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *identity.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration suite in -short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	pg := containers.NewPostgresContainer(s.T())
	s.T().Cleanup(func() { _ = pg.Terminate(context.Background()) })

	require.NoError(s.T(), database.RunMigrations(pg.URL))
	pool, err := database.NewPool(s.ctx, pg.URL)
	require.NoError(s.T(), err)
	s.T().Cleanup(pool.Close)

	s.store = identity.NewPostgresStore(pool)
}

func (s *PostgresStoreSuite) newPatient(suffix string) identity.PatientIdentity {
	return identity.PatientIdentity{
		ID:                "00000000-0000-0000-0000-00000000" + suffix,
		Identifier:        "PAT-20250601-" + suffix,
		Unclaimed:         true,
		CreatedByDoctorID: "11111111-1111-1111-1111-111111111111",
		Demographics: identity.Demographics{
			FirstName:   "Ada",
			LastName:    "Lovelace",
			DateOfBirth: "1990-03-14",
		},
		CreatedAt: time.Now().UTC(),
	}
}

func (s *PostgresStoreSuite) TestInsertAndLookups() {
	p := s.newPatient("A001")
	require.NoError(s.T(), s.store.InsertUnclaimed(s.ctx, p))

	got, err := s.store.FindByIdentifier(s.ctx, p.Identifier)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), p.ID, got.ID)
	assert.True(s.T(), got.Unclaimed)
	assert.Empty(s.T(), got.Email)

	got, err = s.store.FindUnclaimedByIdentifier(s.ctx, p.Identifier)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), p.ID, got.ID)

	err = s.store.InsertUnclaimed(s.ctx, s.newPatient("A001"))
	assert.ErrorIs(s.T(), err, sentinel.ErrConflict, "duplicate identifier violates the unique index")
}

func (s *PostgresStoreSuite) TestClaimCompareAndSwap() {
	p := s.newPatient("B001")
	require.NoError(s.T(), s.store.InsertUnclaimed(s.ctx, p))

	claimedAt := time.Now().UTC()
	require.NoError(s.T(), s.store.UpdateClaim(s.ctx, p.ID, "ada@example.com", "hash", claimedAt))

	// The precondition already failed; the second claim loses.
	err := s.store.UpdateClaim(s.ctx, p.ID, "other@example.com", "hash2", claimedAt)
	assert.ErrorIs(s.T(), err, sentinel.ErrConflict)

	got, err := s.store.FindByEmail(s.ctx, "ada@example.com")
	require.NoError(s.T(), err)
	assert.False(s.T(), got.Unclaimed)
	require.NotNil(s.T(), got.ClaimedAt)

	_, err = s.store.FindUnclaimedByIdentifier(s.ctx, p.Identifier)
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestRetentionDelete() {
	old := s.newPatient("C001")
	old.CreatedAt = time.Now().UTC().AddDate(0, 0, -400)
	require.NoError(s.T(), s.store.InsertUnclaimed(s.ctx, old))

	fresh := s.newPatient("C002")
	require.NoError(s.T(), s.store.InsertUnclaimed(s.ctx, fresh))

	deleted, err := s.store.DeleteUnclaimedOlderThan(s.ctx, time.Now().UTC().AddDate(0, 0, -365))
	require.NoError(s.T(), err)
	assert.GreaterOrEqual(s.T(), deleted, int64(1))

	_, err = s.store.FindByID(s.ctx, old.ID)
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
	_, err = s.store.FindByID(s.ctx, fresh.ID)
	assert.NoError(s.T(), err)
}
