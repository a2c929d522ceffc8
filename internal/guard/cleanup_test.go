package guard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medgate/internal/identity"
	"medgate/internal/platform/metrics"
	"medgate/pkg/platform/audit"
)

type nopAuditor struct{ events []audit.Event }

func (a *nopAuditor) Emit(_ context.Context, e audit.Event) { a.events = append(a.events, e) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRetentionJob_RunOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	store := identity.NewInMemoryStore()
	auditor := &nopAuditor{}
	job := NewRetentionJob(store, testLogger(), metrics.NewForTest(), auditor, 365,
		WithRetentionClock(fixedClock(now)))

	// 400 days old and unclaimed: deleted.
	require.NoError(t, store.InsertUnclaimed(ctx, identity.PatientIdentity{
		ID: "stale", Identifier: "PAT-20240511-AAAA", Unclaimed: true,
		CreatedAt: now.AddDate(0, 0, -400),
	}))
	// 10 days old: kept.
	require.NoError(t, store.InsertUnclaimed(ctx, identity.PatientIdentity{
		ID: "fresh", Identifier: "PAT-20250605-BBBB", Unclaimed: true,
		CreatedAt: now.AddDate(0, 0, -10),
	}))
	// 400 days old but claimed: kept forever.
	require.NoError(t, store.InsertUnclaimed(ctx, identity.PatientIdentity{
		ID: "veteran", Identifier: "PAT-20240511-CCCC", Unclaimed: true,
		CreatedAt: now.AddDate(0, 0, -400),
	}))
	require.NoError(t, store.UpdateClaim(ctx, "veteran", "v@example.com", "hash", now))

	deleted, err := job.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = store.FindByID(ctx, "stale")
	assert.Error(t, err)
	_, err = store.FindByID(ctx, "fresh")
	assert.NoError(t, err)
	_, err = store.FindByID(ctx, "veteran")
	assert.NoError(t, err)

	require.Len(t, auditor.events, 1)
	assert.Equal(t, audit.EventRetentionCleanup, auditor.events[0].Action)

	// A second pass finds nothing and emits nothing.
	deleted, err = job.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Len(t, auditor.events, 1)
}

type failingRetentionStore struct{}

func (failingRetentionStore) DeleteUnclaimedOlderThan(context.Context, time.Time) (int64, error) {
	return 0, errors.New("db down")
}

func TestRetentionJob_RunOnceSurfacesStoreFailure(t *testing.T) {
	job := NewRetentionJob(failingRetentionStore{}, testLogger(), metrics.NewForTest(), &nopAuditor{}, 365)

	_, err := job.RunOnce(context.Background())
	assert.Error(t, err)
}

func TestRetentionJob_RunStopsOnCancel(t *testing.T) {
	job := NewRetentionJob(identity.NewInMemoryStore(), testLogger(), metrics.NewForTest(), &nopAuditor{}, 365,
		WithInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- job.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("retention job did not stop on context cancellation")
	}
}
