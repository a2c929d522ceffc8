//go:build integration

package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medgate/internal/ratelimit"
	"medgate/pkg/testutil/containers"
)

func TestRedisStore_SlidingWindow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in -short mode")
	}

	ctx := context.Background()
	rc := containers.NewRedisContainer(t)

	base := time.Now()
	current := base
	store := ratelimit.NewRedisStore(rc.Client,
		ratelimit.WithRedisClock(func() time.Time { return current }))

	const limit = 5
	window := time.Minute

	for i := 0; i < limit; i++ {
		current = base.Add(time.Duration(i) * time.Second)
		res, err := store.Allow(ctx, "PAT-20250601-A1B2|10.0.0.1", limit, window)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "attempt %d", i+1)
	}

	res, err := store.Allow(ctx, "PAT-20250601-A1B2|10.0.0.1", limit, window)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	// Other keys are unaffected.
	res, err = store.Allow(ctx, "PAT-20250601-A1B2|10.0.0.2", limit, window)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	// Once the earliest attempts age out, capacity returns.
	current = base.Add(window + 2*time.Second)
	res, err = store.Allow(ctx, "PAT-20250601-A1B2|10.0.0.1", limit, window)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	// Reset clears the whole budget.
	require.NoError(t, store.Reset(ctx, "PAT-20250601-A1B2|10.0.0.1"))
	res, err = store.Allow(ctx, "PAT-20250601-A1B2|10.0.0.1", limit, window)
	require.NoError(t, err)
	assert.Equal(t, limit-1, res.Remaining)
}
