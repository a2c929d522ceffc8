package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medgate/internal/platform/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(c *clock) *Limiter {
	store := NewInMemoryStore(WithMemoryClock(c.now))
	return NewLimiter(store, testLogger(), metrics.NewForTest())
}

func TestLimiter_BudgetAndDenial(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	l := newTestLimiter(c)

	const limit = 5
	window := 15 * time.Minute

	for i := 0; i < limit; i++ {
		res := l.Allow(ctx, "PAT-20250601-A1B2|10.0.0.1", limit, window)
		require.True(t, res.Allowed, "attempt %d should be within budget", i+1)
		assert.Equal(t, limit-i-1, res.Remaining)
	}

	res := l.Allow(ctx, "PAT-20250601-A1B2|10.0.0.1", limit, window)
	assert.False(t, res.Allowed)
	assert.Zero(t, res.Remaining)
	assert.Equal(t, c.t.Add(window), res.ResetAt)
}

func TestLimiter_WindowSlides(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	l := newTestLimiter(c)

	window := 10 * time.Minute
	for i := 0; i < 3; i++ {
		require.True(t, l.Allow(ctx, "k", 3, window).Allowed)
	}
	assert.False(t, l.Allow(ctx, "k", 3, window).Allowed)

	// The window slides continuously: once the earliest attempts age out,
	// capacity returns attempt by attempt, not all at once.
	c.advance(10*time.Minute + time.Second)
	assert.True(t, l.Allow(ctx, "k", 3, window).Allowed)
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	l := newTestLimiter(c)

	window := time.Minute
	for i := 0; i < 2; i++ {
		require.True(t, l.Allow(ctx, "id-1|1.1.1.1", 2, window).Allowed)
	}
	assert.False(t, l.Allow(ctx, "id-1|1.1.1.1", 2, window).Allowed)

	// Same identifier from another address, and another identifier from the
	// same address, both have their own budget.
	assert.True(t, l.Allow(ctx, "id-1|2.2.2.2", 2, window).Allowed)
	assert.True(t, l.Allow(ctx, "id-2|1.1.1.1", 2, window).Allowed)
}

func TestLimiter_Reset(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	l := newTestLimiter(c)

	for i := 0; i < 2; i++ {
		l.Allow(ctx, "k", 2, time.Minute)
	}
	assert.False(t, l.Allow(ctx, "k", 2, time.Minute).Allowed)

	require.NoError(t, l.Reset(ctx, "k"))
	assert.True(t, l.Allow(ctx, "k", 2, time.Minute).Allowed)
}

type brokenStore struct{}

func (brokenStore) Allow(context.Context, string, int, time.Duration) (Result, error) {
	return Result{}, errors.New("redis timeout")
}
func (brokenStore) Reset(context.Context, string) error { return nil }

// A store outage must not lock patients out of the claim flow.
func TestLimiter_FailsOpenOnStoreError(t *testing.T) {
	l := NewLimiter(brokenStore{}, testLogger(), metrics.NewForTest())
	res := l.Allow(context.Background(), "k", 5, time.Minute)
	assert.True(t, res.Allowed)
}
