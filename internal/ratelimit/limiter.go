// Package ratelimit provides a keyed sliding-window rate limiter. The window
// slides continuously rather than resetting on fixed boundaries, so a burst
// straddling a boundary cannot double its budget.
//
// The limiter is an explicitly constructed component owning its own state:
// tests get isolated instances, and multi-process deployments swap the
// in-memory store for the Redis one without touching callers.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"medgate/internal/platform/metrics"
)

// Result is the outcome of a limit check. Denial is a decision, not an
// error: Allowed=false with err=nil is the normal over-limit outcome.
type Result struct {
	Allowed   bool
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// Store tracks attempt timestamps per key. Implementations must prune entries
// older than the window before counting and be safe under concurrent access
// to distinct keys.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
	Reset(ctx context.Context, key string) error
}

// Limiter wraps a Store with logging and metrics.
type Limiter struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewLimiter(store Store, logger *slog.Logger, m *metrics.Metrics) *Limiter {
	return &Limiter{store: store, logger: logger, metrics: m}
}

// Allow records an attempt under key and reports whether it fits the budget.
// Store failures fail open with a warning: the limiter protects against
// abuse, and an outage of its backing store must not take the claim flow
// down with it.
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) Result {
	result, err := l.store.Allow(ctx, key, limit, window)
	if err != nil {
		l.logger.WarnContext(ctx, "rate limit store failure, failing open",
			"error", err.Error(),
		)
		return Result{Allowed: true, Remaining: 0, Limit: limit, ResetAt: time.Now().Add(window)}
	}
	if !result.Allowed {
		l.metrics.RateLimitDenials.Inc()
	}
	return result
}

// Reset clears the budget for a key. Used by tests and by support tooling.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.store.Reset(ctx, key)
}
