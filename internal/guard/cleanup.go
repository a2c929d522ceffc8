package guard

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"medgate/internal/platform/metrics"
	"medgate/pkg/platform/audit"
)

// RetentionStore is the slice of the patient store the cleanup job needs.
// The single-statement delete carries its own precondition (unclaimed only),
// so the job can never race an in-flight claim into deleting a claimed row.
type RetentionStore interface {
	DeleteUnclaimedOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Auditor is the append-only audit sink consumed by the job.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event)
}

// RetentionJob removes unclaimed profiles whose identifiers have aged past
// the retention horizon. Claimed profiles are never touched regardless of
// age; that invariant lives in the store's WHERE clause, not here.
type RetentionJob struct {
	store         RetentionStore
	logger        *slog.Logger
	metrics       *metrics.Metrics
	auditor       Auditor
	retentionDays int
	interval      time.Duration
	now           func() time.Time
}

type RetentionOption func(*RetentionJob)

func WithRetentionClock(now func() time.Time) RetentionOption {
	return func(j *RetentionJob) { j.now = now }
}

func WithInterval(interval time.Duration) RetentionOption {
	return func(j *RetentionJob) { j.interval = interval }
}

func NewRetentionJob(store RetentionStore, logger *slog.Logger, m *metrics.Metrics, auditor Auditor, retentionDays int, opts ...RetentionOption) *RetentionJob {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	j := &RetentionJob{
		store:         store,
		logger:        logger,
		metrics:       m,
		auditor:       auditor,
		retentionDays: retentionDays,
		interval:      24 * time.Hour,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// RunOnce performs a single cleanup pass. Idempotent: no eligible rows means
// no work and no error.
func (j *RetentionJob) RunOnce(ctx context.Context) (int64, error) {
	cutoff := j.now().AddDate(0, 0, -j.retentionDays)
	deleted, err := j.store.DeleteUnclaimedOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.ErrorContext(ctx, "retention cleanup failed",
			"cutoff", cutoff.Format(time.RFC3339),
			"error", err.Error(),
		)
		return 0, err
	}
	if deleted > 0 {
		j.metrics.CleanupDeletions.Add(float64(deleted))
		j.logger.InfoContext(ctx, "retention cleanup removed expired unclaimed profiles",
			"deleted", deleted,
			"retention_days", j.retentionDays,
		)
		j.auditor.Emit(ctx, audit.Event{
			Action: audit.EventRetentionCleanup,
			Reason: strconv.FormatInt(deleted, 10) + " profiles removed",
		})
	}
	return deleted, nil
}

// Run executes cleanup passes on a ticker until the context is cancelled. A
// failed pass is logged and retried on the next tick.
func (j *RetentionJob) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_, _ = j.RunOnce(ctx)
		}
	}
}
