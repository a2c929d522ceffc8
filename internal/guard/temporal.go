// Package guard enforces the security rules around identifiers and profiles:
// temporal sanity of the embedded issuance date, role-gated projection of
// patient data, and retention cleanup of stale unclaimed profiles.
package guard

import (
	"time"

	"medgate/pkg/identifier"
)

// TemporalKind tells callers why a temporal check failed. The claim flow maps
// each kind to different user-facing messaging, which is why this is a
// structured result and not an error.
type TemporalKind string

const (
	TemporalOK TemporalKind = "ok"
	// TemporalMalformed covers both structural failures and
	// calendar-impossible dates such as month 13.
	TemporalMalformed TemporalKind = "malformed"
	TemporalFuture    TemporalKind = "future_dated"
	TemporalExpired   TemporalKind = "expired"
)

// TemporalResult is the outcome of a temporal identifier check.
type TemporalResult struct {
	Valid bool
	Kind  TemporalKind
}

// DefaultRetentionDays is how long an unclaimed identifier stays claimable.
const DefaultRetentionDays = 365

// TemporalValidator checks the issuance date embedded in an identifier
// against the clock. Structural validation (pkg/identifier) and this check
// are deliberately separate layers: the grammar is a wire contract, the
// retention horizon is a business rule, and they evolve independently.
type TemporalValidator struct {
	grammar       identifier.Grammar
	retentionDays int
	now           func() time.Time
}

type TemporalOption func(*TemporalValidator)

func WithTemporalClock(now func() time.Time) TemporalOption {
	return func(v *TemporalValidator) { v.now = now }
}

func WithRetentionDays(days int) TemporalOption {
	return func(v *TemporalValidator) { v.retentionDays = days }
}

func NewTemporalValidator(grammar identifier.Grammar, opts ...TemporalOption) *TemporalValidator {
	v := &TemporalValidator{
		grammar:       grammar,
		retentionDays: DefaultRetentionDays,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate parses the embedded issuance date and rejects future dates and
// dates beyond the retention horizon.
func (v *TemporalValidator) Validate(id string) TemporalResult {
	issued, ok := v.grammar.ExtractIssuanceDate(id)
	if !ok {
		return TemporalResult{Kind: TemporalMalformed}
	}

	// Compare calendar dates, not instants: an identifier issued earlier
	// today is not future-dated just because its time component is midnight.
	today := v.now().UTC().Truncate(24 * time.Hour)
	if issued.After(today) {
		return TemporalResult{Kind: TemporalFuture}
	}
	horizon := today.AddDate(0, 0, -v.retentionDays)
	if issued.Before(horizon) {
		return TemporalResult{Kind: TemporalExpired}
	}
	return TemporalResult{Valid: true, Kind: TemporalOK}
}
