// Package audit captures append-only security and compliance events. Events
// are emitted from domain logic and fanned out to a sink (memory, postgres
// outbox, or Kafka); emission never fails the business operation that caused
// it. Patient identifiers are masked before an event reaches any sink so a
// leaked log bounds the blast radius.
package audit

import (
	"context"
	"time"
)

// Category classifies events by retention and routing needs.
type Category string

const (
	// CategoryCompliance covers events with regulatory significance and long
	// retention: profile lifecycle and grant decisions.
	CategoryCompliance Category = "compliance"
	// CategorySecurity covers events feeding monitoring and alerting:
	// rejected claims, denied access, rate limiting.
	CategorySecurity Category = "security"
	// CategoryOperations covers routine visibility events that may be sampled.
	CategoryOperations Category = "operations"
)

// EventKind names the action an event records.
type EventKind string

const (
	EventProfileCreated    EventKind = "profile_created"
	EventIdentifierClaimed EventKind = "identifier_claimed"
	EventClaimRejected     EventKind = "claim_rejected"
	EventGrantRequested    EventKind = "grant_requested"
	EventGrantReviewed     EventKind = "grant_reviewed"
	EventAccessDenied      EventKind = "access_denied"
	EventRateLimitExceeded EventKind = "rate_limit_exceeded"
	EventRetentionCleanup  EventKind = "retention_cleanup"
)

var eventCategories = map[EventKind]Category{
	EventProfileCreated:    CategoryCompliance,
	EventIdentifierClaimed: CategoryCompliance,
	EventGrantRequested:    CategoryCompliance,
	EventGrantReviewed:     CategoryCompliance,
	EventClaimRejected:     CategorySecurity,
	EventAccessDenied:      CategorySecurity,
	EventRateLimitExceeded: CategorySecurity,
	EventRetentionCleanup:  CategoryOperations,
}

// CategoryOf returns the routing category for a kind, defaulting to
// operations for kinds the map does not know yet.
func CategoryOf(kind EventKind) Category {
	if c, ok := eventCategories[kind]; ok {
		return c
	}
	return CategoryOperations
}

// Event is a single audit record. Keep it transport-agnostic so stores and
// sinks can fan out.
type Event struct {
	Timestamp time.Time
	Category  Category
	Action    EventKind

	// PatientID is the internal row id of the affected patient, when known.
	PatientID string
	// ActorID is who performed the action when different from the patient.
	ActorID string
	// Identifier is the public patient identifier involved, if any. The
	// publisher masks it before any sink sees it.
	Identifier string
	Reason     string

	// Request context, populated by the transport layer when available.
	RequestID string
	ClientIP  string
	UserAgent string
}

// Store is an append-only audit sink.
type Store interface {
	Append(ctx context.Context, event Event) error
}
