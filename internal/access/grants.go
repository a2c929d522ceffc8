package access

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	dErrors "medgate/pkg/domain-errors"
	"medgate/pkg/platform/audit"
	"medgate/pkg/platform/sentinel"
)

// Auditor is the append-only audit sink consumed by the grant service.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event)
}

// GrantService owns the explicit-delegation lifecycle: a doctor requests
// access, the patient (or an admin on their behalf) reviews it. Decided rows
// are immutable; a fresh request means a fresh row.
type GrantService struct {
	grants  GrantStore
	logger  *slog.Logger
	auditor Auditor
	now     func() time.Time
}

type GrantServiceOption func(*GrantService)

func WithGrantClock(now func() time.Time) GrantServiceOption {
	return func(s *GrantService) { s.now = now }
}

func NewGrantService(grants GrantStore, logger *slog.Logger, auditor Auditor, opts ...GrantServiceOption) *GrantService {
	s := &GrantService{grants: grants, logger: logger, auditor: auditor, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request creates a pending grant from a doctor towards a patient record.
func (s *GrantService) Request(ctx context.Context, patientID, requesterID string) (Grant, error) {
	if patientID == "" || requesterID == "" {
		return Grant{}, dErrors.New(dErrors.CodeValidation, "patient id and requester id are required")
	}
	g := Grant{
		ID:          uuid.New().String(),
		PatientID:   patientID,
		RequesterID: requesterID,
		Status:      StatusPending,
		CreatedAt:   s.now(),
	}
	if err := s.grants.Insert(ctx, g); err != nil {
		return Grant{}, s.storageError(ctx, err, "insert grant")
	}
	s.auditor.Emit(ctx, audit.Event{
		Action:    audit.EventGrantRequested,
		PatientID: patientID,
		ActorID:   requesterID,
	})
	return g, nil
}

// Review decides a pending grant. Approve may carry an expiry; nil means the
// grant never expires. Reviewing a decided grant fails: rows are immutable
// after decision.
func (s *GrantService) Review(ctx context.Context, grantID, reviewerID string, approve bool, expiresAt *time.Time) (Grant, error) {
	if grantID == "" || reviewerID == "" {
		return Grant{}, dErrors.New(dErrors.CodeValidation, "grant id and reviewer id are required")
	}
	if expiresAt != nil && !expiresAt.After(s.now()) {
		return Grant{}, dErrors.New(dErrors.CodeValidation, "expiry must be in the future")
	}

	status := StatusRejected
	if approve {
		status = StatusApproved
	}
	if !approve {
		// A rejection never carries an expiry.
		expiresAt = nil
	}

	err := s.grants.UpdateStatus(ctx, grantID, status, reviewerID, expiresAt)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Grant{}, dErrors.New(dErrors.CodeNotFound, "grant not found")
	}
	if errors.Is(err, sentinel.ErrInvalidState) {
		return Grant{}, dErrors.New(dErrors.CodeBadRequest, "grant has already been decided")
	}
	if err != nil {
		return Grant{}, s.storageError(ctx, err, "update grant status")
	}

	g, err := s.grants.Get(ctx, grantID)
	if err != nil {
		return Grant{}, s.storageError(ctx, err, "load reviewed grant")
	}
	s.auditor.Emit(ctx, audit.Event{
		Action:    audit.EventGrantReviewed,
		PatientID: g.PatientID,
		ActorID:   reviewerID,
		Reason:    string(status),
	})
	return g, nil
}

// Get loads a single grant by id.
func (s *GrantService) Get(ctx context.Context, grantID string) (Grant, error) {
	g, err := s.grants.Get(ctx, grantID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return Grant{}, dErrors.New(dErrors.CodeNotFound, "grant not found")
	}
	if err != nil {
		return Grant{}, s.storageError(ctx, err, "get grant")
	}
	return g, nil
}

// ListForPatient returns the full grant history of a patient, newest first.
func (s *GrantService) ListForPatient(ctx context.Context, patientID string) ([]Grant, error) {
	grants, err := s.grants.ListForPatient(ctx, patientID)
	if err != nil {
		return nil, s.storageError(ctx, err, "list grants for patient")
	}
	return grants, nil
}

func (s *GrantService) storageError(ctx context.Context, err error, op string) error {
	s.logger.ErrorContext(ctx, "grant store failure",
		"op", op,
		"error", err.Error(),
	)
	return dErrors.Wrap(err, dErrors.CodeStorage, "storage failure")
}
