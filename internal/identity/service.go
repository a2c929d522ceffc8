package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"medgate/internal/credential"
	"medgate/internal/platform/metrics"
	dErrors "medgate/pkg/domain-errors"
	"medgate/pkg/identifier"
	"medgate/pkg/platform/audit"
	"medgate/pkg/platform/sentinel"
	pstrings "medgate/pkg/platform/strings"
)

// maxIssueAttempts bounds the issue-unique loop. With 16 bits of suffix
// entropy per day, exhausting 10 attempts in practice means the entropy
// source is broken, not that the space is full.
const maxIssueAttempts = 10

// Auditor is the append-only audit sink consumed by the service. Emission
// failures are the sink's problem; the service never fails an operation
// because audit lagged.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service issues public patient identifiers, creates unclaimed profiles, and
// performs the one-way claim transition.
type Service struct {
	store   Store
	hasher  credential.Hasher
	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor Auditor
	tracer  trace.Tracer
	now     func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, hasher credential.Hasher, logger *slog.Logger, m *metrics.Metrics, auditor Auditor, opts ...Option) *Service {
	s := &Service{
		store:   store,
		hasher:  hasher,
		logger:  logger,
		metrics: m,
		auditor: auditor,
		tracer:  otel.Tracer("medgate/identity"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueUniqueIdentifier generates identifiers until one is unused in the
// store, up to maxIssueAttempts. Exhaustion is practically impossible and is
// surfaced loudly: it may indicate an entropy-source failure.
func (s *Service) IssueUniqueIdentifier(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		id, err := identifier.Patient.Generate(s.now())
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "generate identifier")
		}
		_, err = s.store.FindByIdentifier(ctx, id)
		if errors.Is(err, sentinel.ErrNotFound) {
			return id, nil
		}
		if err != nil {
			return "", s.storageError(ctx, err, "issue identifier uniqueness check", id)
		}
		// Collision: loop again with a fresh suffix.
	}
	s.metrics.IdentifierExhaustions.Inc()
	s.logger.ErrorContext(ctx, "identifier generation attempts exhausted, possible entropy failure",
		"attempts", maxIssueAttempts,
	)
	return "", dErrors.New(dErrors.CodeExhaustedAttempts, "could not issue a unique identifier")
}

// CreateUnclaimedProfile issues an identifier and persists a profile owned by
// the creating doctor, with no credentials attached yet.
func (s *Service) CreateUnclaimedProfile(ctx context.Context, d Demographics, doctorID string) (PatientIdentity, error) {
	if err := validateDemographics(d); err != nil {
		return PatientIdentity{}, err
	}
	if doctorID == "" {
		return PatientIdentity{}, dErrors.New(dErrors.CodeValidation, "creating doctor id is required")
	}

	publicID, err := s.IssueUniqueIdentifier(ctx)
	if err != nil {
		return PatientIdentity{}, err
	}

	p := PatientIdentity{
		ID:                uuid.New().String(),
		Identifier:        publicID,
		Unclaimed:         true,
		CreatedByDoctorID: doctorID,
		Demographics:      d,
		CreatedAt:         s.now(),
	}
	if err := s.store.InsertUnclaimed(ctx, p); err != nil {
		return PatientIdentity{}, s.storageError(ctx, err, "insert unclaimed profile", publicID)
	}

	s.metrics.ProfilesCreated.Inc()
	s.auditor.Emit(ctx, audit.Event{
		Action:     audit.EventProfileCreated,
		PatientID:  p.ID,
		ActorID:    doctorID,
		Identifier: p.Identifier,
	})
	return p, nil
}

// Claim performs the one-way transition from unclaimed to claimed. The lookup
// and the mutation are separated, but correctness does not depend on that:
// the conditional update is the authority, so two concurrent claims on the
// same identifier yield exactly one success. Claim is idempotent from the
// caller's perspective; a retry after a timeout can only ever observe its own
// prior success as a conflict, never corrupt state.
func (s *Service) Claim(ctx context.Context, publicID, email, password string) (PatientIdentity, error) {
	ctx, span := s.tracer.Start(ctx, "identity.Claim")
	defer span.End()

	if !identifier.Patient.Validate(publicID) {
		return PatientIdentity{}, dErrors.New(dErrors.CodeInvalidFormat, "identifier does not match the expected format")
	}
	email = pstrings.NormalizeEmail(email)
	if email == "" || password == "" {
		return PatientIdentity{}, dErrors.New(dErrors.CodeValidation, "email and password are required")
	}

	p, err := s.store.FindUnclaimedByIdentifier(ctx, publicID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return PatientIdentity{}, s.rejectClaim(ctx, publicID, "not_found_or_claimed")
	}
	if err != nil {
		return PatientIdentity{}, s.storageError(ctx, err, "claim lookup", publicID)
	}

	existing, err := s.store.FindByEmail(ctx, email)
	if err == nil && existing.ID != p.ID {
		return PatientIdentity{}, dErrors.New(dErrors.CodeEmailInUse, "email is already in use by another account")
	}
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return PatientIdentity{}, s.storageError(ctx, err, "claim email check", publicID)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return PatientIdentity{}, dErrors.Wrap(err, dErrors.CodeInternal, "hash credentials")
	}

	claimedAt := s.now()
	err = s.store.UpdateClaim(ctx, p.ID, email, hash, claimedAt)
	if errors.Is(err, sentinel.ErrDuplicate) {
		// A concurrent claim took this email after the pre-check passed.
		return PatientIdentity{}, dErrors.New(dErrors.CodeEmailInUse, "email is already in use by another account")
	}
	if errors.Is(err, sentinel.ErrConflict) || errors.Is(err, sentinel.ErrNotFound) {
		// Lost the race, or the retention job removed the row between lookup
		// and update. Either way the caller learns nothing extra.
		return PatientIdentity{}, s.rejectClaim(ctx, publicID, "claim_race_lost")
	}
	if err != nil {
		return PatientIdentity{}, s.storageError(ctx, err, "claim update", publicID)
	}

	p.Unclaimed = false
	p.Email = email
	p.CredentialHash = hash
	p.ClaimedAt = &claimedAt

	s.metrics.ClaimsSucceeded.Inc()
	s.auditor.Emit(ctx, audit.Event{
		Action:     audit.EventIdentifierClaimed,
		PatientID:  p.ID,
		Identifier: p.Identifier,
	})
	return p, nil
}

func (s *Service) rejectClaim(ctx context.Context, publicID, reason string) error {
	s.metrics.ClaimsRejected.Inc()
	s.auditor.Emit(ctx, audit.Event{
		Action:     audit.EventClaimRejected,
		Identifier: publicID,
		Reason:     reason,
	})
	return dErrors.New(dErrors.CodeNotFoundOrClaimed, "identifier not found or already claimed")
}

// storageError logs the real failure with a masked identifier and returns the
// one opaque storage code callers are allowed to see.
func (s *Service) storageError(ctx context.Context, err error, op, publicID string) error {
	s.logger.ErrorContext(ctx, "patient store failure",
		"op", op,
		"identifier", identifier.Mask(publicID),
		"error", err.Error(),
	)
	return dErrors.Wrap(err, dErrors.CodeStorage, "storage failure")
}

func validateDemographics(d Demographics) error {
	var missing []string
	if strings.TrimSpace(d.FirstName) == "" {
		missing = append(missing, "firstName")
	}
	if strings.TrimSpace(d.LastName) == "" {
		missing = append(missing, "lastName")
	}
	if strings.TrimSpace(d.DateOfBirth) == "" {
		missing = append(missing, "dateOfBirth")
	}
	if len(missing) > 0 {
		return dErrors.New(dErrors.CodeValidation, "missing required demographics: "+strings.Join(missing, ", "))
	}
	return nil
}
