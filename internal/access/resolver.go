package access

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"medgate/internal/identity"
	"medgate/internal/platform/metrics"
	dErrors "medgate/pkg/domain-errors"
	"medgate/pkg/platform/sentinel"
)

// Resolver decides which doctors may read which patients. Access comes from
// two sources, combined as a union: implicit (the doctor created the profile)
// and explicit (an approved, unexpired grant).
//
// Storage failures never propagate out of boolean resolution paths: the safe
// default is denial, not a crash, so failures are logged and resolved false.
type Resolver struct {
	patients PatientDirectory
	grants   GrantStore
	records  RecordDirectory
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	now      func() time.Time
}

type ResolverOption func(*Resolver)

// WithResolverClock overrides the time source for tests.
func WithResolverClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) { r.now = now }
}

func NewResolver(patients PatientDirectory, grants GrantStore, records RecordDirectory, logger *slog.Logger, m *metrics.Metrics, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		patients: patients,
		grants:   grants,
		records:  records,
		logger:   logger,
		metrics:  m,
		tracer:   otel.Tracer("medgate/access"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DoctorHasAccessToPatient reports whether the doctor may read the patient.
// True if the doctor created the profile, or holds an approved, unexpired
// grant for it.
func (r *Resolver) DoctorHasAccessToPatient(ctx context.Context, doctorID, patientID string) bool {
	ctx, span := r.tracer.Start(ctx, "access.DoctorHasAccessToPatient")
	defer span.End()

	if doctorID == "" || patientID == "" {
		return false
	}

	patient, err := r.patients.FindByID(ctx, patientID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			r.resolveFailure(ctx, err, "patient lookup")
		}
		return false
	}
	if patient.CreatedBy(doctorID) {
		r.metrics.AccessChecks.WithLabelValues("granted_creator").Inc()
		return true
	}

	grants, err := r.grants.ListApprovedForDoctor(ctx, doctorID)
	if err != nil {
		r.resolveFailure(ctx, err, "grant lookup")
		return false
	}
	now := r.now()
	for _, g := range grants {
		if g.PatientID == patientID && g.IsActive(now) {
			r.metrics.AccessChecks.WithLabelValues("granted_delegation").Inc()
			return true
		}
	}

	r.metrics.AccessChecks.WithLabelValues("denied").Inc()
	return false
}

// ListAccessiblePatients returns the union of patients the doctor created and
// patients with an active grant to the doctor, deduplicated by id, sorted by
// last name with id as the deterministic tie-break.
func (r *Resolver) ListAccessiblePatients(ctx context.Context, doctorID string) ([]identity.PatientIdentity, error) {
	created, err := r.patients.ListCreatedBy(ctx, doctorID)
	if err != nil {
		return nil, r.storageError(ctx, err, "list created patients")
	}

	grants, err := r.grants.ListApprovedForDoctor(ctx, doctorID)
	if err != nil {
		return nil, r.storageError(ctx, err, "list approved grants")
	}

	byID := make(map[string]identity.PatientIdentity, len(created))
	for _, p := range created {
		byID[p.ID] = p
	}
	now := r.now()
	for _, g := range grants {
		if !g.IsActive(now) {
			continue
		}
		if _, ok := byID[g.PatientID]; ok {
			continue
		}
		p, err := r.patients.FindByID(ctx, g.PatientID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				// Grant outlived the profile (retention cleanup); skip.
				continue
			}
			return nil, r.storageError(ctx, err, "granted patient lookup")
		}
		byID[p.ID] = p
	}

	out := make([]identity.PatientIdentity, 0, len(byID))
	for _, p := range byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Demographics.LastName != out[j].Demographics.LastName {
			return out[i].Demographics.LastName < out[j].Demographics.LastName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// BuildAccessFilter produces the declarative visibility predicate for a user,
// optionally narrowed to a single target patient. It never returns an error
// for missing access; lack of access and lack of data are indistinguishable
// by design.
func (r *Resolver) BuildAccessFilter(ctx context.Context, user identity.User, patientID string) Filter {
	switch user.Role {
	case identity.RolePatient:
		// Patients see themselves, even when a different target is asked for.
		if patientID != "" && patientID != user.ID {
			return NoneFilter()
		}
		return IDFilter(user.ID)

	case identity.RoleDoctor:
		if patientID != "" {
			if r.DoctorHasAccessToPatient(ctx, user.ID, patientID) {
				return IDFilter(patientID)
			}
			return NoneFilter()
		}
		patients, err := r.ListAccessiblePatients(ctx, user.ID)
		if err != nil {
			r.resolveFailure(ctx, err, "accessible patients for filter")
			return NoneFilter()
		}
		ids := make([]string, 0, len(patients))
		for _, p := range patients {
			ids = append(ids, p.ID)
		}
		return IDFilter(ids...)

	case identity.RoleAdmin:
		if patientID != "" {
			return IDFilter(patientID)
		}
		return AllFilter()

	default:
		return NoneFilter()
	}
}

// CanAccessResource authorizes a read of a typed resource. Medical records
// resolve to their owning patient and re-enter the patient check; that single
// level of indirection is all this subsystem traverses.
func (r *Resolver) CanAccessResource(ctx context.Context, user identity.User, resourceType ResourceType, resourceID string) bool {
	switch resourceType {
	case ResourcePatient:
		return r.canAccessPatient(ctx, user, resourceID)
	case ResourceMedicalRecord:
		ownerID, err := r.records.OwnerOfRecord(ctx, resourceID)
		if err != nil {
			if !errors.Is(err, sentinel.ErrNotFound) {
				r.resolveFailure(ctx, err, "record owner lookup")
			}
			return false
		}
		return r.canAccessPatient(ctx, user, ownerID)
	default:
		return false
	}
}

func (r *Resolver) canAccessPatient(ctx context.Context, user identity.User, patientID string) bool {
	switch user.Role {
	case identity.RolePatient:
		return user.ID == patientID
	case identity.RoleDoctor:
		return r.DoctorHasAccessToPatient(ctx, user.ID, patientID)
	case identity.RoleAdmin:
		return true
	default:
		return false
	}
}

// resolveFailure logs a storage failure that was resolved to a denial.
func (r *Resolver) resolveFailure(ctx context.Context, err error, op string) {
	r.logger.ErrorContext(ctx, "access resolution storage failure, denying",
		"op", op,
		"error", err.Error(),
	)
	r.metrics.AccessChecks.WithLabelValues("error_denied").Inc()
}

func (r *Resolver) storageError(ctx context.Context, err error, op string) error {
	r.logger.ErrorContext(ctx, "access store failure",
		"op", op,
		"error", err.Error(),
	)
	return dErrors.Wrap(err, dErrors.CodeStorage, "storage failure")
}
