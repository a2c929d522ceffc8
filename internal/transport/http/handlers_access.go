package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"medgate/internal/access"
	"medgate/internal/guard"
	"medgate/internal/identity"
	"medgate/internal/platform/middleware"
	"medgate/internal/transport/http/shared"
	dErrors "medgate/pkg/domain-errors"
	"medgate/pkg/platform/audit"
)

// AccessHandler exposes patient visibility and the grant lifecycle. Every
// read goes through the resolver's filter so a denial and a missing record
// produce the same 404.
type AccessHandler struct {
	resolver *access.Resolver
	grants   *access.GrantService
	patients identity.Store
	auditor  Auditor
	logger   *slog.Logger
}

func NewAccessHandler(resolver *access.Resolver, grants *access.GrantService, patients identity.Store, auditor Auditor, logger *slog.Logger) *AccessHandler {
	return &AccessHandler{
		resolver: resolver,
		grants:   grants,
		patients: patients,
		auditor:  auditor,
		logger:   logger,
	}
}

type patientListResponse struct {
	Patients []guard.PatientView `json:"patients"`
}

// handleListPatients returns every patient the caller may see, sanitized for
// their role.
func (h *AccessHandler) handleListPatients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := middleware.GetUser(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	switch user.Role {
	case identity.RoleDoctor:
		patients, err := h.resolver.ListAccessiblePatients(ctx, user.ID)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		views := make([]guard.PatientView, 0, len(patients))
		for _, p := range patients {
			views = append(views, guard.SanitizeForViewer(p, user.Role))
		}
		shared.WriteJSON(w, http.StatusOK, patientListResponse{Patients: views})

	case identity.RolePatient:
		p, err := h.patients.FindByID(ctx, user.ID)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "not found"))
			return
		}
		shared.WriteJSON(w, http.StatusOK, patientListResponse{
			Patients: []guard.PatientView{guard.SanitizeForViewer(p, user.Role)},
		})

	default:
		// Admin listing everyone is a reporting concern, not this API.
		shared.WriteJSON(w, http.StatusOK, patientListResponse{Patients: []guard.PatientView{}})
	}
}

// handleGetPatient returns one patient if and only if the access filter
// admits them. Denial is indistinguishable from absence.
func (h *AccessHandler) handleGetPatient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := middleware.GetUser(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	patientID := chi.URLParam(r, "patientID")

	filter := h.resolver.BuildAccessFilter(ctx, user, patientID)
	if !filter.Matches(patientID) {
		h.auditor.Emit(ctx, audit.Event{
			Action:    audit.EventAccessDenied,
			PatientID: patientID,
			ActorID:   user.ID,
			RequestID: middleware.GetRequestID(ctx),
		})
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "not found"))
		return
	}

	p, err := h.patients.FindByID(ctx, patientID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "not found"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, guard.SanitizeForViewer(p, user.Role))
}

type requestGrantRequest struct {
	PatientID string `json:"patientId"`
}

type grantResponse struct {
	ID          string     `json:"id"`
	PatientID   string     `json:"patientId"`
	RequesterID string     `json:"requesterId"`
	Status      string     `json:"status"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	ReviewedBy  string     `json:"reviewedBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func toGrantResponse(g access.Grant) grantResponse {
	return grantResponse{
		ID:          g.ID,
		PatientID:   g.PatientID,
		RequesterID: g.RequesterID,
		Status:      string(g.Status),
		ExpiresAt:   g.ExpiresAt,
		ReviewedBy:  g.ReviewedBy,
		CreatedAt:   g.CreatedAt,
	}
}

// handleRequestGrant lets a doctor ask for access to a patient record.
func (h *AccessHandler) handleRequestGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := middleware.GetUser(ctx)
	if !ok || user.Role != identity.RoleDoctor {
		shared.WriteError(w, dErrors.New(dErrors.CodeForbidden, "only clinicians may request access"))
		return
	}

	var req requestGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	g, err := h.grants.Request(ctx, req.PatientID, user.ID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toGrantResponse(g))
}

type reviewGrantRequest struct {
	Approve   bool       `json:"approve"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// handleReviewGrant records the patient's (or an admin's) decision on a
// pending grant. Only the patient the grant targets, or an admin, may decide.
func (h *AccessHandler) handleReviewGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := middleware.GetUser(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	grantID := chi.URLParam(r, "grantID")

	g, err := h.grants.Get(ctx, grantID)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "not found"))
		return
	}
	if user.Role != identity.RoleAdmin && !(user.Role == identity.RolePatient && user.ID == g.PatientID) {
		// Same shape as absence, so a doctor cannot probe grant ids.
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "not found"))
		return
	}

	var req reviewGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	reviewed, err := h.grants.Review(ctx, grantID, user.ID, req.Approve, req.ExpiresAt)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toGrantResponse(reviewed))
}

type grantListResponse struct {
	Grants []grantResponse `json:"grants"`
}

// handleListGrants returns the caller's grant history: patients see grants
// on their record, admins may inspect any patient via query param.
func (h *AccessHandler) handleListGrants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := middleware.GetUser(ctx)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	var patientID string
	switch user.Role {
	case identity.RolePatient:
		patientID = user.ID
	case identity.RoleAdmin:
		patientID = r.URL.Query().Get("patientId")
		if patientID == "" {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "patientId query parameter is required"))
			return
		}
	default:
		shared.WriteError(w, dErrors.New(dErrors.CodeForbidden, "grant history is not visible to this role"))
		return
	}

	grants, err := h.grants.ListForPatient(ctx, patientID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]grantResponse, 0, len(grants))
	for _, g := range grants {
		out = append(out, toGrantResponse(g))
	}
	shared.WriteJSON(w, http.StatusOK, grantListResponse{Grants: out})
}
