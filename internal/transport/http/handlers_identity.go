package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"medgate/internal/guard"
	"medgate/internal/identity"
	"medgate/internal/platform/middleware"
	"medgate/internal/ratelimit"
	"medgate/internal/transport/http/shared"
	dErrors "medgate/pkg/domain-errors"
	"medgate/pkg/platform/audit"
)

// IdentityHandler exposes profile creation and the claim flow. The claim
// endpoint is where the guard layers stack up: structural format, temporal
// sanity, then the sliding-window budget, and only then the state transition.
type IdentityHandler struct {
	identity *identity.Service
	temporal *guard.TemporalValidator
	limiter  *ratelimit.Limiter
	auditor  Auditor
	logger   *slog.Logger

	claimMaxAttempts int
	claimWindow      time.Duration
}

// Auditor is the append-only audit sink used by handlers.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event)
}

func NewIdentityHandler(
	svc *identity.Service,
	temporal *guard.TemporalValidator,
	limiter *ratelimit.Limiter,
	auditor Auditor,
	logger *slog.Logger,
	claimMaxAttempts int,
	claimWindow time.Duration,
) *IdentityHandler {
	return &IdentityHandler{
		identity:         svc,
		temporal:         temporal,
		limiter:          limiter,
		auditor:          auditor,
		logger:           logger,
		claimMaxAttempts: claimMaxAttempts,
		claimWindow:      claimWindow,
	}
}

type createProfileRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DateOfBirth string `json:"dateOfBirth"`
	Gender      string `json:"gender"`
	Phone       string `json:"phone"`
	NationalID  string `json:"nationalId"`
}

type createProfileResponse struct {
	ID         string `json:"id"`
	Identifier string `json:"patientIdentifier"`
}

// handleCreateProfile lets a doctor register a patient who has no account
// yet. The response carries the public identifier the doctor hands to the
// patient for the later claim.
func (h *IdentityHandler) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := middleware.GetUser(ctx)
	if !ok || (user.Role != identity.RoleDoctor && user.Role != identity.RoleAdmin) {
		shared.WriteError(w, dErrors.New(dErrors.CodeForbidden, "only clinicians may create profiles"))
		return
	}

	var req createProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	p, err := h.identity.CreateUnclaimedProfile(ctx, identity.Demographics{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DateOfBirth: req.DateOfBirth,
		Gender:      req.Gender,
		Phone:       req.Phone,
		NationalID:  req.NationalID,
	}, user.ID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, createProfileResponse{ID: p.ID, Identifier: p.Identifier})
}

type claimRequest struct {
	Identifier string `json:"patientIdentifier"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

type claimResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// handleClaim converts an unclaimed profile into an account. Unauthenticated
// by design: the caller does not have an account yet. The identifier plus
// client IP key the rate limit so a guessing campaign burns its budget fast.
func (h *IdentityHandler) handleClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	meta := middleware.GetClientMeta(ctx)

	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if verdict := h.temporal.Validate(req.Identifier); !verdict.Valid {
		shared.WriteError(w, claimTemporalError(verdict))
		return
	}

	limitKey := req.Identifier + "|" + meta.IP
	if result := h.limiter.Allow(ctx, limitKey, h.claimMaxAttempts, h.claimWindow); !result.Allowed {
		h.auditor.Emit(ctx, audit.Event{
			Action:     audit.EventRateLimitExceeded,
			Identifier: req.Identifier,
			ClientIP:   meta.IP,
			UserAgent:  meta.Agent,
			RequestID:  middleware.GetRequestID(ctx),
		})
		w.Header().Set("Retry-After", result.ResetAt.UTC().Format(http.TimeFormat))
		shared.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many claim attempts"))
		return
	}

	p, err := h.identity.Claim(ctx, req.Identifier, req.Email, req.Password)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, claimResponse{ID: p.ID, Email: p.Email})
}

// claimTemporalError maps each temporal verdict to its own user-facing code;
// the distinction is the whole point of the structured result.
func claimTemporalError(verdict guard.TemporalResult) error {
	switch verdict.Kind {
	case guard.TemporalFuture:
		return dErrors.New(dErrors.CodeValidation, "identifier is dated in the future")
	case guard.TemporalExpired:
		return dErrors.New(dErrors.CodeValidation, "identifier has expired")
	default:
		return dErrors.New(dErrors.CodeInvalidFormat, "identifier does not match the expected format")
	}
}
