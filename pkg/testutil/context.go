package testutil

import (
	"net/http"

	"medgate/internal/identity"
	"medgate/internal/platform/middleware"
)

// AsUser attaches an authenticated user to the request context, simulating
// what the auth middleware does after validating a token.
func AsUser(req *http.Request, userID string, role identity.Role) *http.Request {
	ctx := middleware.WithUser(req.Context(), identity.User{ID: userID, Role: role})
	return req.WithContext(ctx)
}

// AsDoctor attaches a doctor identity to the request context.
func AsDoctor(req *http.Request, doctorID string) *http.Request {
	return AsUser(req, doctorID, identity.RoleDoctor)
}

// AsPatient attaches a patient identity to the request context.
func AsPatient(req *http.Request, patientID string) *http.Request {
	return AsUser(req, patientID, identity.RolePatient)
}

// WithClientMeta attaches client metadata (IP, user agent) to the request
// context, simulating the metadata middleware.
func WithClientMeta(req *http.Request, ip, agent string) *http.Request {
	ctx := middleware.WithClientMeta(req.Context(), middleware.ClientMeta{IP: ip, Agent: agent})
	return req.WithContext(ctx)
}
