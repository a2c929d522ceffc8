package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"medgate/internal/identity"
)

// Claims are what this subsystem needs from an externally issued token: who
// is calling and in what role. Token issuance itself is out of scope.
type Claims struct {
	UserID string
	Role   identity.Role
}

// TokenValidator validates a bearer token and extracts claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (Claims, error)
}

// HMACValidator validates HS256 tokens carrying sub and role claims.
type HMACValidator struct {
	key []byte
}

func NewHMACValidator(signingKey string) *HMACValidator {
	return &HMACValidator{key: []byte(signingKey)}
}

func (v *HMACValidator) ValidateToken(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.key, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return Claims{}, fmt.Errorf("parse token: %w", err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Claims{}, fmt.Errorf("invalid token claims")
	}
	sub, _ := mapClaims["sub"].(string)
	role, _ := mapClaims["role"].(string)
	if sub == "" || role == "" {
		return Claims{}, fmt.Errorf("token missing sub or role")
	}
	return Claims{UserID: sub, Role: identity.Role(role)}, nil
}

type contextKeyUser struct{}

// GetUser retrieves the authenticated principal from the context.
func GetUser(ctx context.Context) (identity.User, bool) {
	u, ok := ctx.Value(contextKeyUser{}).(identity.User)
	return u, ok
}

// WithUser injects a principal into a context. For handler tests that skip
// the auth middleware.
func WithUser(ctx context.Context, u identity.User) context.Context {
	return context.WithValue(ctx, contextKeyUser{}, u)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// principal in context for handlers.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				unauthorized(w)
				return
			}
			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "rejected invalid token",
					"request_id", GetRequestID(r.Context()),
					"error", err.Error(),
				)
				unauthorized(w)
				return
			}
			ctx := WithUser(r.Context(), identity.User{ID: claims.UserID, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}
