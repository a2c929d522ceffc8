package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

// ClientMeta is the request-origin context attached to audit events.
type ClientMeta struct {
	IP      string
	Agent   string
	Browser string
	OS      string
	Bot     bool
}

type contextKeyClientMeta struct{}

// ClientMetadata extracts the caller's IP and a parsed user agent early in
// the chain so downstream audit emission has origin context.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawUA := r.Header.Get("User-Agent")
		ua := useragent.New(rawUA)
		browser, version := ua.Browser()

		meta := ClientMeta{
			IP:      clientIP(r),
			Agent:   rawUA,
			Browser: strings.TrimSpace(browser + " " + version),
			OS:      ua.OS(),
			Bot:     ua.Bot(),
		}
		ctx := context.WithValue(r.Context(), contextKeyClientMeta{}, meta)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClientMeta retrieves the client metadata from the context.
func GetClientMeta(ctx context.Context) ClientMeta {
	if m, ok := ctx.Value(contextKeyClientMeta{}).(ClientMeta); ok {
		return m
	}
	return ClientMeta{IP: "unknown"}
}

// WithClientMeta injects metadata for service tests that skip the chain.
func WithClientMeta(ctx context.Context, meta ClientMeta) context.Context {
	return context.WithValue(ctx, contextKeyClientMeta{}, meta)
}

// clientIP resolves the original client address behind proxies.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	if addr == "" {
		return "unknown"
	}
	return addr
}
