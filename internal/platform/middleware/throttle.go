package middleware

import (
	"net/http"

	"golang.org/x/time/rate"
)

// Throttle applies a process-wide token bucket in front of routing. It is a
// flood shield, not an abuse control: per-caller budgets (the claim sliding
// window) are enforced in the domain layer where the key material lives.
func Throttle(rps rate.Limit, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rps, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
