package httptransport

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"medgate/internal/platform/metrics"
	"medgate/internal/platform/middleware"
)

// RouterConfig carries everything the router needs wired in. All fields
// are required except Health, which defaults to always-OK.
type RouterConfig struct {
	Identity  *IdentityHandler
	Access    *AccessHandler
	Validator middleware.TokenValidator
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Timeout   time.Duration
	Health    func() error

	// ThrottleRPS caps process-wide request throughput; zero disables it.
	ThrottleRPS   float64
	ThrottleBurst int
}

// NewRouter assembles the full HTTP surface: public claim and health
// endpoints, authenticated patient and grant routes, and the metrics
// scrape endpoint.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(instrument(cfg.Metrics))
	if cfg.ThrottleRPS > 0 {
		r.Use(middleware.Throttle(rate.Limit(cfg.ThrottleRPS), cfg.ThrottleBurst))
	}
	if cfg.Timeout > 0 {
		r.Use(middleware.Timeout(cfg.Timeout))
	}

	r.Get("/health", healthHandler(cfg.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Claiming is how an unauthenticated patient bootstraps their account, so
	// it sits outside the auth wall. The handler applies its own rate limit.
	r.With(middleware.ContentTypeJSON).Post("/identity/claim", cfg.Identity.handleClaim)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(cfg.Validator, cfg.Logger))

		r.With(middleware.ContentTypeJSON).Post("/patients", cfg.Identity.handleCreateProfile)
		r.Get("/patients", cfg.Access.handleListPatients)
		r.Get("/patients/{patientID}", cfg.Access.handleGetPatient)

		r.With(middleware.ContentTypeJSON).Post("/grants", cfg.Access.handleRequestGrant)
		r.With(middleware.ContentTypeJSON).Post("/grants/{grantID}/review", cfg.Access.handleReviewGrant)
		r.Get("/grants", cfg.Access.handleListGrants)
	})

	return r
}

func healthHandler(check func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// instrument records request duration per route pattern and status.
func instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			m.RequestDuration.
				WithLabelValues(route, strconv.Itoa(sw.status)).
				Observe(time.Since(start).Seconds())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
