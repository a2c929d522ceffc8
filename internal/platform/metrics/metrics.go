package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	ProfilesCreated prometheus.Counter
	ClaimsSucceeded prometheus.Counter
	ClaimsRejected  prometheus.Counter

	// IdentifierExhaustions should stay at zero; any increment is an
	// operational alert, since it likely means the entropy source failed.
	IdentifierExhaustions prometheus.Counter

	AccessChecks     *prometheus.CounterVec
	RateLimitDenials prometheus.Counter
	CleanupDeletions prometheus.Counter

	RequestDuration *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ProfilesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medgate_profiles_created_total",
			Help: "Unclaimed patient profiles created by doctors",
		}),
		ClaimsSucceeded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medgate_claims_succeeded_total",
			Help: "Identifier claims that completed the unclaimed to claimed transition",
		}),
		ClaimsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medgate_claims_rejected_total",
			Help: "Identifier claims rejected as not found or already claimed",
		}),
		IdentifierExhaustions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medgate_identifier_exhaustions_total",
			Help: "Identifier issuance loops that ran out of attempts",
		}),
		AccessChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "medgate_access_checks_total",
			Help: "Doctor to patient access resolutions by outcome",
		}, []string{"outcome"}),
		RateLimitDenials: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medgate_rate_limit_denials_total",
			Help: "Requests denied by the sliding window limiter",
		}),
		CleanupDeletions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medgate_cleanup_deletions_total",
			Help: "Expired unclaimed profiles removed by the retention job",
		}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medgate_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// NewForTest creates metrics on a private registry so parallel tests do not
// collide on registration.
func NewForTest() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		ProfilesCreated:       factory.NewCounter(prometheus.CounterOpts{Name: "medgate_profiles_created_total"}),
		ClaimsSucceeded:       factory.NewCounter(prometheus.CounterOpts{Name: "medgate_claims_succeeded_total"}),
		ClaimsRejected:        factory.NewCounter(prometheus.CounterOpts{Name: "medgate_claims_rejected_total"}),
		IdentifierExhaustions: factory.NewCounter(prometheus.CounterOpts{Name: "medgate_identifier_exhaustions_total"}),
		AccessChecks:          factory.NewCounterVec(prometheus.CounterOpts{Name: "medgate_access_checks_total"}, []string{"outcome"}),
		RateLimitDenials:      factory.NewCounter(prometheus.CounterOpts{Name: "medgate_rate_limit_denials_total"}),
		CleanupDeletions:      factory.NewCounter(prometheus.CounterOpts{Name: "medgate_cleanup_deletions_total"}),
		RequestDuration:       factory.NewHistogramVec(prometheus.HistogramOpts{Name: "medgate_http_request_duration_seconds"}, []string{"route", "status"}),
	}
}
