package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server needs from the environment. FromEnv
// applies development defaults so main stays lean; production overrides via
// MEDGATE_* variables.
type Config struct {
	Addr string

	// DatabaseURL empty means in-memory stores (local development, tests).
	DatabaseURL string
	// RedisURL empty means the process-local rate limit store.
	RedisURL string
	// KafkaBrokers empty means audit events go to the postgres outbox (or
	// memory when no database is configured either).
	KafkaBrokers []string
	AuditTopic   string

	JWTSigningKey string

	RetentionDays   int
	CleanupInterval time.Duration

	// Claim rate limit: attempts per window, keyed identifier+client IP.
	ClaimMaxAttempts int
	ClaimWindow      time.Duration

	// Process-wide request throttle; zero disables it.
	ThrottleRPS   float64
	ThrottleBurst int

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func FromEnv() Config {
	return Config{
		Addr:             envOr("MEDGATE_ADDR", ":8080"),
		DatabaseURL:      os.Getenv("MEDGATE_DATABASE_URL"),
		RedisURL:         os.Getenv("MEDGATE_REDIS_URL"),
		KafkaBrokers:     splitList(os.Getenv("MEDGATE_KAFKA_BROKERS")),
		AuditTopic:       envOr("MEDGATE_AUDIT_TOPIC", "medgate.audit"),
		JWTSigningKey:    envOr("MEDGATE_JWT_SIGNING_KEY", "dev-secret-change-in-production"),
		RetentionDays:    envOrInt("MEDGATE_RETENTION_DAYS", 365),
		CleanupInterval:  envOrDuration("MEDGATE_CLEANUP_INTERVAL", 24*time.Hour),
		ClaimMaxAttempts: envOrInt("MEDGATE_CLAIM_MAX_ATTEMPTS", 5),
		ClaimWindow:      envOrDuration("MEDGATE_CLAIM_WINDOW", 15*time.Minute),
		ThrottleRPS:      envOrFloat("MEDGATE_THROTTLE_RPS", 100),
		ThrottleBurst:    envOrInt("MEDGATE_THROTTLE_BURST", 200),
		RequestTimeout:   envOrDuration("MEDGATE_REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:  envOrDuration("MEDGATE_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envOrDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
