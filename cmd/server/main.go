package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"medgate/internal/access"
	"medgate/internal/credential"
	"medgate/internal/guard"
	"medgate/internal/identity"
	"medgate/internal/platform/config"
	"medgate/internal/platform/database"
	"medgate/internal/platform/httpserver"
	"medgate/internal/platform/logger"
	"medgate/internal/platform/metrics"
	"medgate/internal/platform/middleware"
	platformredis "medgate/internal/platform/redis"
	"medgate/internal/ratelimit"
	"medgate/internal/records"
	httptransport "medgate/internal/transport/http"
	"medgate/pkg/identifier"
	"medgate/pkg/platform/audit"
	auditkafka "medgate/pkg/platform/audit/kafka"
	auditworker "medgate/pkg/platform/audit/worker"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages; everything here is selection
// (postgres vs memory, redis vs local, kafka vs outbox) and shutdown order.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("server exited with error", "error", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Storage. No database URL means fully in-memory: local development and
	// smoke tests run with zero infrastructure.
	var (
		patientStore identity.Store
		grantStore   access.GrantStore
		recordStore  access.RecordDirectory
		health       func() error
	)
	if cfg.DatabaseURL != "" {
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return err
		}
		pool, err := database.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		patientStore = identity.NewPostgresStore(pool)
		grantStore = access.NewPostgresGrantStore(pool)
		recordStore = records.NewPostgresStore(pool)
		health = func() error { return pool.Ping(context.Background()) }
		log.Info("using postgres storage")
	} else {
		patientStore = identity.NewInMemoryStore()
		grantStore = access.NewInMemoryGrantStore()
		recordStore = records.NewInMemoryStore()
		log.Warn("no database configured, using in-memory storage")
	}

	// Audit pipeline: handlers publish into an in-process inbox, a worker
	// drains it into the configured sink so request latency never pays for
	// audit persistence.
	auditSink, closeSink, err := buildAuditSink(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSink()

	inbox := make(chan audit.Event, 1024)
	auditor := audit.NewPublisher(auditworker.NewChannelStore(inbox), log)
	worker := auditworker.New(auditSink, inbox, log)

	// Rate limiting: redis-backed sliding window when configured, otherwise
	// process-local (fine for a single instance).
	var limitStore ratelimit.Store
	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		limitStore = ratelimit.NewRedisStore(redisClient.Client)
		log.Info("using redis rate limit store")
	} else {
		limitStore = ratelimit.NewInMemoryStore()
	}
	limiter := ratelimit.NewLimiter(limitStore, log, m)

	// Domain services.
	hasher := credential.NewBcryptHasher()
	identitySvc := identity.NewService(patientStore, hasher, log, m, auditor)
	resolver := access.NewResolver(patientStore, grantStore, recordStore, log, m)
	grantSvc := access.NewGrantService(grantStore, log, auditor)
	temporal := guard.NewTemporalValidator(identifier.Patient,
		guard.WithRetentionDays(cfg.RetentionDays))
	retention := guard.NewRetentionJob(patientStore, log, m, auditor, cfg.RetentionDays,
		guard.WithInterval(cfg.CleanupInterval))

	validator := middleware.NewHMACValidator(cfg.JWTSigningKey)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Identity:  httptransport.NewIdentityHandler(identitySvc, temporal, limiter, auditor, log, cfg.ClaimMaxAttempts, cfg.ClaimWindow),
		Access:    httptransport.NewAccessHandler(resolver, grantSvc, patientStore, auditor, log),
		Validator: validator,
		Logger:    log,
		Metrics:   m,
		Timeout:   cfg.RequestTimeout,
		Health:    health,

		ThrottleRPS:   cfg.ThrottleRPS,
		ThrottleBurst: cfg.ThrottleBurst,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return ignoreCancel(worker.Run(ctx))
	})
	g.Go(func() error {
		return ignoreCancel(retention.Run(ctx))
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// ignoreCancel maps a context-cancellation error to nil so an ordinary
// shutdown does not read as a failure.
func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// buildAuditSink picks where drained audit events land: kafka when brokers
// are configured, the postgres outbox when only a database is, and memory as
// the last resort.
func buildAuditSink(ctx context.Context, cfg config.Config, log *slog.Logger) (audit.Store, func(), error) {
	noop := func() {}

	if len(cfg.KafkaBrokers) > 0 {
		client, err := kgo.NewClient(
			kgo.SeedBrokers(cfg.KafkaBrokers...),
			kgo.DefaultProduceTopic(cfg.AuditTopic),
		)
		if err != nil {
			return nil, noop, err
		}
		if err := auditkafka.EnsureTopic(ctx, client, cfg.AuditTopic, 3); err != nil {
			client.Close()
			return nil, noop, err
		}
		log.Info("audit events go to kafka", "topic", cfg.AuditTopic)
		return auditkafka.NewSink(client, cfg.AuditTopic), client.Close, nil
	}

	if cfg.DatabaseURL != "" {
		db, err := database.NewSQL(cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		log.Info("audit events go to the database outbox")
		return audit.NewPostgresStore(db), func() { _ = db.Close() }, nil
	}

	log.Warn("audit events held in memory only")
	return audit.NewInMemoryStore(), noop, nil
}
