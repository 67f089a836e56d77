package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"rental-backoffice/backend/internal/audit"
	auditrepo "rental-backoffice/backend/internal/audit/repository"
	"rental-backoffice/backend/internal/config"
	"rental-backoffice/backend/internal/db"
	"rental-backoffice/backend/internal/health"
	identityhandler "rental-backoffice/backend/internal/identity/handler"
	identityservice "rental-backoffice/backend/internal/identity/service"
	"rental-backoffice/backend/internal/logging"
	"rental-backoffice/backend/internal/policy/engine"
	"rental-backoffice/backend/internal/security"
	"rental-backoffice/backend/internal/server"
	"rental-backoffice/backend/internal/server/middleware"
	"rental-backoffice/backend/internal/session/pruner"
	sessionrepo "rental-backoffice/backend/internal/session/repository"
	"rental-backoffice/backend/internal/telemetry"
	otelsetup "rental-backoffice/backend/internal/telemetry/otel"
	"rental-backoffice/backend/internal/telemetry/producer"
	userrepo "rental-backoffice/backend/internal/user/repository"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.OTelServiceName)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	providers, err := otelsetup.NewProviders(ctx, otelsetup.Config{
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: cfg.OTelServiceName,
		Insecure:    cfg.OTelInsecure,
	})
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	providers.SetGlobal()

	kafka, err := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	sinks := telemetry.Fanout{otelsetup.NewEventEmitter(providers.LoggerProvider)}
	if kafka != nil {
		sinks = append(sinks, kafka)
		logger.Info("telemetry streaming to kafka", zap.String("topic", cfg.TelemetryKafkaTopic))
	}
	emitter := telemetry.NewAsync(sinks, logger)

	var database *sql.DB
	if cfg.SessionStore != config.StoreMemory {
		if database, err = db.Open(ctx, cfg.DatabaseURL); err != nil {
			return err
		}
		defer database.Close()
	}

	var (
		users    identityservice.UserRepo
		audits   auditrepo.Repository
		sessions identityservice.SessionRepo
		rdb      *redis.Client
	)
	if database != nil {
		users = userrepo.NewPostgresRepository(database)
		audits = auditrepo.NewPostgresRepository(database)
	} else {
		logger.Warn("using in-memory stores; data is lost on restart")
		users = userrepo.NewMemoryRepository()
		audits = auditrepo.NewMemoryRepository()
	}

	var prunable pruner.ExpiredDeleter
	switch cfg.SessionStore {
	case config.StoreRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis url: %w", err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
		store := sessionrepo.NewRedisRepository(rdb)
		sessions, prunable = store, store
	case config.StoreMemory:
		store := sessionrepo.NewMemoryRepository()
		sessions, prunable = store, store
	default:
		store := sessionrepo.NewPostgresRepository(database)
		sessions, prunable = store, store
	}

	accessKey, err := security.LoadSecret(cfg.JWTAccessSecret)
	if err != nil {
		return fmt.Errorf("JWT_ACCESS_SECRET: %w", err)
	}
	refreshKey, err := security.LoadSecret(cfg.JWTRefreshSecret)
	if err != nil {
		return fmt.Errorf("JWT_REFRESH_SECRET: %w", err)
	}
	tokens, err := security.NewTokenCodec(accessKey, refreshKey, cfg.JWTIssuer, cfg.AccessTTL(), cfg.RefreshTTL())
	if err != nil {
		return err
	}

	roles, err := engine.NewOPAEvaluatorFromFile(ctx, cfg.RolePolicyFile)
	if err != nil {
		return err
	}

	authService := identityservice.NewAuthService(users, sessions, security.NewHasher(cfg.BcryptCost), tokens,
		identityservice.WithAuditLogger(audit.NewLogger(audits, middleware.ClientIP, logger)),
		identityservice.WithEventEmitter(emitter),
		identityservice.WithLogger(logger),
	)

	extraChecks := map[string]health.CheckFunc{}
	if rdb != nil {
		extraChecks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	var pinger health.Pinger
	if database != nil {
		pinger = database
	}
	healthHandler := health.NewHandler(pinger, roles, extraChecks, logger)

	prune := pruner.New(prunable, logger)
	if err := prune.Start(cfg.SessionPruneSchedule); err != nil {
		return err
	}
	defer prune.Stop()

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: server.NewRouter(server.Deps{
			Auth:        authService,
			Tokens:      tokens,
			Roles:       roles,
			AuditRepo:   audits,
			Health:      healthHandler,
			Emitter:     emitter,
			Cookie:      identityhandler.CookieConfig{Secure: cfg.CookieSecure, Domain: cfg.CookieDomain},
			CORSOrigins: cfg.CORSOrigins(),
			Logger:      logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr), zap.String("session_store", cfg.SessionStore))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	case sig := <-quit:
		logger.Info("shutting down HTTP server", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", zap.Error(err))
	}

	if err := emitter.Drain(shutdownCtx); err != nil {
		logger.Warn("telemetry drain", zap.Error(err))
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Warn("otel shutdown", zap.Error(err))
	}
	if err := kafka.Close(); err != nil {
		logger.Warn("kafka producer close", zap.Error(err))
	}
	logger.Info("HTTP server stopped")
	return nil
}
