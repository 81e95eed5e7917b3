package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"eduplatform/internal/cache"
	"eduplatform/internal/config"
	"eduplatform/internal/database"
	"eduplatform/internal/handlers"
	"eduplatform/internal/jobs"
	"eduplatform/internal/metrics"
	"eduplatform/internal/queue"
	"eduplatform/internal/repository"
	"eduplatform/internal/security"
	"eduplatform/internal/server"
	"eduplatform/internal/service"
)

func runServe(_ *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect postgres")
		return err
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		dbPool.Close()
		logger.Error().Err(err).Msg("failed to connect redis")
		return err
	}

	m := metrics.New()
	handlerSet, err := buildHandlers(cfg, logger, dbPool, redisClient, m)
	if err != nil {
		dbPool.Close()
		_ = redisClient.Close()
		return err
	}
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet, m)

	scheduler := jobs.NewScheduler(queue.NewProducer(redisClient, cfg.Queue.Stream), cfg.Jobs.SessionSweepSchedule, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
	return nil
}

func buildHandlers(cfg *config.AppConfig, logger zerolog.Logger, db *pgxpool.Pool, redisClient *redis.Client, m *metrics.Metrics) (handlers.HandlerSet, error) {
	tokens, err := security.NewTokenIssuer(
		cfg.Security.JWTSecret,
		security.WithAccessTTL(cfg.Security.JWTAccessTTL),
		security.WithIssuer(cfg.Security.JWTIssuer),
	)
	if err != nil {
		return handlers.HandlerSet{}, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	ledger := service.NewSessionLedger(repository.NewSessionRepository(db), logger, service.WithLedgerMetrics(m))
	audit := service.NewAuditLog(repository.NewEventRepository(db), logger, service.WithAuditMetrics(m))
	deps := service.Dependencies{
		Identities: repository.NewIdentityRepository(db),
		Ledger:     ledger,
		Audit:      audit,
		OneTime:    cache.NewOneTimeTokens(redisClient),
		Hasher:     security.NewPasswordHasher(security.Argon2Params(cfg.Security.Argon2)),
		Tokens:     tokens,
	}

	var services []*service.AuthService
	for _, policy := range service.Policies() {
		svc, err := service.NewAuthService(policy, deps, cfg.Security, logger)
		if err != nil {
			return handlers.HandlerSet{}, err
		}
		services = append(services, svc)
	}

	return handlers.NewHandlerSet(logger, cfg, handlers.Dependencies{
		Services: services,
		Audit:    audit,
		Tokens:   tokens,
		Throttle: cache.NewAttemptCounter(redisClient),
		Metrics:  m,
		HealthChecks: map[string]handlers.HealthCheck{
			"postgres": db.Ping,
			"redis": func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		},
	}), nil
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop()

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
