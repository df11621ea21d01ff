package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/atlas-erp/atlas-erp/internal/accounting/balances"
	"github.com/atlas-erp/atlas-erp/internal/accounting/fixedassets"
	"github.com/atlas-erp/atlas-erp/internal/accounting/journals"
	"github.com/atlas-erp/atlas-erp/internal/accounting/periods"
	"github.com/atlas-erp/atlas-erp/internal/app"
	jobmetrics "github.com/atlas-erp/atlas-erp/internal/jobs"
	"github.com/atlas-erp/atlas-erp/internal/platform/db"
	"github.com/atlas-erp/atlas-erp/internal/shared"
	"github.com/atlas-erp/atlas-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	auditLogger := shared.NewAuditLogger(pool)
	eventStore := shared.NewProcessedEventStore(pool)
	metrics := jobmetrics.NewMetrics(nil)

	journalsRepo := journals.NewRepository(pool)
	journalsService := journals.NewService(journalsRepo, auditLogger)

	periodsRepo := periods.NewRepository(pool)

	balancesRepo := balances.NewRepository(pool)
	trialBalanceCache := balances.NewRedisCache(redisClient, cfg.TrialBalanceCacheTTL)
	balancesService := balances.NewService(balancesRepo, periodsRepo, trialBalanceCache, cfg.TrialBalanceTolerance)

	assetsRepo := fixedassets.NewRepository(pool)
	assetsService := fixedassets.NewService(assetsRepo, journalsService, auditLogger)

	depreciationJob := jobs.NewDepreciationRunJob(assetsService, logger, metrics)
	refreshJob := jobs.NewBalancesRefreshJob(periodsRepo, balancesService, logger, metrics)
	integrityJob := jobs.NewGLIntegrityJob(periodsRepo, balancesService, logger, metrics)
	cleanupJob := jobs.NewEventsCleanupJob(eventStore, logger, metrics)

	depreciationTask, err := jobs.NewDepreciationRunTask(jobs.DepreciationRunPayload{})
	if err != nil {
		logger.Error("build depreciation task", slog.Any("error", err))
		os.Exit(1)
	}
	refreshTask, err := jobs.NewBalancesRefreshTask(jobs.BalancesRefreshPayload{})
	if err != nil {
		logger.Error("build refresh task", slog.Any("error", err))
		os.Exit(1)
	}
	integrityTask, err := jobs.NewGLIntegrityTask(jobs.GLIntegrityPayload{})
	if err != nil {
		logger.Error("build integrity task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewEventsCleanupTask(jobs.EventsCleanupPayload{Retention: cfg.EventRetention})
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskDepreciationRun, Handler: depreciationJob.Handle},
			{Type: jobs.TaskBalancesRefresh, Handler: refreshJob.Handle},
			{Type: jobs.TaskGLIntegrity, Handler: integrityJob.Handle},
			{Type: jobs.TaskEventsCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 2 1 * *", Task: depreciationTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 * * * *", Task: refreshTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 1 * * *", Task: integrityTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 3 * * 0", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
