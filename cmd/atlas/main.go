package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/atlas-erp/atlas-erp/cmd/atlas/cli"
	"github.com/atlas-erp/atlas-erp/internal/accounting/accounts"
	"github.com/atlas-erp/atlas-erp/internal/accounting/balances"
	"github.com/atlas-erp/atlas-erp/internal/accounting/fixedassets"
	"github.com/atlas-erp/atlas-erp/internal/accounting/journals"
	"github.com/atlas-erp/atlas-erp/internal/accounting/mappings"
	"github.com/atlas-erp/atlas-erp/internal/accounting/periods"
	"github.com/atlas-erp/atlas-erp/internal/accounting/reconciliation"
	"github.com/atlas-erp/atlas-erp/internal/app"
	"github.com/atlas-erp/atlas-erp/internal/audit"
	"github.com/atlas-erp/atlas-erp/internal/integration"
	"github.com/atlas-erp/atlas-erp/internal/observability"
	"github.com/atlas-erp/atlas-erp/internal/platform/db"
	"github.com/atlas-erp/atlas-erp/internal/shared"
	"github.com/atlas-erp/atlas-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		if err := runJobsCommand(ctx, cfg, os.Args[2:]); err != nil {
			logger.Error("jobs command", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)
	eventStore := shared.NewProcessedEventStore(dbpool)

	accountsRepo := accounts.NewRepository(dbpool)
	accountsService := accounts.NewService(accountsRepo)
	accountsHandler := accounts.NewHandler(logger, accountsService)

	journalsRepo := journals.NewRepository(dbpool)
	journalsService := journals.NewService(journalsRepo, auditLogger)
	journalsHandler := journals.NewHandler(logger, journalsService)

	periodsRepo := periods.NewRepository(dbpool)

	balancesRepo := balances.NewRepository(dbpool)
	trialBalanceCache := balances.NewRedisCache(redisClient, cfg.TrialBalanceCacheTTL)
	balancesService := balances.NewService(balancesRepo, periodsRepo, trialBalanceCache, cfg.TrialBalanceTolerance)
	balancesHandler := balances.NewHandler(logger, balancesService)

	periodsService := periods.NewService(periodsRepo, auditLogger, balancesService)
	periodsHandler := periods.NewHandler(logger, periodsService)

	reconRepo := reconciliation.NewRepository(dbpool)
	matcher := reconciliation.NewAmountDateMatcher(cfg.ReconMatchWindowDays)
	reconService := reconciliation.NewService(reconRepo, matcher, auditLogger)
	reconHandler := reconciliation.NewHandler(logger, reconService)

	assetsRepo := fixedassets.NewRepository(dbpool)
	assetsService := fixedassets.NewService(assetsRepo, journalsService, auditLogger)
	assetsHandler := fixedassets.NewHandler(logger, assetsService)

	mappingsRepo := mappings.NewRepository(dbpool)
	mappingsHandler := mappings.NewHandler(logger, mappingsRepo)

	hooks := integration.NewHooks(logger, journalsService, mappingsRepo, eventStore)
	integrationHandler := integration.NewHandler(logger, hooks)

	auditRepo := audit.NewRepository(dbpool)
	auditService := audit.NewService(auditRepo)
	auditHandler := audit.NewHandler(logger, auditService)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:                logger,
		Config:                cfg,
		AccountsHandler:       accountsHandler,
		JournalsHandler:       journalsHandler,
		PeriodsHandler:        periodsHandler,
		BalancesHandler:       balancesHandler,
		ReconciliationHandler: reconHandler,
		FixedAssetsHandler:    assetsHandler,
		MappingsHandler:       mappingsHandler,
		AuditHandler:          auditHandler,
		IntegrationHandler:    integrationHandler,
		JobsHandler:           jobsHandler,
		Metrics:               metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func runJobsCommand(ctx context.Context, cfg *app.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: atlas jobs <trigger TASK|stats>")
	}
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		_ = jobsCLI.Close()
	}()

	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			return fmt.Errorf("usage: atlas jobs trigger TASK")
		}
		info, err := jobsCLI.Trigger(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", args[1], info.ID, info.Queue)
		return nil
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return nil
	default:
		return fmt.Errorf("jobs: unknown subcommand %s", args[0])
	}
}
