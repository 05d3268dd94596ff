package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vaultline/vaultyield-backend/internal/accrual"
	"github.com/vaultline/vaultyield-backend/internal/cron"
	"github.com/vaultline/vaultyield-backend/internal/investments"
	"github.com/vaultline/vaultyield-backend/internal/journal"
	"github.com/vaultline/vaultyield-backend/internal/ledger"
	"github.com/vaultline/vaultyield-backend/internal/notify"
	"github.com/vaultline/vaultyield-backend/internal/plans"
	"github.com/vaultline/vaultyield-backend/pkg/config"
	"github.com/vaultline/vaultyield-backend/pkg/db"
	"github.com/vaultline/vaultyield-backend/pkg/logger"
	"github.com/vaultline/vaultyield-backend/pkg/metrics"
	"github.com/vaultline/vaultyield-backend/pkg/migrate"
	"github.com/vaultline/vaultyield-backend/pkg/redis"
)

const lockKeyFormat = "vy:accrual-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "accrual-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "accrual-worker"

	logg = logger.New(logger.Options{
		ServiceName: "accrual-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gormDB := dbClient.DB()
	runner := db.NewRetryRunner(gormDB, cfg.Ledger.RetryAttempts, cfg.Ledger.RetryBase)

	catalog, err := plans.NewCatalog(plans.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create plan catalog", err)
		os.Exit(1)
	}
	if err := catalog.Load(context.Background()); err != nil {
		logg.Error(context.Background(), "failed to load plan catalog", err)
		os.Exit(1)
	}

	dispatcher, err := notify.NewDispatcher(notify.NewRepository(gormDB), logg, cfg.Notify.QueueSize)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification dispatcher", err)
		os.Exit(1)
	}
	defer dispatcher.Close()

	ledgerRepo := ledger.NewRepository(gormDB)
	journalRepo := journal.NewRepository(gormDB)
	positionsRepo := investments.NewRepository(gormDB)

	investmentsSvc, err := investments.NewService(investments.ServiceParams{
		Positions: positionsRepo,
		Ledger:    ledgerRepo,
		Journal:   journalRepo,
		Catalog:   catalog,
		Runner:    runner,
		Sink:      dispatcher,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create investments service", err)
		os.Exit(1)
	}

	accrualMetrics := metrics.NewAccrualMetrics(prometheus.DefaultRegisterer)
	accrualSvc, err := accrual.NewService(accrual.ServiceParams{
		Positions:     positionsRepo,
		Ledger:        ledgerRepo,
		Journal:       journalRepo,
		Runs:          accrual.NewRepository(gormDB),
		Investments:   investmentsSvc,
		Runner:        runner,
		Sink:          dispatcher,
		Logger:        logg,
		Metrics:       accrualMetrics,
		AnchorHourUTC: cfg.Accrual.AnchorHourUTC,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create accrual service", err)
		os.Exit(1)
	}

	accrualJob, err := accrual.NewJob(accrualSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create accrual job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Accrual.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create worker lock", err)
		os.Exit(1)
	}

	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:        logg,
		Registry:      cron.NewRegistry(accrualJob),
		Lock:          lock,
		Metrics:       jobMetrics,
		Interval:      cfg.Accrual.Interval,
		AnchorHourUTC: cfg.Accrual.AnchorHourUTC,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"anchor_hour": cfg.Accrual.AnchorHourUTC,
	})
	logg.Info(ctx, "starting accrual worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "accrual worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "accrual worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
