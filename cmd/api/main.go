package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vaultline/vaultyield-backend/api/routes"
	"github.com/vaultline/vaultyield-backend/internal/accrual"
	"github.com/vaultline/vaultyield-backend/internal/adminaccess"
	"github.com/vaultline/vaultyield-backend/internal/approvals"
	"github.com/vaultline/vaultyield-backend/internal/investments"
	"github.com/vaultline/vaultyield-backend/internal/journal"
	"github.com/vaultline/vaultyield-backend/internal/ledger"
	"github.com/vaultline/vaultyield-backend/internal/notify"
	"github.com/vaultline/vaultyield-backend/internal/plans"
	"github.com/vaultline/vaultyield-backend/internal/projects"
	"github.com/vaultline/vaultyield-backend/pkg/config"
	"github.com/vaultline/vaultyield-backend/pkg/db"
	"github.com/vaultline/vaultyield-backend/pkg/logger"
	"github.com/vaultline/vaultyield-backend/pkg/metrics"
	"github.com/vaultline/vaultyield-backend/pkg/migrate"
	"github.com/vaultline/vaultyield-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	ledgerSvc, err := ledger.NewService(ledgerRepo, runner)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	journalSvc, err := journal.NewService(journalRepo, runner)
	if err != nil {
		logg.Error(context.Background(), "failed to create journal service", err)
		os.Exit(1)
	}

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

	approvalsSvc, err := approvals.NewService(approvals.ServiceParams{
		Journal: journalRepo,
		Ledger:  ledgerRepo,
		Runner:  runner,
		Sink:    dispatcher,
		Logger:  logg,
		Config:  cfg.Approvals,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create approvals service", err)
		os.Exit(1)
	}

	projectsSvc, err := projects.NewService(projects.ServiceParams{
		Projects: projects.NewRepository(gormDB),
		Ledger:   ledgerRepo,
		Journal:  journalRepo,
		Runner:   runner,
		Sink:     dispatcher,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create projects service", err)
		os.Exit(1)
	}

	notifySvc, err := notify.NewService(notify.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create notify service", err)
		os.Exit(1)
	}

	adminAccessSvc, err := adminaccess.NewService(adminaccess.NewRepository(gormDB), cfg.AdminLease)
	if err != nil {
		logg.Error(context.Background(), "failed to create admin access service", err)
		os.Exit(1)
	}

	accrualSvc, err := accrual.NewService(accrual.ServiceParams{
		Positions:     positionsRepo,
		Ledger:        ledgerRepo,
		Journal:       journalRepo,
		Runs:          accrual.NewRepository(gormDB),
		Investments:   investmentsSvc,
		Runner:        runner,
		Sink:          dispatcher,
		Logger:        logg,
		Metrics:       metrics.NewAccrualMetrics(prometheus.DefaultRegisterer),
		AnchorHourUTC: cfg.Accrual.AnchorHourUTC,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create accrual service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, routes.Services{
			Ledger:      ledgerSvc,
			Journal:     journalSvc,
			Catalog:     catalog,
			Investments: investmentsSvc,
			Approvals:   approvalsSvc,
			Projects:    projectsSvc,
			Notify:      notifySvc,
			AdminAccess: adminAccessSvc,
			Accrual:     accrualSvc,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}

	logg.Info(ctx, "api server shutting down gracefully")
}
