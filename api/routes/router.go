package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vaultline/vaultyield-backend/api/controllers"
	"github.com/vaultline/vaultyield-backend/api/middleware"
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
	"github.com/vaultline/vaultyield-backend/pkg/logger"
)

// Services bundles everything the router wires into handlers.
type Services struct {
	Ledger      ledger.Service
	Journal     journal.Service
	Catalog     plans.Catalog
	Investments investments.Service
	Approvals   approvals.Service
	Projects    projects.Service
	Notify      notify.Service
	AdminAccess adminaccess.Service
	Accrual     accrual.Service
}

// Pinger is satisfied by the database and redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP, redisP Pinger,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/plans", func(r chi.Router) {
			r.Get("/", controllers.ListPlans(svcs.Catalog, logg))
			r.Get("/{planId}", controllers.GetPlan(svcs.Catalog, logg))
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", controllers.CreateAccount(svcs.Ledger, logg))
			r.Get("/{accountId}", controllers.GetAccount(svcs.Ledger, logg))
			r.Get("/{accountId}/transactions", controllers.AccountHistory(svcs.Journal, logg))
			r.Get("/{accountId}/investments", controllers.ListInvestments(svcs.Investments, logg))
			r.Get("/{accountId}/notifications", controllers.NotificationFeed(svcs.Notify, logg))
		})

		r.Route("/investments", func(r chi.Router) {
			r.Post("/", controllers.OpenInvestment(svcs.Investments, logg))
			r.Get("/{positionId}", controllers.GetInvestment(svcs.Investments, logg))
			r.Get("/{positionId}/accruals", controllers.PositionAccruals(svcs.Accrual, logg))
		})

		r.Post("/deposits", controllers.RequestDeposit(svcs.Approvals, logg))
		r.Post("/withdrawals", controllers.RequestWithdrawal(svcs.Approvals, logg))

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", controllers.ListProjects(svcs.Projects, logg))
			r.Get("/{projectId}", controllers.GetProject(svcs.Projects, logg))
			r.Post("/{projectId}/invest", controllers.InvestProject(svcs.Projects, logg))
		})

		r.Post("/notifications/{notificationId}/read", controllers.MarkNotificationRead(svcs.Notify, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		if !cfg.App.IsProd() {
			r.Post("/leases", controllers.GrantAdminLease(svcs.AdminAccess, logg))
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminLease(svcs.AdminAccess, logg))

			r.Route("/approvals", func(r chi.Router) {
				r.Get("/", controllers.PendingApprovals(svcs.Journal, logg))
				r.Post("/{transactionId}/approve", controllers.ApproveTransaction(svcs.Approvals, logg))
				r.Post("/{transactionId}/reject", controllers.RejectTransaction(svcs.Approvals, logg))
			})

			r.Post("/accrual/run", controllers.RunAccrual(svcs.Accrual, logg))

			r.Post("/leases/revoke", controllers.RevokeAdminLease(svcs.AdminAccess, logg))
			r.Post("/leases/revoke-subject", controllers.RevokeAdminSubject(svcs.AdminAccess, logg))
		})
	})

	return r
}
