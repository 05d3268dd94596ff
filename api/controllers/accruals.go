package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vaultline/vaultyield-backend/api/responses"
	"github.com/vaultline/vaultyield-backend/internal/accrual"
	pkgerrors "github.com/vaultline/vaultyield-backend/pkg/errors"
	"github.com/vaultline/vaultyield-backend/pkg/logger"
)

// RunAccrual triggers one accrual pass outside the scheduled cadence.
// The per-period run markers make this safe to call at any time; a pass
// that already happened reports skips instead of double-crediting.
func RunAccrual(svc accrual.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "accrual service unavailable"))
			return
		}

		report, err := svc.RunOnce(r.Context())
		if err != nil && logg != nil {
			// partial passes still return the report so operators can
			// see what landed before the failure
			ctx := logg.WithField(r.Context(), "period", report.Period)
			logg.Error(ctx, "manual accrual pass finished with failures", err)
		}
		responses.WriteSuccess(w, report)
	}
}

// PositionAccruals returns the per-period credit trail for a position.
func PositionAccruals(svc accrual.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "accrual service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "positionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid position id"))
			return
		}

		runs, err := svc.History(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, runs)
	}
}
