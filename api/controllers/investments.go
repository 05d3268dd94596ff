package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaultline/vaultyield-backend/api/responses"
	"github.com/vaultline/vaultyield-backend/api/validators"
	"github.com/vaultline/vaultyield-backend/internal/investments"
	pkgerrors "github.com/vaultline/vaultyield-backend/pkg/errors"
	"github.com/vaultline/vaultyield-backend/pkg/logger"
)

type openInvestmentRequest struct {
	AccountID string          `json:"account_id" validate:"required,uuid"`
	PlanID    string          `json:"plan_id" validate:"required,uuid"`
	Amount    decimal.Decimal `json:"amount"`
}

// OpenInvestment debits the principal and opens a plan position.
func OpenInvestment(svc investments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "investments service unavailable"))
			return
		}

		var req openInvestmentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		accountID, err := uuid.Parse(req.AccountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account id"))
			return
		}
		planID, err := uuid.Parse(req.PlanID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plan id"))
			return
		}

		position, err := svc.Open(r.Context(), investments.OpenInput{
			AccountID: accountID,
			PlanID:    planID,
			Amount:    req.Amount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, position)
	}
}

// GetInvestment returns a single position.
func GetInvestment(svc investments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "investments service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "positionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid position id"))
			return
		}

		position, err := svc.GetPosition(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, position)
	}
}

// ListInvestments returns every position for an account, newest first.
func ListInvestments(svc investments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "investments service unavailable"))
			return
		}

		accountID, err := uuid.Parse(chi.URLParam(r, "accountId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account id"))
			return
		}

		positions, err := svc.ListPositions(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, positions)
	}
}
