package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaultline/vaultyield-backend/api/responses"
	"github.com/vaultline/vaultyield-backend/api/validators"
	"github.com/vaultline/vaultyield-backend/internal/journal"
	"github.com/vaultline/vaultyield-backend/internal/ledger"
	pkgerrors "github.com/vaultline/vaultyield-backend/pkg/errors"
	"github.com/vaultline/vaultyield-backend/pkg/logger"
)

const defaultHistoryLimit = 50

type createAccountRequest struct {
	ID             string          `json:"id"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// CreateAccount provisions a ledger account, optionally with a caller
// supplied id and opening balance.
func CreateAccount(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		var req createAccountRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := ledger.CreateAccountInput{OpeningBalance: req.OpeningBalance}
		if req.ID != "" {
			id, err := uuid.Parse(req.ID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account id"))
				return
			}
			input.ID = id
		}

		account, err := svc.CreateAccount(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, account)
	}
}

// GetAccount returns the current balances for an account.
func GetAccount(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "accountId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account id"))
			return
		}

		account, err := svc.GetAccount(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, account)
	}
}

// AccountHistory returns the newest journal entries for an account.
func AccountHistory(svc journal.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "journal service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "accountId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account id"))
			return
		}

		limit, err := validators.Limit(r, defaultHistoryLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.History(r.Context(), id, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}
