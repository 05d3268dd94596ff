package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaultline/vaultyield-backend/api/responses"
	"github.com/vaultline/vaultyield-backend/api/validators"
	"github.com/vaultline/vaultyield-backend/internal/approvals"
	"github.com/vaultline/vaultyield-backend/internal/journal"
	"github.com/vaultline/vaultyield-backend/pkg/enums"
	pkgerrors "github.com/vaultline/vaultyield-backend/pkg/errors"
	"github.com/vaultline/vaultyield-backend/pkg/logger"
)

type depositRequest struct {
	AccountID string          `json:"account_id" validate:"required,uuid"`
	Amount    decimal.Decimal `json:"amount"`
	ProofKey  string          `json:"proof_key" validate:"required"`
}

// RequestDeposit records a pending deposit awaiting admin review.
func RequestDeposit(svc approvals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "approvals service unavailable"))
			return
		}

		var req depositRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		accountID, err := uuid.Parse(req.AccountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account id"))
			return
		}

		txn, err := svc.RequestDeposit(r.Context(), approvals.DepositInput{
			AccountID: accountID,
			Amount:    req.Amount,
			ProofKey:  req.ProofKey,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, txn)
	}
}

type withdrawalRequest struct {
	AccountID   string          `json:"account_id" validate:"required,uuid"`
	Amount      decimal.Decimal `json:"amount"`
	Destination string          `json:"destination" validate:"required"`
}

// RequestWithdrawal escrows the amount and records a pending withdrawal.
func RequestWithdrawal(svc approvals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "approvals service unavailable"))
			return
		}

		var req withdrawalRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		accountID, err := uuid.Parse(req.AccountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account id"))
			return
		}

		txn, err := svc.RequestWithdrawal(r.Context(), approvals.WithdrawalInput{
			AccountID:   accountID,
			Amount:      req.Amount,
			Destination: req.Destination,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, txn)
	}
}

// PendingApprovals lists pending entries of an approvable kind for review.
func PendingApprovals(svc journal.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "journal service unavailable"))
			return
		}

		kind := enums.TransactionKind(strings.TrimSpace(r.URL.Query().Get("kind")))
		if kind != "" && !kind.Approvable() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "kind must be an approvable transaction kind"))
			return
		}

		entries, err := svc.PendingApprovals(r.Context(), kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}

// ApproveTransaction resolves a pending entry as completed and applies its
// ledger effect.
func ApproveTransaction(svc approvals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "approvals service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "transactionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction id"))
			return
		}

		txn, err := svc.Approve(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, txn)
	}
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// RejectTransaction resolves a pending entry as rejected, releasing any
// escrowed funds.
func RejectTransaction(svc approvals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "approvals service unavailable"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "transactionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction id"))
			return
		}

		var req rejectRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.Reject(r.Context(), id, req.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, txn)
	}
}
