package controllers

import (
	"net/http"
	"time"

	"github.com/vaultline/vaultyield-backend/api/middleware"
	"github.com/vaultline/vaultyield-backend/api/responses"
	"github.com/vaultline/vaultyield-backend/api/validators"
	"github.com/vaultline/vaultyield-backend/internal/adminaccess"
	pkgerrors "github.com/vaultline/vaultyield-backend/pkg/errors"
	"github.com/vaultline/vaultyield-backend/pkg/logger"
)

type grantLeaseRequest struct {
	Subject string `json:"subject" validate:"required"`
}

type grantLeaseResponse struct {
	LeaseID   string    `json:"lease_id"`
	Subject   string    `json:"subject"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GrantAdminLease issues a short-lived admin lease token. The token is
// returned once and never stored in the clear.
func GrantAdminLease(svc adminaccess.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin access service unavailable"))
			return
		}

		var req grantLeaseRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lease, err := svc.Grant(r.Context(), req.Subject)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, grantLeaseResponse{
			LeaseID:   lease.ID.String(),
			Subject:   lease.Subject,
			Token:     lease.Token,
			ExpiresAt: lease.ExpiresAt,
		})
	}
}

// RevokeAdminLease revokes the lease presented on this request.
func RevokeAdminLease(svc adminaccess.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin access service unavailable"))
			return
		}

		token := middleware.AdminTokenFromContext(r.Context())
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing admin lease token"))
			return
		}

		if err := svc.Revoke(r.Context(), token); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "revoked"})
	}
}

type revokeSubjectRequest struct {
	Subject string `json:"subject" validate:"required"`
}

// RevokeAdminSubject revokes every active lease held by a subject.
func RevokeAdminSubject(svc adminaccess.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin access service unavailable"))
			return
		}

		var req revokeSubjectRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		revoked, err := svc.RevokeSubject(r.Context(), req.Subject)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"revoked": revoked})
	}
}
