package middleware

import (
	"context"
	"net/http"

	"github.com/vaultline/vaultyield-backend/api/responses"
	"github.com/vaultline/vaultyield-backend/api/validators"
	"github.com/vaultline/vaultyield-backend/internal/adminaccess"
	pkgerrors "github.com/vaultline/vaultyield-backend/pkg/errors"
	"github.com/vaultline/vaultyield-backend/pkg/logger"
)

type contextKey string

const (
	adminSubjectKey contextKey = "admin_subject"
	adminTokenKey   contextKey = "admin_token"
)

// AdminLease guards admin routes behind a valid lease token. The subject
// is attached to the request context for downstream handlers and logs.
func AdminLease(svc adminaccess.Service, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if svc == nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin access service unavailable"))
				return
			}

			token := validators.BearerToken(r)
			if token == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing admin lease token"))
				return
			}

			subject, err := svc.Check(ctx, token)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			ctx = context.WithValue(ctx, adminSubjectKey, subject)
			ctx = context.WithValue(ctx, adminTokenKey, token)
			if logg != nil {
				ctx = logg.WithField(ctx, "admin_subject", subject)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminSubjectFromContext returns the subject set by AdminLease, or "".
func AdminSubjectFromContext(ctx context.Context) string {
	subject, _ := ctx.Value(adminSubjectKey).(string)
	return subject
}

// AdminTokenFromContext returns the lease token set by AdminLease, or "".
func AdminTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(adminTokenKey).(string)
	return token
}
