package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vaultline/vaultyield-backend/internal/adminaccess"
	"github.com/vaultline/vaultyield-backend/pkg/config"
	pkgerrors "github.com/vaultline/vaultyield-backend/pkg/errors"
	"github.com/vaultline/vaultyield-backend/pkg/logger"
)

type okPinger struct{}

func (okPinger) Ping(ctx context.Context) error { return nil }

type stubAdminAccess struct {
	subject string
}

func (s *stubAdminAccess) Grant(ctx context.Context, subject string) (*adminaccess.Lease, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (s *stubAdminAccess) Check(ctx context.Context, token string) (string, error) {
	if token != "valid-lease" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "admin lease rejected")
	}
	return s.subject, nil
}

func (s *stubAdminAccess) Revoke(ctx context.Context, token string) error { return nil }

func (s *stubAdminAccess) RevokeSubject(ctx context.Context, subject string) (int64, error) {
	return 0, nil
}

func testRouter(t *testing.T, env string) http.Handler {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Env = env
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return NewRouter(cfg, logg, okPinger{}, okPinger{}, Services{
		AdminAccess: &stubAdminAccess{subject: "ops"},
	})
}

func TestHealthEndpoints(t *testing.T) {
	router := testRouter(t, "dev")

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, path)
		require.Equal(t, "dev", rec.Header().Get("X-VaultYield-Env"))
	}
}

func TestAdminRoutesRequireLease(t *testing.T) {
	router := testRouter(t, "dev")

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/approvals", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRoutesAcceptValidLease(t *testing.T) {
	router := testRouter(t, "dev")

	// journal service is not wired in this harness, so a valid lease
	// reaches the handler and gets its internal guard response
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/approvals", nil)
	req.Header.Set("Authorization", "Bearer valid-lease")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLeaseGrantHiddenInProd(t *testing.T) {
	devRouter := testRouter(t, "dev")
	prodRouter := testRouter(t, "prod")

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/leases", nil)
	rec := httptest.NewRecorder()
	devRouter.ServeHTTP(rec, req)
	require.NotEqual(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/admin/v1/leases", nil)
	rec = httptest.NewRecorder()
	prodRouter.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestIDHeaderIsSet(t *testing.T) {
	router := testRouter(t, "dev")

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}
