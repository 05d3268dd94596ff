package adminaccess

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vaultline/vaultyield-backend/pkg/config"
	pkgerrors "github.com/vaultline/vaultyield-backend/pkg/errors"
)

var leaseDBSeq atomic.Int64

func newLeaseService(t *testing.T, ttl time.Duration) (*service, Repository) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s-%d?mode=memory&cache=shared", t.Name(), leaseDBSeq.Add(1))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(`CREATE TABLE admin_leases (
		id TEXT PRIMARY KEY,
		subject TEXT NOT NULL,
		token_hash TEXT NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME,
		created_at DATETIME
	)`).Error)

	repo := NewRepository(conn)
	svc, err := NewService(repo, config.AdminLeaseConfig{Secret: "test-secret", TTL: ttl})
	require.NoError(t, err)
	return svc.(*service), repo
}

func TestGrantAndCheck(t *testing.T) {
	svc, _ := newLeaseService(t, 30*time.Minute)

	lease, err := svc.Grant(context.Background(), "ops@vaultline")
	require.NoError(t, err)
	require.NotEmpty(t, lease.Token)

	subject, err := svc.Check(context.Background(), lease.Token)
	require.NoError(t, err)
	require.Equal(t, "ops@vaultline", subject)
}

func TestCheckRejectsRevokedLease(t *testing.T) {
	svc, _ := newLeaseService(t, 30*time.Minute)

	lease, err := svc.Grant(context.Background(), "ops@vaultline")
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(context.Background(), lease.Token))

	_, err = svc.Check(context.Background(), lease.Token)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized), "got %v", err)
}

func TestCheckRejectsExpiredLease(t *testing.T) {
	svc, _ := newLeaseService(t, 30*time.Minute)

	lease, err := svc.Grant(context.Background(), "ops@vaultline")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(31 * time.Minute) }
	_, err = svc.Check(context.Background(), lease.Token)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized), "got %v", err)
}

func TestCheckRejectsForgedToken(t *testing.T) {
	svc, _ := newLeaseService(t, 30*time.Minute)

	_, err := svc.Check(context.Background(), "not-a-token")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized), "got %v", err)

	other, otherRepo := newLeaseService(t, 30*time.Minute)
	_ = otherRepo
	foreign, err := other.Grant(context.Background(), "ops@elsewhere")
	require.NoError(t, err)

	// signed with the same secret but unknown to this store
	_, err = svc.Check(context.Background(), foreign.Token)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized), "got %v", err)
}

func TestRevokeSubjectInvalidatesAllLeases(t *testing.T) {
	svc, _ := newLeaseService(t, 30*time.Minute)

	first, err := svc.Grant(context.Background(), "ops@vaultline")
	require.NoError(t, err)
	second, err := svc.Grant(context.Background(), "ops@vaultline")
	require.NoError(t, err)
	bystander, err := svc.Grant(context.Background(), "audit@vaultline")
	require.NoError(t, err)

	revoked, err := svc.RevokeSubject(context.Background(), "ops@vaultline")
	require.NoError(t, err)
	require.EqualValues(t, 2, revoked)

	_, err = svc.Check(context.Background(), first.Token)
	require.Error(t, err)
	_, err = svc.Check(context.Background(), second.Token)
	require.Error(t, err)

	subject, err := svc.Check(context.Background(), bystander.Token)
	require.NoError(t, err)
	require.Equal(t, "audit@vaultline", subject)
}

func TestGrantValidation(t *testing.T) {
	svc, _ := newLeaseService(t, 30*time.Minute)

	_, err := svc.Grant(context.Background(), "")
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}
