package adminaccess

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vaultline/vaultyield-backend/pkg/config"
	"github.com/vaultline/vaultyield-backend/pkg/db/models"
	pkgerrors "github.com/vaultline/vaultyield-backend/pkg/errors"
)

const tokenIssuer = "vaultyield"

var jwtSigningMethod = jwt.SigningMethodHS256

// Service issues and verifies admin leases. A lease pairs a signed token
// with a storage row; revoking or expiring the row invalidates the token
// on every service instance at once.
type Service interface {
	Grant(ctx context.Context, subject string) (*Lease, error)
	Check(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string) error
	RevokeSubject(ctx context.Context, subject string) (int64, error)
}

// Lease is a granted admin session.
type Lease struct {
	ID        uuid.UUID
	Subject   string
	Token     string
	ExpiresAt time.Time
}

type leaseClaims struct {
	Subject string `json:"sub_name"`
	jwt.RegisteredClaims
}

type service struct {
	repo Repository
	cfg  config.AdminLeaseConfig
	now  func() time.Time
}

// NewService wires an admin lease service with the provided repository.
func NewService(repo Repository, cfg config.AdminLeaseConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("admin lease repository required")
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("admin lease secret required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("admin lease ttl must be positive")
	}
	return &service{repo: repo, cfg: cfg, now: time.Now}, nil
}

// Grant mints a lease token and records its hash.
func (s *service) Grant(ctx context.Context, subject string) (*Lease, error) {
	if subject == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subject is required")
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.cfg.TTL)
	leaseID := uuid.New()

	claims := leaseClaims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        leaseID.String(),
		},
	}
	token, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("signing lease token: %w", err)
	}

	lease := &models.AdminLease{
		ID:        leaseID,
		Subject:   subject,
		TokenHash: hashToken(token),
		ExpiresAt: expiresAt,
	}
	if err := s.repo.Create(ctx, lease); err != nil {
		return nil, err
	}

	return &Lease{
		ID:        leaseID,
		Subject:   subject,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Check verifies the token signature and the lease row. Both must be
// valid; the row is the revocation authority.
func (s *service) Check(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "lease token required")
	}

	claims := &leaseClaims{}
	_, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", t.Header["alg"])
			}
			return []byte(s.cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(tokenIssuer),
	)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid lease token")
	}

	lease, err := s.repo.GetByTokenHash(ctx, hashToken(token))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "lease not found")
		}
		return "", err
	}
	if lease.RevokedAt != nil {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "lease revoked")
	}
	if !s.now().UTC().Before(lease.ExpiresAt) {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "lease expired")
	}
	return lease.Subject, nil
}

// Revoke invalidates the lease behind a token.
func (s *service) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "lease token required")
	}
	lease, err := s.repo.GetByTokenHash(ctx, hashToken(token))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "lease not found")
		}
		return err
	}
	return s.repo.Revoke(ctx, lease.ID, s.now().UTC())
}

// RevokeSubject invalidates every active lease held by a subject.
func (s *service) RevokeSubject(ctx context.Context, subject string) (int64, error) {
	if subject == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "subject is required")
	}
	return s.repo.RevokeAllForSubject(ctx, subject, s.now().UTC())
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
