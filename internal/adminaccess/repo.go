package adminaccess

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vaultline/vaultyield-backend/pkg/db/models"
)

// Repository manages persistence for admin leases.
type Repository interface {
	Create(ctx context.Context, lease *models.AdminLease) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.AdminLease, error)
	Revoke(ctx context.Context, id uuid.UUID, revokedAt time.Time) error
	RevokeAllForSubject(ctx context.Context, subject string, revokedAt time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an admin lease repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, lease *models.AdminLease) error {
	return r.db.WithContext(ctx).Create(lease).Error
}

func (r *repository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.AdminLease, error) {
	var lease models.AdminLease
	if err := r.db.WithContext(ctx).First(&lease, "token_hash = ?", tokenHash).Error; err != nil {
		return nil, err
	}
	return &lease, nil
}

func (r *repository) Revoke(ctx context.Context, id uuid.UUID, revokedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.AdminLease{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", revokedAt.UTC()).Error
}

func (r *repository) RevokeAllForSubject(ctx context.Context, subject string, revokedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.AdminLease{}).
		Where("subject = ? AND revoked_at IS NULL", subject).
		Update("revoked_at", revokedAt.UTC())
	return res.RowsAffected, res.Error
}
