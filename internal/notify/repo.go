package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vaultline/vaultyield-backend/pkg/db/models"
)

// Repository manages persistence for in-app notifications.
type Repository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID, readAt time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a notification repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	q := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *repository) MarkRead(ctx context.Context, id uuid.UUID, readAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND read_at IS NULL", id).
		Update("read_at", readAt).Error
}
