package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vaultline/vaultyield-backend/pkg/enums"
)

// Notification stores in-app messages scoped to accounts.
type Notification struct {
	ID        uuid.UUID              `gorm:"type:uuid;primaryKey"`
	AccountID uuid.UUID              `gorm:"column:account_id;type:uuid;not null;index"`
	Kind      enums.NotificationKind `gorm:"column:kind;not null"`
	Title     string                 `gorm:"column:title;not null"`
	Message   string                 `gorm:"column:message;not null"`
	ReadAt    *time.Time             `gorm:"column:read_at"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}
