package models

import (
	"time"

	"github.com/google/uuid"
)

// AdminLease backs admin access tokens. A lease is valid while its expiry
// is in the future and it has not been revoked; the row is the source of
// truth across service instances.
type AdminLease struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Subject   string     `gorm:"column:subject;not null"`
	TokenHash string     `gorm:"column:token_hash;not null;unique"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null"`
	RevokedAt *time.Time `gorm:"column:revoked_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}
