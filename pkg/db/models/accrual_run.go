package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccrualRun proves a position was credited for a period. The unique
// (position_id, period) index is the at-most-once guard for the accrual
// job; the row commits in the same transaction as the balance credit.
type AccrualRun struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PositionID uuid.UUID       `gorm:"column:position_id;type:uuid;not null;uniqueIndex:idx_accrual_runs_position_period"`
	Period     string          `gorm:"column:period;not null;uniqueIndex:idx_accrual_runs_position_period"`
	Amount     decimal.Decimal `gorm:"column:amount;type:numeric(18,2);not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}
