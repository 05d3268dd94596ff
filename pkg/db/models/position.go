package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaultline/vaultyield-backend/pkg/enums"
)

// Position is one investment against a plan. Rate and duration are
// snapshotted at open time; later plan edits never touch a live position.
type Position struct {
	ID                 uuid.UUID            `gorm:"type:uuid;primaryKey"`
	AccountID          uuid.UUID            `gorm:"column:account_id;type:uuid;not null;index"`
	PlanID             uuid.UUID            `gorm:"column:plan_id;type:uuid;not null"`
	PlanName           string               `gorm:"column:plan_name;not null"`
	Principal          decimal.Decimal      `gorm:"column:principal;type:numeric(18,2);not null"`
	DailyRate          decimal.Decimal      `gorm:"column:daily_rate;type:numeric(8,4);not null"`
	DurationDays       int                  `gorm:"column:duration_days;not null"`
	PerPeriodCredit    decimal.Decimal      `gorm:"column:per_period_credit;type:numeric(18,2);not null"`
	CumulativeCredited decimal.Decimal      `gorm:"column:cumulative_credited;type:numeric(18,2);not null;default:0"`
	Status             enums.PositionStatus `gorm:"column:status;not null;default:'active';index"`
	OpenedAt           time.Time            `gorm:"column:opened_at;not null"`
	MaturesAt          time.Time            `gorm:"column:matures_at;not null"`
	CompletedAt        *time.Time           `gorm:"column:completed_at"`
}

// CreditCap is the lifetime accrual ceiling: per-period credit times the
// snapshotted duration. CumulativeCredited never exceeds it.
func (p Position) CreditCap() decimal.Decimal {
	return p.PerPeriodCredit.Mul(decimal.NewFromInt(int64(p.DurationDays)))
}

// Matured reports whether the position has reached its maturity time.
func (p Position) Matured(now time.Time) bool {
	return !now.Before(p.MaturesAt)
}
