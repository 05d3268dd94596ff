package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Plan is fixed-rate reference data. The ledger core reads plans but never
// writes them; positions snapshot the fields they need at open time.
type Plan struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Name         string          `gorm:"column:name;not null;unique"`
	Description  string          `gorm:"column:description"`
	DailyRate    decimal.Decimal `gorm:"column:daily_rate;type:numeric(8,4);not null"`
	DurationDays int             `gorm:"column:duration_days;not null"`
	MinAmount    decimal.Decimal `gorm:"column:min_amount;type:numeric(18,2);not null"`
	MaxAmount    decimal.Decimal `gorm:"column:max_amount;type:numeric(18,2);not null"`
	Active       bool            `gorm:"column:active;not null;default:true"`
	Features     pq.StringArray  `gorm:"column:features;type:text[]"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}
