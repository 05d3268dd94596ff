package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Project is a one-off funding opportunity, separate from recurring plans.
type Project struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Title          string          `gorm:"column:title;not null"`
	Description    string          `gorm:"column:description"`
	Category       string          `gorm:"column:category;not null"`
	TargetAmount   decimal.Decimal `gorm:"column:target_amount;type:numeric(18,2);not null"`
	RaisedAmount   decimal.Decimal `gorm:"column:raised_amount;type:numeric(18,2);not null;default:0"`
	ExpectedReturn decimal.Decimal `gorm:"column:expected_return;type:numeric(8,4);not null"`
	DurationMonths int             `gorm:"column:duration_months;not null"`
	MinInvestment  decimal.Decimal `gorm:"column:min_investment;type:numeric(18,2);not null"`
	MaxInvestment  decimal.Decimal `gorm:"column:max_investment;type:numeric(18,2);not null"`
	Deadline       time.Time       `gorm:"column:deadline;not null"`
	Active         bool            `gorm:"column:active;not null;default:true"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}
