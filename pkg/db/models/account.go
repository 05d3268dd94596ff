package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account holds a user's available and escrowed funds. Accounts are
// provisioned outside the ledger core; the core only mutates balances.
type Account struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Balance       decimal.Decimal `gorm:"column:balance;type:numeric(18,2);not null;default:0"`
	EscrowBalance decimal.Decimal `gorm:"column:escrow_balance;type:numeric(18,2);not null;default:0"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
