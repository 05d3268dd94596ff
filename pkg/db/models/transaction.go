package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaultline/vaultyield-backend/pkg/enums"
)

// Transaction is an append-only journal entry. Amount, kind and account
// never change after insert; only status and resolved_at may transition,
// and only once, from pending to a terminal status.
type Transaction struct {
	ID           uuid.UUID               `gorm:"type:uuid;primaryKey"`
	AccountID    uuid.UUID               `gorm:"column:account_id;type:uuid;not null;index"`
	Kind         enums.TransactionKind   `gorm:"column:kind;not null"`
	Amount       decimal.Decimal         `gorm:"column:amount;type:numeric(18,2);not null"`
	Fee          decimal.Decimal         `gorm:"column:fee;type:numeric(18,2);not null;default:0"`
	Status       enums.TransactionStatus `gorm:"column:status;not null;default:'pending';index"`
	ProofKey     *string                 `gorm:"column:proof_key;uniqueIndex:idx_transactions_proof_key"`
	ReferenceID  *uuid.UUID              `gorm:"column:reference_id;type:uuid;index"`
	Destination  *string                 `gorm:"column:destination"`
	RejectReason *string                 `gorm:"column:reject_reason"`
	CreatedAt    time.Time               `gorm:"column:created_at;autoCreateTime"`
	ResolvedAt   *time.Time              `gorm:"column:resolved_at"`
}
