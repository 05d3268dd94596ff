package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vaultline/vaultyield-backend/pkg/db/models"
	pkgerrors "github.com/vaultline/vaultyield-backend/pkg/errors"
)

// Repository manages persistence for account balances. All balance moves
// are single guarded UPDATE statements so they stay atomic without row
// locks; a zero rows-affected result means the guard rejected the move.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context, id uuid.UUID) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) error
	Credit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
	Debit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
	EscrowDebit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
	EscrowRelease(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
	EscrowSettle(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
}

type repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db, now: time.Now}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx, now: r.now}
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) Create(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) Credit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE accounts SET balance = balance + CAST(? AS NUMERIC), updated_at = ? WHERE id = ?`,
		amount, r.now().UTC(), id,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}
	return nil
}

func (r *repository) Debit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE accounts SET balance = balance - CAST(? AS NUMERIC), updated_at = ?
		 WHERE id = ? AND balance >= CAST(? AS NUMERIC)`,
		amount, r.now().UTC(), id, amount,
	)
	return r.guardResult(ctx, res, id, pkgerrors.CodeInsufficientFunds, "available balance too low")
}

func (r *repository) EscrowDebit(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE accounts
		 SET balance = balance - CAST(? AS NUMERIC),
		     escrow_balance = escrow_balance + CAST(? AS NUMERIC),
		     updated_at = ?
		 WHERE id = ? AND balance >= CAST(? AS NUMERIC)`,
		amount, amount, r.now().UTC(), id, amount,
	)
	return r.guardResult(ctx, res, id, pkgerrors.CodeInsufficientFunds, "available balance too low")
}

func (r *repository) EscrowRelease(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE accounts
		 SET escrow_balance = escrow_balance - CAST(? AS NUMERIC),
		     balance = balance + CAST(? AS NUMERIC),
		     updated_at = ?
		 WHERE id = ? AND escrow_balance >= CAST(? AS NUMERIC)`,
		amount, amount, r.now().UTC(), id, amount,
	)
	return r.guardResult(ctx, res, id, pkgerrors.CodeInternal, "escrow balance too low")
}

func (r *repository) EscrowSettle(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE accounts SET escrow_balance = escrow_balance - CAST(? AS NUMERIC), updated_at = ?
		 WHERE id = ? AND escrow_balance >= CAST(? AS NUMERIC)`,
		amount, r.now().UTC(), id, amount,
	)
	return r.guardResult(ctx, res, id, pkgerrors.CodeInternal, "escrow balance too low")
}

// guardResult distinguishes "guard rejected" from "account missing" after a
// guarded UPDATE touched zero rows.
func (r *repository) guardResult(ctx context.Context, res *gorm.DB, id uuid.UUID, code pkgerrors.Code, msg string) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}
	return pkgerrors.New(code, msg)
}
