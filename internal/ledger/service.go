package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vaultline/vaultyield-backend/pkg/db"
	"github.com/vaultline/vaultyield-backend/pkg/db/models"
	pkgerrors "github.com/vaultline/vaultyield-backend/pkg/errors"
)

// Service defines balance operations on accounts. Standalone calls run in
// their own retried transaction; composed flows use the repository through
// WithTx inside a caller-owned transaction instead.
type Service interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	CreateAccount(ctx context.Context, input CreateAccountInput) (*models.Account, error)
	Credit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) error
	Debit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) error
	EscrowDebit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) error
}

// CreateAccountInput captures the data a new account requires.
type CreateAccountInput struct {
	ID             uuid.UUID       `json:"id"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

type service struct {
	repo   Repository
	runner db.TxRunner
}

// NewService wires a ledger service with the provided repository and
// transaction runner.
func NewService(repo Repository, runner db.TxRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if runner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{repo: repo, runner: runner}, nil
}

func (s *service) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, err
	}
	return account, nil
}

func (s *service) CreateAccount(ctx context.Context, input CreateAccountInput) (*models.Account, error) {
	if input.OpeningBalance.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "opening balance cannot be negative")
	}
	id := input.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	account := &models.Account{
		ID:      id,
		Balance: input.OpeningBalance,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *service) Credit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) error {
	if err := validateMove(accountID, amount); err != nil {
		return err
	}
	return s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Credit(ctx, accountID, amount)
	})
}

func (s *service) Debit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) error {
	if err := validateMove(accountID, amount); err != nil {
		return err
	}
	return s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Debit(ctx, accountID, amount)
	})
}

func (s *service) EscrowDebit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) error {
	if err := validateMove(accountID, amount); err != nil {
		return err
	}
	return s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).EscrowDebit(ctx, accountID, amount)
	})
}

func validateMove(accountID uuid.UUID, amount decimal.Decimal) error {
	if accountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if !amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	return nil
}
