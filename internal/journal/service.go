package journal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaultline/vaultyield-backend/pkg/db"
	"github.com/vaultline/vaultyield-backend/pkg/db/models"
	"github.com/vaultline/vaultyield-backend/pkg/enums"
	pkgerrors "github.com/vaultline/vaultyield-backend/pkg/errors"
	"gorm.io/gorm"
)

// Service defines read and append operations on the transaction journal.
// Resolution lives with the approval workflow, which pairs the status flip
// with its ledger effect in one transaction.
type Service interface {
	Append(ctx context.Context, input AppendInput) (*models.Transaction, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	History(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Transaction, error)
	PendingApprovals(ctx context.Context, kind enums.TransactionKind) ([]models.Transaction, error)
}

// AppendInput captures the immutable data a journal entry requires.
type AppendInput struct {
	AccountID   uuid.UUID             `json:"account_id"`
	Kind        enums.TransactionKind `json:"kind"`
	Amount      decimal.Decimal       `json:"amount"`
	Fee         decimal.Decimal       `json:"fee"`
	Status      enums.TransactionStatus
	ProofKey    *string
	ReferenceID *uuid.UUID
	Destination *string
}

type service struct {
	repo   Repository
	runner db.TxRunner
}

// NewService wires a journal service with the provided repository and
// transaction runner.
func NewService(repo Repository, runner db.TxRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("journal repository required")
	}
	if runner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{repo: repo, runner: runner}, nil
}

func (s *service) Append(ctx context.Context, input AppendInput) (*models.Transaction, error) {
	txn, err := BuildEntry(input)
	if err != nil {
		return nil, err
	}
	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Create(ctx, txn)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "idx_transactions_proof_key") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDuplicateHash, err, "proof already submitted")
		}
		return nil, err
	}
	return txn, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	txn, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, err
	}
	return txn, nil
}

func (s *service) History(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Transaction, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	return s.repo.ListByAccount(ctx, accountID, limit)
}

func (s *service) PendingApprovals(ctx context.Context, kind enums.TransactionKind) ([]models.Transaction, error) {
	if kind != "" && !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction kind %q", kind))
	}
	return s.repo.ListPending(ctx, kind)
}

// BuildEntry validates input and constructs a journal entry without
// persisting it. Flows that append inside a wider transaction build the
// entry here and create it through a tx-bound repository.
func BuildEntry(input AppendInput) (*models.Transaction, error) {
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction kind %q", input.Kind))
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.Fee.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fee cannot be negative")
	}
	if input.Kind == enums.TransactionKindDeposit && (input.ProofKey == nil || *input.ProofKey == "") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "deposit requires a proof key")
	}

	status := input.Status
	if status == "" {
		status = enums.TransactionStatusPending
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction status %q", status))
	}

	return &models.Transaction{
		ID:          uuid.New(),
		AccountID:   input.AccountID,
		Kind:        input.Kind,
		Amount:      input.Amount,
		Fee:         input.Fee,
		Status:      status,
		ProofKey:    input.ProofKey,
		ReferenceID: input.ReferenceID,
		Destination: input.Destination,
	}, nil
}
