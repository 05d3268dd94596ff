package approvals

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vaultline/vaultyield-backend/internal/journal"
	"github.com/vaultline/vaultyield-backend/internal/ledger"
	"github.com/vaultline/vaultyield-backend/internal/notify"
	"github.com/vaultline/vaultyield-backend/pkg/config"
	"github.com/vaultline/vaultyield-backend/pkg/db"
	"github.com/vaultline/vaultyield-backend/pkg/db/models"
	"github.com/vaultline/vaultyield-backend/pkg/enums"
	pkgerrors "github.com/vaultline/vaultyield-backend/pkg/errors"
	"github.com/vaultline/vaultyield-backend/pkg/logger"
)

// Service runs the approval workflow for deposits and withdrawals. A
// request opens a pending journal entry; an admin decision resolves it
// exactly once and applies the matching ledger effect in the same
// transaction.
type Service interface {
	RequestDeposit(ctx context.Context, input DepositInput) (*models.Transaction, error)
	RequestWithdrawal(ctx context.Context, input WithdrawalInput) (*models.Transaction, error)
	Approve(ctx context.Context, transactionID uuid.UUID) (*models.Transaction, error)
	Reject(ctx context.Context, transactionID uuid.UUID, reason string) (*models.Transaction, error)
}

// DepositInput captures a user's claim that funds were sent.
type DepositInput struct {
	AccountID uuid.UUID       `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	ProofKey  string          `json:"proof_key"`
}

// WithdrawalInput captures a request to pay funds out.
type WithdrawalInput struct {
	AccountID   uuid.UUID       `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Destination string          `json:"destination"`
}

// ServiceParams bundles the dependencies for NewService.
type ServiceParams struct {
	Journal journal.Repository
	Ledger  ledger.Repository
	Runner  db.TxRunner
	Sink    notify.Sink
	Logger  *logger.Logger
	Config  config.ApprovalsConfig
	Now     func() time.Time
}

type service struct {
	journal journal.Repository
	ledger  ledger.Repository
	runner  db.TxRunner
	sink    notify.Sink
	logg    *logger.Logger
	cfg     config.ApprovalsConfig
	now     func() time.Time
}

// NewService wires an approval service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Journal == nil {
		return nil, fmt.Errorf("journal repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Runner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	sink := params.Sink
	if sink == nil {
		sink = notify.NoopSink{}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		journal: params.Journal,
		ledger:  params.Ledger,
		runner:  params.Runner,
		sink:    sink,
		logg:    params.Logger,
		cfg:     params.Config,
		now:     now,
	}, nil
}

func (s *service) RequestDeposit(ctx context.Context, input DepositInput) (*models.Transaction, error) {
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if input.ProofKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "proof key is required")
	}
	if input.Amount.LessThan(s.cfg.MinDeposit) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("minimum deposit is %s", s.cfg.MinDeposit))
	}

	exists, err := s.journal.HasProofKey(ctx, input.ProofKey)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, pkgerrors.New(pkgerrors.CodeDuplicateHash, "proof already submitted")
	}

	proofKey := input.ProofKey
	entry, err := journal.BuildEntry(journal.AppendInput{
		AccountID: input.AccountID,
		Kind:      enums.TransactionKindDeposit,
		Amount:    input.Amount,
		ProofKey:  &proofKey,
	})
	if err != nil {
		return nil, err
	}

	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		return s.journal.WithTx(tx).Create(ctx, entry)
	})
	if err != nil {
		// unique index catches the race the pre-check missed
		if db.IsUniqueViolation(err, "idx_transactions_proof_key") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDuplicateHash, err, "proof already submitted")
		}
		return nil, err
	}

	s.sink.Publish(notify.Event{
		AccountID: input.AccountID,
		Kind:      enums.NotificationKindDeposit,
		Title:     "Deposit submitted",
		Message:   fmt.Sprintf("Deposit of %s is awaiting review", input.Amount),
	})
	return entry, nil
}

func (s *service) RequestWithdrawal(ctx context.Context, input WithdrawalInput) (*models.Transaction, error) {
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if input.Destination == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "destination is required")
	}
	if input.Amount.LessThan(s.cfg.MinWithdrawal) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("minimum withdrawal is %s", s.cfg.MinWithdrawal))
	}
	if !input.Amount.GreaterThan(s.cfg.WithdrawalFee) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount does not cover the withdrawal fee")
	}

	destination := input.Destination
	entry, err := journal.BuildEntry(journal.AppendInput{
		AccountID:   input.AccountID,
		Kind:        enums.TransactionKindWithdrawal,
		Amount:      input.Amount,
		Fee:         s.cfg.WithdrawalFee,
		Destination: &destination,
	})
	if err != nil {
		return nil, err
	}

	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.ledger.WithTx(tx).EscrowDebit(ctx, input.AccountID, input.Amount); err != nil {
			return err
		}
		return s.journal.WithTx(tx).Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.sink.Publish(notify.Event{
		AccountID: input.AccountID,
		Kind:      enums.NotificationKindWithdrawal,
		Title:     "Withdrawal requested",
		Message:   fmt.Sprintf("Withdrawal of %s is awaiting review", input.Amount),
	})
	return entry, nil
}

// Approve resolves a pending transaction and applies its ledger effect.
// The status flip is a compare-and-set, so a concurrent decision on the
// same transaction loses with TRANSACTION_NOT_PENDING and no double
// credit or settle can occur.
func (s *service) Approve(ctx context.Context, transactionID uuid.UUID) (*models.Transaction, error) {
	return s.resolve(ctx, transactionID, enums.TransactionStatusCompleted, nil)
}

// Reject resolves a pending transaction without honoring it. Escrowed
// withdrawal funds return to the available balance in full.
func (s *service) Reject(ctx context.Context, transactionID uuid.UUID, reason string) (*models.Transaction, error) {
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reject reason is required")
	}
	return s.resolve(ctx, transactionID, enums.TransactionStatusRejected, &reason)
}

func (s *service) resolve(ctx context.Context, transactionID uuid.UUID, status enums.TransactionStatus, reason *string) (*models.Transaction, error) {
	if transactionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}

	var resolved *models.Transaction
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		resolved = nil
		journalTx := s.journal.WithTx(tx)
		txn, err := journalTx.GetByID(ctx, transactionID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
			}
			return err
		}
		if !txn.Kind.Approvable() {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("%s transactions are not subject to approval", txn.Kind))
		}

		resolvedAt := s.now().UTC()
		if err := journalTx.Resolve(ctx, txn.ID, status, reason, resolvedAt); err != nil {
			return err
		}

		ledgerTx := s.ledger.WithTx(tx)
		switch {
		case txn.Kind == enums.TransactionKindDeposit && status == enums.TransactionStatusCompleted:
			if err := ledgerTx.Credit(ctx, txn.AccountID, txn.Amount); err != nil {
				return err
			}
		case txn.Kind == enums.TransactionKindWithdrawal && status == enums.TransactionStatusCompleted:
			if err := ledgerTx.EscrowSettle(ctx, txn.AccountID, txn.Amount); err != nil {
				return err
			}
		case txn.Kind == enums.TransactionKindWithdrawal && status == enums.TransactionStatusRejected:
			if err := ledgerTx.EscrowRelease(ctx, txn.AccountID, txn.Amount); err != nil {
				return err
			}
		}

		txn.Status = status
		txn.RejectReason = reason
		txn.ResolvedAt = &resolvedAt
		resolved = txn
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishDecision(resolved)
	return resolved, nil
}

func (s *service) publishDecision(txn *models.Transaction) {
	kind := enums.NotificationKindDeposit
	if txn.Kind == enums.TransactionKindWithdrawal {
		kind = enums.NotificationKindWithdrawal
	}
	if txn.Status == enums.TransactionStatusCompleted {
		message := fmt.Sprintf("%s of %s was approved", txn.Kind, txn.Amount)
		if txn.Kind == enums.TransactionKindWithdrawal {
			message = fmt.Sprintf("Withdrawal approved, %s sent after a %s fee", txn.Amount.Sub(txn.Fee), txn.Fee)
		}
		s.sink.Publish(notify.Event{
			AccountID: txn.AccountID,
			Kind:      kind,
			Title:     "Request approved",
			Message:   message,
		})
		return
	}
	reason := ""
	if txn.RejectReason != nil {
		reason = *txn.RejectReason
	}
	s.sink.Publish(notify.Event{
		AccountID: txn.AccountID,
		Kind:      kind,
		Title:     "Request rejected",
		Message:   fmt.Sprintf("%s of %s was rejected: %s", txn.Kind, txn.Amount, reason),
	})
}
