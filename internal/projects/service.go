package projects

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
	"github.com/vaultline/vaultyield-backend/pkg/db"
	"github.com/vaultline/vaultyield-backend/pkg/db/models"
	"github.com/vaultline/vaultyield-backend/pkg/enums"
	pkgerrors "github.com/vaultline/vaultyield-backend/pkg/errors"
)

// Service handles one-off project investments.
type Service interface {
	List(ctx context.Context, activeOnly bool) ([]models.Project, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Project, error)
	Invest(ctx context.Context, input InvestInput) (*models.Transaction, error)
}

// InvestInput captures a project investment request.
type InvestInput struct {
	AccountID uuid.UUID       `json:"account_id"`
	ProjectID uuid.UUID       `json:"project_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// ServiceParams bundles the dependencies for NewService.
type ServiceParams struct {
	Projects Repository
	Ledger   ledger.Repository
	Journal  journal.Repository
	Runner   db.TxRunner
	Sink     notify.Sink
	Now      func() time.Time
}

type service struct {
	projects Repository
	ledger   ledger.Repository
	journal  journal.Repository
	runner   db.TxRunner
	sink     notify.Sink
	now      func() time.Time
}

// NewService wires a project service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Projects == nil {
		return nil, fmt.Errorf("project repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Journal == nil {
		return nil, fmt.Errorf("journal repository required")
	}
	if params.Runner == nil {
		return nil, fmt.Errorf("tx runner required")
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
		projects: params.Projects,
		ledger:   params.Ledger,
		journal:  params.Journal,
		runner:   params.Runner,
		sink:     sink,
		now:      now,
	}, nil
}

func (s *service) List(ctx context.Context, activeOnly bool) ([]models.Project, error) {
	return s.projects.List(ctx, activeOnly)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id is required")
	}
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
		return nil, err
	}
	return project, nil
}

// Invest debits the account, bumps the project's raised total and journals
// the movement in one transaction.
func (s *service) Invest(ctx context.Context, input InvestInput) (*models.Transaction, error) {
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if input.ProjectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id is required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	project, err := s.Get(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if !project.Active || !now.Before(project.Deadline) {
		return nil, pkgerrors.New(pkgerrors.CodePlanLimitViolation, "project is closed for investment")
	}
	if input.Amount.LessThan(project.MinInvestment) || input.Amount.GreaterThan(project.MaxInvestment) {
		return nil, pkgerrors.New(pkgerrors.CodePlanLimitViolation,
			fmt.Sprintf("amount must be between %s and %s", project.MinInvestment, project.MaxInvestment))
	}

	projectID := input.ProjectID
	entry, err := journal.BuildEntry(journal.AppendInput{
		AccountID:   input.AccountID,
		Kind:        enums.TransactionKindProjectInvestment,
		Amount:      input.Amount,
		Status:      enums.TransactionStatusCompleted,
		ReferenceID: &projectID,
	})
	if err != nil {
		return nil, err
	}
	entry.ResolvedAt = &now

	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.ledger.WithTx(tx).Debit(ctx, input.AccountID, input.Amount); err != nil {
			return err
		}
		if err := s.projects.WithTx(tx).AddRaised(ctx, input.ProjectID, input.Amount); err != nil {
			return err
		}
		return s.journal.WithTx(tx).Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.sink.Publish(notify.Event{
		AccountID: input.AccountID,
		Kind:      enums.NotificationKindProject,
		Title:     "Project investment confirmed",
		Message:   fmt.Sprintf("%s invested in %s", input.Amount, project.Title),
	})
	return entry, nil
}
