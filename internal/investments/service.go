package investments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/vaultline/vaultyield-backend/internal/journal"
	"github.com/vaultline/vaultyield-backend/internal/ledger"
	"github.com/vaultline/vaultyield-backend/internal/notify"
	"github.com/vaultline/vaultyield-backend/internal/plans"
	"github.com/vaultline/vaultyield-backend/pkg/db"
	"github.com/vaultline/vaultyield-backend/pkg/db/models"
	"github.com/vaultline/vaultyield-backend/pkg/enums"
	pkgerrors "github.com/vaultline/vaultyield-backend/pkg/errors"
	"github.com/vaultline/vaultyield-backend/pkg/logger"
)

// Service manages the lifecycle of investment positions.
type Service interface {
	Open(ctx context.Context, input OpenInput) (*models.Position, error)
	GetPosition(ctx context.Context, id uuid.UUID) (*models.Position, error)
	ListPositions(ctx context.Context, accountID uuid.UUID) ([]models.Position, error)
	SweepMatured(ctx context.Context) (int, error)
}

// OpenInput captures the data a new position requires.
type OpenInput struct {
	AccountID uuid.UUID       `json:"account_id"`
	PlanID    uuid.UUID       `json:"plan_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// ServiceParams bundles the dependencies for NewService.
type ServiceParams struct {
	Positions Repository
	Ledger    ledger.Repository
	Journal   journal.Repository
	Catalog   plans.Catalog
	Runner    db.TxRunner
	Sink      notify.Sink
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	positions Repository
	ledger    ledger.Repository
	journal   journal.Repository
	catalog   plans.Catalog
	runner    db.TxRunner
	sink      notify.Sink
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires an investment service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Positions == nil {
		return nil, fmt.Errorf("position repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Journal == nil {
		return nil, fmt.Errorf("journal repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("plan catalog required")
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
		positions: params.Positions,
		ledger:    params.Ledger,
		journal:   params.Journal,
		catalog:   params.Catalog,
		runner:    params.Runner,
		sink:      sink,
		logg:      params.Logger,
		now:       now,
	}, nil
}

// Open debits the principal and creates the position in one transaction.
// Rate, duration and per-period credit are snapshotted from the plan so the
// position is untouched by later catalog changes.
func (s *service) Open(ctx context.Context, input OpenInput) (*models.Position, error) {
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if input.PlanID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan id is required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	plan, err := s.catalog.Get(input.PlanID)
	if err != nil {
		return nil, err
	}
	if err := s.catalog.ValidateAmount(plan, input.Amount); err != nil {
		return nil, err
	}

	openedAt := s.now().UTC()
	position := &models.Position{
		ID:                 uuid.New(),
		AccountID:          input.AccountID,
		PlanID:             plan.ID,
		PlanName:           plan.Name,
		Principal:          input.Amount,
		DailyRate:          plan.DailyRate,
		DurationDays:       plan.DurationDays,
		PerPeriodCredit:    input.Amount.Mul(plan.DailyRate).Round(2),
		CumulativeCredited: decimal.Zero,
		Status:             enums.PositionStatusActive,
		OpenedAt:           openedAt,
		MaturesAt:          openedAt.AddDate(0, 0, plan.DurationDays),
	}

	entry, err := journal.BuildEntry(journal.AppendInput{
		AccountID:   input.AccountID,
		Kind:        enums.TransactionKindInvestmentDebit,
		Amount:      input.Amount,
		Status:      enums.TransactionStatusCompleted,
		ReferenceID: &position.ID,
	})
	if err != nil {
		return nil, err
	}
	resolvedAt := openedAt
	entry.ResolvedAt = &resolvedAt

	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.ledger.WithTx(tx).Debit(ctx, input.AccountID, input.Amount); err != nil {
			return err
		}
		if err := s.positions.WithTx(tx).Create(ctx, position); err != nil {
			return err
		}
		return s.journal.WithTx(tx).Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.sink.Publish(notify.Event{
		AccountID: input.AccountID,
		Kind:      enums.NotificationKindInvestment,
		Title:     "Investment opened",
		Message:   fmt.Sprintf("%s invested in %s, maturing %s", input.Amount, plan.Name, position.MaturesAt.Format("2006-01-02")),
	})
	return position, nil
}

func (s *service) GetPosition(ctx context.Context, id uuid.UUID) (*models.Position, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "position id is required")
	}
	position, err := s.positions.GetByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "position not found")
		}
		return nil, err
	}
	return position, nil
}

func (s *service) ListPositions(ctx context.Context, accountID uuid.UUID) ([]models.Position, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	return s.positions.ListByAccount(ctx, accountID)
}

// SweepMatured completes every active position past its maturity time.
// Each position transitions in its own transaction so one failure never
// blocks the rest of the sweep.
func (s *service) SweepMatured(ctx context.Context) (int, error) {
	now := s.now().UTC()
	matured, err := s.positions.ListMatured(ctx, now)
	if err != nil {
		return 0, err
	}

	completed := 0
	var errs error
	for _, position := range matured {
		posCtx := s.logg.WithPositionID(ctx, position.ID.String())
		err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
			return s.positions.WithTx(tx).Complete(ctx, position.ID, now)
		})
		if err != nil {
			if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
				// another sweeper got there first
				continue
			}
			s.logg.Error(posCtx, "completing matured position", err)
			errs = multierr.Append(errs, fmt.Errorf("position %s: %w", position.ID, err))
			continue
		}
		completed++
		s.sink.Publish(notify.Event{
			AccountID: position.AccountID,
			Kind:      enums.NotificationKindInvestment,
			Title:     "Investment completed",
			Message:   fmt.Sprintf("Your %s position matured after earning %s", position.PlanName, position.CumulativeCredited),
		})
	}
	return completed, errs
}
