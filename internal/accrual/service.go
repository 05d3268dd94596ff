package accrual

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/vaultline/vaultyield-backend/internal/investments"
	"github.com/vaultline/vaultyield-backend/internal/journal"
	"github.com/vaultline/vaultyield-backend/internal/ledger"
	"github.com/vaultline/vaultyield-backend/internal/notify"
	"github.com/vaultline/vaultyield-backend/pkg/db"
	"github.com/vaultline/vaultyield-backend/pkg/db/models"
	"github.com/vaultline/vaultyield-backend/pkg/enums"
	pkgerrors "github.com/vaultline/vaultyield-backend/pkg/errors"
	"github.com/vaultline/vaultyield-backend/pkg/logger"
	"github.com/vaultline/vaultyield-backend/pkg/metrics"
)

// Service credits yield to active positions once per period.
type Service interface {
	RunOnce(ctx context.Context) (RunReport, error)
	History(ctx context.Context, positionID uuid.UUID) ([]models.AccrualRun, error)
}

// RunReport summarizes one accrual pass.
type RunReport struct {
	Period   string `json:"period"`
	Credited int    `json:"credited"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
	Matured  int    `json:"matured"`
}

// ServiceParams bundles the dependencies for NewService.
type ServiceParams struct {
	Positions     investments.Repository
	Ledger        ledger.Repository
	Journal       journal.Repository
	Runs          Repository
	Investments   investments.Service
	Runner        db.TxRunner
	Sink          notify.Sink
	Logger        *logger.Logger
	Metrics       *metrics.AccrualMetrics
	AnchorHourUTC int
	Now           func() time.Time
}

type service struct {
	positions   investments.Repository
	ledger      ledger.Repository
	journal     journal.Repository
	runs        Repository
	investments investments.Service
	runner      db.TxRunner
	sink        notify.Sink
	logg        *logger.Logger
	metrics     *metrics.AccrualMetrics
	anchorHour  int
	now         func() time.Time
}

// NewService wires an accrual service with the provided dependencies.
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
	if params.Runs == nil {
		return nil, fmt.Errorf("accrual run repository required")
	}
	if params.Investments == nil {
		return nil, fmt.Errorf("investment service required")
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
		positions:   params.Positions,
		ledger:      params.Ledger,
		journal:     params.Journal,
		runs:        params.Runs,
		investments: params.Investments,
		runner:      params.Runner,
		sink:        sink,
		logg:        params.Logger,
		metrics:     params.Metrics,
		anchorHour:  params.AnchorHourUTC,
		now:         now,
	}, nil
}

// RunOnce sweeps matured positions, then credits every remaining active
// position for the current period. Each position runs in its own
// transaction; a failure is recorded and the pass moves on.
func (s *service) RunOnce(ctx context.Context) (RunReport, error) {
	report := RunReport{Period: PeriodKey(s.now(), s.anchorHour)}

	matured, sweepErr := s.investments.SweepMatured(ctx)
	report.Matured = matured
	for i := 0; i < matured; i++ {
		s.metrics.IncMatured()
	}

	active, err := s.positions.ListActive(ctx)
	if err != nil {
		return report, multierr.Combine(sweepErr, fmt.Errorf("listing active positions: %w", err))
	}

	errs := sweepErr
	for _, position := range active {
		posCtx := s.logg.WithPositionID(ctx, position.ID.String())
		outcome, err := s.accruePosition(ctx, position.ID, report.Period)
		switch {
		case err != nil:
			report.Failed++
			s.metrics.IncFailed()
			s.logg.Error(posCtx, "accrual failed", err)
			errs = multierr.Append(errs, fmt.Errorf("position %s: %w", position.ID, err))
		case outcome.skipped:
			report.Skipped++
			s.metrics.IncSkipped()
		default:
			if outcome.amount.IsPositive() {
				report.Credited++
				s.metrics.IncCredited()
			}
			if outcome.completed {
				report.Matured++
				s.metrics.IncMatured()
			}
			s.publishCredit(position.AccountID, outcome)
		}
	}
	return report, errs
}

// History returns the credit trail for a position, oldest period first.
func (s *service) History(ctx context.Context, positionID uuid.UUID) ([]models.AccrualRun, error) {
	if positionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "position id is required")
	}
	return s.runs.ListByPosition(ctx, positionID)
}

type accrualOutcome struct {
	skipped   bool
	completed bool
	amount    decimal.Decimal
	planName  string
}

// errPeriodAlreadyCredited aborts the credit transaction when another run
// holds the (position, period) marker, so the rollback is explicit instead
// of committing a transaction the database may have already aborted.
var errPeriodAlreadyCredited = errors.New("period already credited")

// accruePosition claims the (position, period) marker and applies the
// credit in one transaction. The marker insert is first so a concurrent
// run for the same period aborts before touching balances.
func (s *service) accruePosition(ctx context.Context, positionID uuid.UUID, period string) (accrualOutcome, error) {
	var outcome accrualOutcome
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		outcome = accrualOutcome{}
		position, err := s.positions.WithTx(tx).GetByID(ctx, positionID)
		if err != nil {
			return err
		}
		if position.Status != enums.PositionStatusActive {
			outcome.skipped = true
			return nil
		}
		outcome.planName = position.PlanName

		// matured positions belong to the sweep; if one is still active
		// here the sweep failed or maturity passed mid-run, so hand it
		// off to completion instead of crediting
		if position.Matured(s.now()) {
			outcome.completed = true
			return s.positions.WithTx(tx).Complete(ctx, position.ID, s.now().UTC())
		}

		remaining := position.CreditCap().Sub(position.CumulativeCredited)
		if !remaining.IsPositive() {
			outcome.completed = true
			return s.positions.WithTx(tx).Complete(ctx, position.ID, s.now().UTC())
		}
		amount := decimal.Min(position.PerPeriodCredit, remaining)
		outcome.amount = amount

		if err := s.runs.WithTx(tx).Create(ctx, &models.AccrualRun{
			ID:         uuid.New(),
			PositionID: position.ID,
			Period:     period,
			Amount:     amount,
		}); err != nil {
			if db.IsUniqueViolation(err, "idx_accrual_runs_position_period") {
				return errPeriodAlreadyCredited
			}
			return err
		}

		if err := s.ledger.WithTx(tx).Credit(ctx, position.AccountID, amount); err != nil {
			return err
		}
		if err := s.positions.WithTx(tx).AddCumulative(ctx, position.ID, amount); err != nil {
			return err
		}

		entry, err := journal.BuildEntry(journal.AppendInput{
			AccountID:   position.AccountID,
			Kind:        enums.TransactionKindAccrualCredit,
			Amount:      amount,
			Status:      enums.TransactionStatusCompleted,
			ReferenceID: &position.ID,
		})
		if err != nil {
			return err
		}
		resolvedAt := s.now().UTC()
		entry.ResolvedAt = &resolvedAt
		if err := s.journal.WithTx(tx).Create(ctx, entry); err != nil {
			return err
		}

		if position.CumulativeCredited.Add(amount).GreaterThanOrEqual(position.CreditCap()) {
			outcome.completed = true
			return s.positions.WithTx(tx).Complete(ctx, position.ID, s.now().UTC())
		}
		return nil
	})
	switch {
	case err == nil:
		return outcome, nil
	case errors.Is(err, errPeriodAlreadyCredited), errors.Is(err, investments.ErrNotCreditable):
		// another run owns this period's credit; the rollback already
		// discarded the marker and any balance movement
		return accrualOutcome{skipped: true}, nil
	default:
		return accrualOutcome{}, err
	}
}

func (s *service) publishCredit(accountID uuid.UUID, outcome accrualOutcome) {
	if outcome.amount.IsPositive() {
		s.sink.Publish(notify.Event{
			AccountID: accountID,
			Kind:      enums.NotificationKindAccrual,
			Title:     "Yield credited",
			Message:   fmt.Sprintf("%s credited from your %s position", outcome.amount, outcome.planName),
		})
	}
	if outcome.completed {
		s.sink.Publish(notify.Event{
			AccountID: accountID,
			Kind:      enums.NotificationKindInvestment,
			Title:     "Investment completed",
			Message:   fmt.Sprintf("Your %s position has paid out in full", outcome.planName),
		})
	}
}
