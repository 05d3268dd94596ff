package investments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vaultline/vaultyield-backend/pkg/db/models"
	"github.com/vaultline/vaultyield-backend/pkg/enums"
	pkgerrors "github.com/vaultline/vaultyield-backend/pkg/errors"
)

// ErrNotCreditable reports that a cumulative credit matched no row: the
// position is no longer active, or the increment would push cumulative
// credit past per_period_credit * duration_days.
var ErrNotCreditable = errors.New("position not creditable")

// Repository manages persistence for investment positions. Status moves to
// completed through a guarded UPDATE so the transition fires at most once
// even with racing sweepers; cumulative credit is guarded the same way so
// concurrent accruals can never overshoot the credit cap.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, position *models.Position) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Position, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Position, error)
	ListActive(ctx context.Context) ([]models.Position, error)
	ListMatured(ctx context.Context, now time.Time) ([]models.Position, error)
	AddCumulative(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
	Complete(ctx context.Context, id uuid.UUID, completedAt time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a position repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, position *models.Position) error {
	return r.db.WithContext(ctx).Create(position).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Position, error) {
	var position models.Position
	if err := r.db.WithContext(ctx).First(&position, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &position, nil
}

func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Position, error) {
	var positions []models.Position
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("opened_at DESC").
		Find(&positions).Error; err != nil {
		return nil, err
	}
	return positions, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.Position, error) {
	var positions []models.Position
	if err := r.db.WithContext(ctx).
		Where("status = ?", enums.PositionStatusActive).
		Order("opened_at ASC").
		Find(&positions).Error; err != nil {
		return nil, err
	}
	return positions, nil
}

func (r *repository) ListMatured(ctx context.Context, now time.Time) ([]models.Position, error) {
	var positions []models.Position
	if err := r.db.WithContext(ctx).
		Where("status = ? AND matures_at <= ?", enums.PositionStatusActive, now.UTC()).
		Order("matures_at ASC").
		Find(&positions).Error; err != nil {
		return nil, err
	}
	return positions, nil
}

func (r *repository) AddCumulative(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE positions SET cumulative_credited = cumulative_credited + CAST(? AS NUMERIC)
		 WHERE id = ? AND status = ?
		 AND cumulative_credited + CAST(? AS NUMERIC) <= per_period_credit * duration_days`,
		amount, id, enums.PositionStatusActive, amount,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotCreditable
	}
	return nil
}

func (r *repository) Complete(ctx context.Context, id uuid.UUID, completedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Position{}).
		Where("id = ? AND status = ?", id, enums.PositionStatusActive).
		Updates(map[string]any{
			"status":       enums.PositionStatusCompleted,
			"completed_at": completedAt.UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "active position not found")
	}
	return nil
}
