package accrual

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vaultline/vaultyield-backend/pkg/db/models"
)

// Repository manages persistence for accrual run markers. The unique
// (position_id, period) index is the only write guard the accrual engine
// relies on; inserting the marker claims the period.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, run *models.AccrualRun) error
	ListByPosition(ctx context.Context, positionID uuid.UUID) ([]models.AccrualRun, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an accrual run repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, run *models.AccrualRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *repository) ListByPosition(ctx context.Context, positionID uuid.UUID) ([]models.AccrualRun, error) {
	var runs []models.AccrualRun
	if err := r.db.WithContext(ctx).
		Where("position_id = ?", positionID).
		Order("period ASC").
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
