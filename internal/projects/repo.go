package projects

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vaultline/vaultyield-backend/pkg/db/models"
	pkgerrors "github.com/vaultline/vaultyield-backend/pkg/errors"
)

// Repository manages persistence for funding projects. Raising funds is a
// guarded UPDATE so the target can never be oversubscribed.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context, activeOnly bool) ([]models.Project, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	AddRaised(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a project repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]models.Project, error) {
	var projects []models.Project
	q := r.db.WithContext(ctx).Order("deadline ASC")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	if err := q.Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *repository) AddRaised(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE projects SET raised_amount = raised_amount + CAST(? AS NUMERIC)
		 WHERE id = ? AND raised_amount + CAST(? AS NUMERIC) <= target_amount`,
		amount, id, amount,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
		return pkgerrors.New(pkgerrors.CodePlanLimitViolation, "project funding target reached")
	}
	return nil
}
