package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vaultline/vaultyield-backend/pkg/db/models"
	"github.com/vaultline/vaultyield-backend/pkg/enums"
	pkgerrors "github.com/vaultline/vaultyield-backend/pkg/errors"
)

// Repository manages persistence for journal entries. Rows are append-only;
// the single permitted mutation is the pending-to-terminal status change in
// Resolve, guarded so it can fire at most once per row.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Transaction, error)
	ListPending(ctx context.Context, kind enums.TransactionKind) ([]models.Transaction, error)
	HasProofKey(ctx context.Context, proofKey string) (bool, error)
	Resolve(ctx context.Context, id uuid.UUID, status enums.TransactionStatus, rejectReason *string, resolvedAt time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a journal repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, txn *models.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.WithContext(ctx).First(&txn, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Transaction, error) {
	var txns []models.Transaction
	q := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) ListPending(ctx context.Context, kind enums.TransactionKind) ([]models.Transaction, error) {
	var txns []models.Transaction
	q := r.db.WithContext(ctx).
		Where("status = ?", enums.TransactionStatusPending).
		Order("created_at ASC")
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if err := q.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) HasProofKey(ctx context.Context, proofKey string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("proof_key = ?", proofKey).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Resolve transitions a pending entry to a terminal status. The status
// predicate makes the update a compare-and-set: two racing resolvers can
// both issue it, but only one touches the row.
func (r *repository) Resolve(ctx context.Context, id uuid.UUID, status enums.TransactionStatus, rejectReason *string, resolvedAt time.Time) error {
	if !status.Resolved() {
		return pkgerrors.New(pkgerrors.CodeValidation, "resolve status must be terminal")
	}
	res := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, enums.TransactionStatusPending).
		Updates(map[string]any{
			"status":        status,
			"reject_reason": rejectReason,
			"resolved_at":   resolvedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Transaction{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	return pkgerrors.New(pkgerrors.CodeTransactionNotPending, "transaction already resolved")
}
