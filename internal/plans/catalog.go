package plans

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaultline/vaultyield-backend/pkg/db/models"
	pkgerrors "github.com/vaultline/vaultyield-backend/pkg/errors"
)

// Catalog serves plan reference data from an in-memory snapshot. The
// snapshot is loaded once at startup and handed out by value, so callers
// can never mutate a plan another caller sees.
type Catalog interface {
	Load(ctx context.Context) error
	Get(id uuid.UUID) (models.Plan, error)
	ListActive() []models.Plan
	ValidateAmount(plan models.Plan, amount decimal.Decimal) error
}

type catalog struct {
	repo Repository

	mu     sync.RWMutex
	byID   map[uuid.UUID]models.Plan
	sorted []models.Plan
}

// NewCatalog wires a plan catalog with the provided repository. Call Load
// before serving requests.
func NewCatalog(repo Repository) (Catalog, error) {
	if repo == nil {
		return nil, fmt.Errorf("plan repository required")
	}
	return &catalog{repo: repo, byID: map[uuid.UUID]models.Plan{}}, nil
}

func (c *catalog) Load(ctx context.Context) error {
	plans, err := c.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading plan catalog: %w", err)
	}

	byID := make(map[uuid.UUID]models.Plan, len(plans))
	for _, plan := range plans {
		byID[plan.ID] = plan
	}

	c.mu.Lock()
	c.byID = byID
	c.sorted = plans
	c.mu.Unlock()
	return nil
}

func (c *catalog) Get(id uuid.UUID) (models.Plan, error) {
	c.mu.RLock()
	plan, ok := c.byID[id]
	c.mu.RUnlock()
	if !ok {
		return models.Plan{}, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}
	return plan, nil
}

func (c *catalog) ListActive() []models.Plan {
	c.mu.RLock()
	defer c.mu.RUnlock()
	active := make([]models.Plan, 0, len(c.sorted))
	for _, plan := range c.sorted {
		if plan.Active {
			active = append(active, plan)
		}
	}
	return active
}

// ValidateAmount checks an investment amount against the plan's bounds.
func (c *catalog) ValidateAmount(plan models.Plan, amount decimal.Decimal) error {
	if !plan.Active {
		return pkgerrors.New(pkgerrors.CodePlanLimitViolation, "plan is not open for investment")
	}
	if amount.LessThan(plan.MinAmount) || amount.GreaterThan(plan.MaxAmount) {
		return pkgerrors.New(pkgerrors.CodePlanLimitViolation,
			fmt.Sprintf("amount must be between %s and %s", plan.MinAmount, plan.MaxAmount))
	}
	return nil
}
