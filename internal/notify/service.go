package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vaultline/vaultyield-backend/pkg/db/models"
	pkgerrors "github.com/vaultline/vaultyield-backend/pkg/errors"
)

// Service exposes the in-app notification feed.
type Service interface {
	Feed(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires a notification feed service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("notification repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) Feed(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Notification, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	return s.repo.ListByAccount(ctx, accountID, limit)
}

func (s *service) MarkRead(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id is required")
	}
	return s.repo.MarkRead(ctx, id, s.now().UTC())
}
