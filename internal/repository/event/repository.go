package event

import (
	"context"

	"playa-storefront/internal/domain"
)

type Repository interface {
	Create(ctx context.Context, e domain.Event) (*domain.Event, error)
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	ListByAgency(ctx context.Context, agencyID string) ([]domain.Event, error)
	CountByAgency(ctx context.Context, agencyID string) (int64, error)
}
