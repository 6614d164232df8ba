package photo

import (
	"context"

	"playa-storefront/internal/domain"
)

type Repository interface {
	Create(ctx context.Context, p domain.Photo) (*domain.Photo, error)
	GetByID(ctx context.Context, id string) (*domain.Photo, error)
	ListByEvent(ctx context.Context, eventID string) ([]domain.Photo, error)
	// ListByIDs returns the photos that exist among ids, in no particular order.
	ListByIDs(ctx context.Context, ids []string) ([]domain.Photo, error)
	CountByAgency(ctx context.Context, agencyID string) (int64, error)
}
