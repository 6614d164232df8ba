package agency

import (
	"context"

	"playa-storefront/internal/domain"
)

// Repository persists agencies and their usage counters.
type Repository interface {
	Create(ctx context.Context, a domain.Agency) (*domain.Agency, error)
	GetByID(ctx context.Context, id string) (*domain.Agency, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Agency, error)
	// ConsumeUsage adds n to the usage counter unless that would pass the limit.
	ConsumeUsage(ctx context.Context, id string, n int64) (*domain.Agency, error)
}
