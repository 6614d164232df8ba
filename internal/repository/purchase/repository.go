package purchase

import (
	"context"
	"time"

	"playa-storefront/internal/domain"
)

// Repository persists purchases. Rows are inserted once and deleted once; nothing
// updates them.
type Repository interface {
	// Create inserts p unless a purchase with the same SessionID exists. When it
	// does, the stored purchase is returned with created=false.
	Create(ctx context.Context, p domain.Purchase) (stored *domain.Purchase, created bool, err error)
	GetByID(ctx context.Context, id string) (*domain.Purchase, error)
	GetBySession(ctx context.Context, sessionID string) (*domain.Purchase, error)
	// ListExpired returns purchases whose expiry is strictly before the given time.
	ListExpired(ctx context.Context, before time.Time) ([]domain.Purchase, error)
	Delete(ctx context.Context, id string) error
	SalesByAgency(ctx context.Context, agencyID string) (count, revenueCents int64, err error)
}
