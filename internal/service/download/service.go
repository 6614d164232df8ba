package download

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"playa-storefront/internal/domain"
	"playa-storefront/internal/storage"
)

// ErrExpired is returned for purchases past their retention window that the
// sweeper has not removed yet.
var ErrExpired = errors.New("purchase expired")

type purchaseLookup interface {
	GetByID(ctx context.Context, id string) (*domain.Purchase, error)
}

type photoLookup interface {
	ListByIDs(ctx context.Context, ids []string) ([]domain.Photo, error)
}

// Link is a time-limited URL to one purchased original.
type Link struct {
	ItemID  string             `json:"itemId"`
	PhotoID string             `json:"photoId"`
	Type    domain.ProductType `json:"type,omitempty"`
	Label   string             `json:"label"`
	URL     string             `json:"url"`
}

// Bundle is the download page for a purchase.
type Bundle struct {
	PurchaseID    string    `json:"purchaseId"`
	ExpiresAt     time.Time `json:"expiresAt"`
	LinksExpireAt time.Time `json:"linksExpireAt"`
	Links         []Link    `json:"links"`
	MissingPhotos []string  `json:"missingPhotos,omitempty"`
}

type Service struct {
	purchases purchaseLookup
	photos    photoLookup
	objects   storage.ObjectStore
	ttl       time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

func New(purchases purchaseLookup, photos photoLookup, objects storage.ObjectStore, ttl time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		purchases: purchases,
		photos:    photos,
		objects:   objects,
		ttl:       ttl,
		logger:    logger.With().Str("component", "download").Logger(),
		now:       time.Now,
	}
}

// Links signs a URL for every purchased photo that still exists.
func (s *Service) Links(ctx context.Context, purchaseID string) (*Bundle, error) {
	p, err := s.purchases.GetByID(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if p.Expired(now) {
		return nil, ErrExpired
	}

	ids := make([]string, 0, len(p.Items))
	for _, it := range p.Items {
		ids = append(ids, it.PhotoID)
	}
	photos, err := s.photos.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load photos: %w", err)
	}
	byID := make(map[string]domain.Photo, len(photos))
	for _, ph := range photos {
		byID[ph.ID] = ph
	}

	b := &Bundle{
		PurchaseID:    p.ID,
		ExpiresAt:     p.ExpiresAt,
		LinksExpireAt: now.Add(s.ttl),
		Links:         make([]Link, 0, len(p.Items)),
	}
	for _, it := range p.Items {
		ph, ok := byID[it.PhotoID]
		if !ok {
			b.MissingPhotos = append(b.MissingPhotos, it.PhotoID)
			continue
		}
		url, err := s.objects.SignedURL(ph.ObjectPath, s.ttl)
		if err != nil {
			return nil, fmt.Errorf("sign %s: %w", ph.ID, err)
		}
		b.Links = append(b.Links, Link{
			ItemID:  it.ID,
			PhotoID: it.PhotoID,
			Type:    it.Type,
			Label:   it.Label,
			URL:     url,
		})
	}
	if len(b.MissingPhotos) > 0 {
		s.logger.Warn().Str("purchase_id", p.ID).Strs("photo_ids", b.MissingPhotos).Msg("purchased photos no longer exist")
	}
	return b, nil
}
