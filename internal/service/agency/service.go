package agency

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"playa-storefront/internal/domain"
	"playa-storefront/internal/metrics"
)

// ErrInvalidCredentials is returned when an agency id/key pair does not match.
var ErrInvalidCredentials = errors.New("invalid agency credentials")

// dummyHash keeps the unknown-agency path as slow as a real comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-key"), bcrypt.DefaultCost)

type agencyRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Agency, error)
	ConsumeUsage(ctx context.Context, id string, n int64) (*domain.Agency, error)
}

type counter interface {
	CountByAgency(ctx context.Context, agencyID string) (int64, error)
}

type salesRepo interface {
	SalesByAgency(ctx context.Context, agencyID string) (count, revenueCents int64, err error)
}

// Service authenticates agency operators, meters usage and builds dashboard stats.
type Service struct {
	agencies agencyRepo
	events   counter
	photos   counter
	sales    salesRepo
}

func New(agencies agencyRepo, events, photos counter, sales salesRepo) *Service {
	return &Service{agencies: agencies, events: events, photos: photos, sales: sales}
}

// Authenticate checks apiKey against the agency's stored hash.
func (s *Service) Authenticate(ctx context.Context, agencyID, apiKey string) (*domain.Agency, error) {
	agencyID = strings.TrimSpace(agencyID)
	if agencyID == "" || apiKey == "" {
		return nil, ErrInvalidCredentials
	}
	a, err := s.agencies.GetByID(ctx, agencyID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(apiKey))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.APIKeyHash), []byte(apiKey)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return a, nil
}

// ConsumeUsage records n metered operations (AI generations) against the agency.
// It fails with domain.ErrUsageLimitReached rather than exceed the ceiling.
func (s *Service) ConsumeUsage(ctx context.Context, agencyID string, n int64) (*domain.Agency, error) {
	if n <= 0 {
		return nil, fmt.Errorf("usage increment must be positive, got %d", n)
	}
	a, err := s.agencies.ConsumeUsage(ctx, agencyID, n)
	switch {
	case err == nil:
		metrics.UsageConsumedTotal.WithLabelValues("accepted").Inc()
	case errors.Is(err, domain.ErrUsageLimitReached):
		metrics.UsageConsumedTotal.WithLabelValues("limited").Inc()
	}
	return a, err
}

func (s *Service) Stats(ctx context.Context, agencyID string) (domain.AgencyStats, error) {
	a, err := s.agencies.GetByID(ctx, agencyID)
	if err != nil {
		return domain.AgencyStats{}, err
	}
	stats := domain.AgencyStats{AIUsage: a.UsageCount, AILimit: a.UsageLimit}

	if stats.Events, err = s.events.CountByAgency(ctx, agencyID); err != nil {
		return domain.AgencyStats{}, fmt.Errorf("count events: %w", err)
	}
	if stats.Photos, err = s.photos.CountByAgency(ctx, agencyID); err != nil {
		return domain.AgencyStats{}, fmt.Errorf("count photos: %w", err)
	}
	if stats.Sales, stats.RevenueCents, err = s.sales.SalesByAgency(ctx, agencyID); err != nil {
		return domain.AgencyStats{}, fmt.Errorf("sum sales: %w", err)
	}
	return stats, nil
}

// GenerateAPIKey returns a new random operator key.
func GenerateAPIKey() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "ak_" + base64.RawURLEncoding.EncodeToString(b), nil
}

// HashAPIKey hashes key for storage.
func HashAPIKey(key string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
