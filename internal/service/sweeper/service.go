// Package sweeper retires purchases whose retention window has passed.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"playa-storefront/internal/domain"
	"playa-storefront/internal/metrics"
)

type purchaseStore interface {
	ListExpired(ctx context.Context, before time.Time) ([]domain.Purchase, error)
	Delete(ctx context.Context, id string) error
}

// Failure is one purchase the sweeper could not delete.
type Failure struct {
	PurchaseID string `json:"purchaseId"`
	Error      string `json:"error"`
}

// Report summarises a single pass.
type Report struct {
	StartedAt time.Time `json:"startedAt"`
	Scanned   int       `json:"scanned"`
	Deleted   int       `json:"deleted"`
	Failed    []Failure `json:"failed"`
}

type Service struct {
	purchases purchaseStore
	interval  time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

func New(purchases purchaseStore, interval time.Duration, logger zerolog.Logger) *Service {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Service{
		purchases: purchases,
		interval:  interval,
		now:       time.Now,
		logger:    logger.With().Str("component", "sweeper").Logger(),
	}
}

// RunOnce deletes every purchase that expired strictly before now. Each delete
// is attempted independently; failures are collected in the report. Only a
// failure to list is returned as an error.
func (s *Service) RunOnce(ctx context.Context) (Report, error) {
	now := s.now().UTC()
	report := Report{StartedAt: now, Failed: []Failure{}}

	expired, err := s.purchases.ListExpired(ctx, now)
	if err != nil {
		return report, fmt.Errorf("list expired purchases: %w", err)
	}
	report.Scanned = len(expired)

	for _, p := range expired {
		err := s.purchases.Delete(ctx, p.ID)
		switch {
		case err == nil, errors.Is(err, domain.ErrNotFound):
			report.Deleted++
			metrics.SweepDeletedTotal.Inc()
		default:
			report.Failed = append(report.Failed, Failure{PurchaseID: p.ID, Error: err.Error()})
			metrics.SweepFailedTotal.Inc()
			s.logger.Warn().Err(err).Str("purchase_id", p.ID).Msg("delete expired purchase")
		}
	}

	metrics.SweepLastRun.Set(float64(now.Unix()))
	s.logger.Info().
		Int("scanned", report.Scanned).
		Int("deleted", report.Deleted).
		Int("failed", len(report.Failed)).
		Msg("sweep finished")
	return report, nil
}

// Serve sweeps immediately and then on every interval until ctx is cancelled.
func (s *Service) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("sweep failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) String() string { return "expiry-sweeper" }
