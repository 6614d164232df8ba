// Package fulfillment turns verified payment-completion events into purchase
// records and announces them.
package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"playa-storefront/internal/domain"
	"playa-storefront/internal/metrics"
	"playa-storefront/internal/notify"
	"playa-storefront/internal/payment"
	"playa-storefront/internal/service/checkout"
)

// State is the terminal outcome of handling one event.
type State int

const (
	StateIgnored State = iota
	StateDuplicate
	StateFulfilled
)

func (s State) String() string {
	switch s {
	case StateIgnored:
		return "ignored"
	case StateDuplicate:
		return "duplicate"
	case StateFulfilled:
		return "fulfilled"
	default:
		return "unknown"
	}
}

type Result struct {
	State    State
	Purchase *domain.Purchase
}

type purchaseStore interface {
	Create(ctx context.Context, p domain.Purchase) (*domain.Purchase, bool, error)
}

type agencyLookup interface {
	GetByID(ctx context.Context, id string) (*domain.Agency, error)
}

type notifier interface {
	Notify(ctx context.Context, n notify.Notice) error
}

type Service struct {
	purchases purchaseStore
	agencies  agencyLookup
	notifier  notifier
	publicURL string
	now       func() time.Time
	logger    zerolog.Logger
}

// New builds the handler. publicURL is the storefront origin used in download links.
func New(purchases purchaseStore, agencies agencyLookup, n notifier, publicURL string, logger zerolog.Logger) *Service {
	return &Service{
		purchases: purchases,
		agencies:  agencies,
		notifier:  n,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
		logger:    logger.With().Str("component", "fulfillment").Logger(),
	}
}

// Handle processes one verified event. A returned error means the purchase was
// not durably recorded and the platform should redeliver.
func (s *Service) Handle(ctx context.Context, ev payment.Event) (Result, error) {
	log := s.logger.With().Str("event_id", ev.ID).Str("event_type", ev.Type).Logger()

	if ev.Type != payment.EventCheckoutCompleted {
		metrics.PaymentEventsTotal.WithLabelValues("ignored").Inc()
		log.Debug().Msg("ignoring event")
		return Result{State: StateIgnored}, nil
	}
	if ev.SessionID == "" {
		metrics.PaymentEventsTotal.WithLabelValues("malformed").Inc()
		return Result{}, fmt.Errorf("%w: completion event without session id", payment.ErrMalformedEvent)
	}

	rec := s.newRecord(ev)
	stored, created, err := s.purchases.Create(ctx, rec)
	if err != nil {
		metrics.PaymentEventsTotal.WithLabelValues("error").Inc()
		log.Error().Err(err).Str("session_id", ev.SessionID).Msg("record purchase")
		return Result{}, fmt.Errorf("record purchase: %w", err)
	}
	if !created {
		metrics.PaymentEventsTotal.WithLabelValues("duplicate").Inc()
		log.Info().Str("session_id", ev.SessionID).Str("purchase_id", stored.ID).Msg("duplicate completion event")
		return Result{State: StateDuplicate, Purchase: stored}, nil
	}

	metrics.PaymentEventsTotal.WithLabelValues("fulfilled").Inc()
	log.Info().
		Str("session_id", ev.SessionID).
		Str("purchase_id", stored.ID).
		Int("items", len(stored.Items)).
		Msg("purchase recorded")

	s.dispatch(ctx, stored)
	return Result{State: StateFulfilled, Purchase: stored}, nil
}

func (s *Service) newRecord(ev payment.Event) domain.Purchase {
	meta := ev.Metadata
	email := strings.TrimSpace(meta[checkout.MetaCustomerEmail])
	if email == "" || email == checkout.GuestEmail {
		if ev.CustomerEmail != "" {
			email = ev.CustomerEmail
		}
	}
	name := strings.TrimSpace(meta[checkout.MetaCustomerName])
	if name == "" {
		name = ev.CustomerName
	}

	createdAt := s.now().UTC().Truncate(time.Microsecond)
	return domain.Purchase{
		ID:           uuid.NewString(),
		SessionID:    ev.SessionID,
		EventID:      meta[checkout.MetaEventID],
		AgencyID:     meta[checkout.MetaAgencyID],
		Email:        email,
		CustomerName: name,
		Items:        salvageItems(meta[checkout.MetaCartItems]),
		Status:       domain.PurchaseStatusPaid,
		CreatedAt:    createdAt,
		ExpiresAt:    createdAt.Add(domain.RetentionWindow),
	}
}

func (s *Service) dispatch(ctx context.Context, p *domain.Purchase) {
	if s.notifier == nil {
		return
	}
	n := notify.Notice{
		PurchaseID:   p.ID,
		CustomerName: p.CustomerName,
		AgencyID:     p.AgencyID,
		DownloadURL:  s.DownloadURL(p.ID),
		ExpiresAt:    p.ExpiresAt,
		ItemCount:    len(p.Items),
	}
	if p.Email != checkout.GuestEmail {
		n.Email = p.Email
	}
	if p.AgencyID != "" && s.agencies != nil {
		agency, err := s.agencies.GetByID(ctx, p.AgencyID)
		switch {
		case err == nil:
			n.WebhookURL = agency.WebhookURL
		case errors.Is(err, domain.ErrNotFound):
			s.logger.Warn().Str("agency_id", p.AgencyID).Msg("purchase references unknown agency")
		default:
			s.logger.Warn().Err(err).Str("agency_id", p.AgencyID).Msg("load agency for webhook")
		}
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Warn().Err(err).Str("purchase_id", p.ID).Msg("enqueue purchase notification")
	}
}

// DownloadURL is the buyer-facing link for a purchase.
func (s *Service) DownloadURL(purchaseID string) string {
	return s.publicURL + "/download/" + purchaseID
}

// salvageItems decodes the serialized cart. The value may have been cut off
// mid-element, so it keeps every complete leading item and drops the rest.
func salvageItems(raw string) []domain.PurchaseItem {
	items := []domain.PurchaseItem{}
	if strings.TrimSpace(raw) == "" {
		return items
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return items
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return items
	}
	for dec.More() {
		var it domain.CartItem
		if err := dec.Decode(&it); err != nil {
			break
		}
		items = append(items, domain.PurchaseItem{
			ID:           it.ID,
			PhotoID:      it.PhotoID,
			Type:         it.Type,
			Label:        it.Label,
			Price:        it.Price,
			ThumbnailURL: it.ThumbnailURL,
		})
	}
	return items
}
