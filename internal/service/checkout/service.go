package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"playa-storefront/internal/domain"
	"playa-storefront/internal/metrics"
	"playa-storefront/internal/payment"
)

var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrUnauthenticated     = errors.New("sign in required to check out")
	ErrInvalidInput        = errors.New("invalid checkout request")
	ErrCheckoutUnavailable = errors.New("checkout unavailable, please retry")
)

// Metadata keys carried on the checkout session and read back by fulfillment.
const (
	MetaAgencyID      = "agencyId"
	MetaEventID       = "eventId"
	MetaCustomerEmail = "customerEmail"
	MetaCustomerName  = "customerName"
	MetaCartItems     = "cartItemsJson"

	GuestEmail = "guest"
)

const (
	successFragment = "/#/checkout/success"
	cancelFragment  = "/#/"
)

type gateway interface {
	CreateCheckoutSession(ctx context.Context, req payment.SessionRequest) (payment.Session, error)
}

type Config struct {
	Currency    string
	RequireAuth bool
	// MetadataLimit caps the serialized cart stored on the session, in characters.
	MetadataLimit int
}

// Input is everything needed to start a payment for a cart.
type Input struct {
	Items        []domain.CartItem
	AgencyID     string
	EventID      string
	ReturnURL    string
	Email        string
	CustomerName string
}

type Service struct {
	gateway gateway
	cfg     Config
	logger  zerolog.Logger
}

func New(gw gateway, cfg Config, logger zerolog.Logger) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.MetadataLimit <= 0 {
		cfg.MetadataLimit = 500
	}
	return &Service{gateway: gw, cfg: cfg, logger: logger.With().Str("component", "checkout").Logger()}
}

// Start validates the cart and requests a hosted payment session. It never
// touches the cart; a failed attempt can simply be retried.
func (s *Service) Start(ctx context.Context, in Input) (payment.Session, error) {
	if len(in.Items) == 0 {
		return payment.Session{}, ErrEmptyCart
	}
	if s.cfg.RequireAuth && strings.TrimSpace(in.Email) == "" {
		return payment.Session{}, ErrUnauthenticated
	}
	if strings.TrimSpace(in.AgencyID) == "" {
		return payment.Session{}, fmt.Errorf("%w: agency id is required", ErrInvalidInput)
	}
	base, err := normalizeReturnURL(in.ReturnURL)
	if err != nil {
		return payment.Session{}, err
	}

	req, err := s.buildRequest(in, base)
	if err != nil {
		return payment.Session{}, err
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, req)
	if err != nil {
		metrics.CheckoutSessionsTotal.WithLabelValues("failed").Inc()
		s.logger.Error().Err(err).Str("agency_id", in.AgencyID).Int("items", len(in.Items)).Msg("create checkout session")
		return payment.Session{}, fmt.Errorf("%w: %v", ErrCheckoutUnavailable, err)
	}
	metrics.CheckoutSessionsTotal.WithLabelValues("created").Inc()
	s.logger.Info().Str("session_id", sess.ID).Str("agency_id", in.AgencyID).Msg("checkout session created")
	return sess, nil
}

func (s *Service) buildRequest(in Input, base string) (payment.SessionRequest, error) {
	lineItems := make([]payment.LineItem, 0, len(in.Items))
	for _, it := range in.Items {
		if it.Price < 0 || it.Price > domain.MaxItemPrice {
			return payment.SessionRequest{}, fmt.Errorf("%w: price out of range for %s", ErrInvalidInput, it.ID)
		}
		lineItems = append(lineItems, payment.LineItem{
			Name:       it.Label,
			ImageURL:   it.ThumbnailURL,
			UnitAmount: it.UnitAmount(),
			Quantity:   1,
		})
	}

	itemsJSON, err := json.Marshal(in.Items)
	if err != nil {
		return payment.SessionRequest{}, fmt.Errorf("encode cart items: %w", err)
	}

	email := strings.TrimSpace(in.Email)
	metaEmail := email
	if metaEmail == "" {
		metaEmail = GuestEmail
	}
	meta := map[string]string{
		MetaAgencyID:      in.AgencyID,
		MetaCustomerEmail: metaEmail,
		MetaCartItems:     Truncate(string(itemsJSON), s.cfg.MetadataLimit),
	}
	if in.EventID != "" {
		meta[MetaEventID] = in.EventID
	}
	if name := strings.TrimSpace(in.CustomerName); name != "" {
		meta[MetaCustomerName] = Truncate(name, s.cfg.MetadataLimit)
	}

	return payment.SessionRequest{
		LineItems:     lineItems,
		Currency:      s.cfg.Currency,
		SuccessURL:    base + successFragment,
		CancelURL:     base + cancelFragment,
		CustomerEmail: email,
		Metadata:      meta,
	}, nil
}

func normalizeReturnURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: return url must be an absolute http(s) url", ErrInvalidInput)
	}
	if u.Fragment != "" || u.RawQuery != "" {
		return "", fmt.Errorf("%w: return url must not carry a query or fragment", ErrInvalidInput)
	}
	return strings.TrimRight(raw, "/"), nil
}

// Truncate cuts s to at most limit characters without splitting a rune.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
