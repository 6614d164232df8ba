package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"playa-storefront/internal/metrics"
)

// BreakerConfig controls when session creation stops calling the platform.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

type sessionCreator func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)

// Stripe implements Gateway with the Stripe API.
type Stripe struct {
	create        sessionCreator
	webhookSecret string
	breaker       *gobreaker.CircuitBreaker[Session]
	logger        zerolog.Logger
}

// NewStripe builds a Stripe gateway for the given secret key and webhook signing secret.
func NewStripe(secretKey, webhookSecret string, breaker BreakerConfig, logger zerolog.Logger) *Stripe {
	sc := client.New(secretKey, nil)
	return newStripe(sc.CheckoutSessions.New, webhookSecret, breaker, logger)
}

func newStripe(create sessionCreator, webhookSecret string, cfg BreakerConfig, logger zerolog.Logger) *Stripe {
	s := &Stripe{
		create:        create,
		webhookSecret: webhookSecret,
		logger:        logger.With().Str("component", "payment").Logger(),
	}
	s.breaker = gobreaker.NewCircuitBreaker[Session](gobreaker.Settings{
		Name:        "stripe-checkout",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	return s
}

// CreateCheckoutSession requests a hosted payment page.
func (s *Stripe) CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error) {
	params := buildSessionParams(req)
	params.Context = ctx

	return s.breaker.Execute(func() (Session, error) {
		cs, err := s.create(params)
		if err != nil {
			return Session{}, fmt.Errorf("create checkout session: %w", err)
		}
		if cs.URL == "" {
			return Session{}, fmt.Errorf("create checkout session: empty url for %s", cs.ID)
		}
		return Session{ID: cs.ID, URL: cs.URL}, nil
	})
}

// ParseEvent verifies the Stripe-Signature header against the signing secret
// and decodes the event.
func (s *Stripe) ParseEvent(payload []byte, signatureHeader string) (Event, error) {
	if s.webhookSecret == "" || strings.TrimSpace(signatureHeader) == "" {
		return Event{}, ErrInvalidSignature
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signatureHeader, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := Event{ID: ev.ID, Type: string(ev.Type)}
	if !strings.HasPrefix(out.Type, "checkout.session.") {
		return out, nil
	}
	if ev.Data == nil {
		return Event{}, fmt.Errorf("%w: missing data", ErrMalformedEvent)
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	out.SessionID = cs.ID
	out.Metadata = cs.Metadata
	out.CustomerEmail = cs.CustomerEmail
	if cs.CustomerDetails != nil {
		if cs.CustomerDetails.Email != "" {
			out.CustomerEmail = cs.CustomerDetails.Email
		}
		out.CustomerName = cs.CustomerDetails.Name
	}
	return out, nil
}

func buildSessionParams(req SessionRequest) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for _, li := range req.LineItems {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(li.Name),
		}
		if li.ImageURL != "" {
			product.Images = []*string{stripe.String(li.ImageURL)}
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(req.Currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(li.UnitAmount),
			},
			Quantity: stripe.Int64(li.Quantity),
		})
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	return params
}
