// Package payment talks to the hosted payment platform: it creates checkout
// sessions and turns signed webhook deliveries into Events.
package payment

import (
	"context"
	"errors"
)

// EventCheckoutCompleted is the only event type that fulfils an order.
const EventCheckoutCompleted = "checkout.session.completed"

var (
	// ErrInvalidSignature means a webhook payload could not be authenticated.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrMalformedEvent means the payload was authentic but not decodable.
	ErrMalformedEvent = errors.New("malformed webhook event")
)

// LineItem is one priced entry on the hosted payment page.
type LineItem struct {
	Name       string
	ImageURL   string
	UnitAmount int64
	Quantity   int64
}

type SessionRequest struct {
	LineItems     []LineItem
	Currency      string
	SuccessURL    string
	CancelURL     string
	CustomerEmail string
	Metadata      map[string]string
}

type Session struct {
	ID  string
	URL string
}

// Event is a verified webhook delivery. Session fields are filled only for
// checkout session events.
type Event struct {
	ID            string
	Type          string
	SessionID     string
	Metadata      map[string]string
	CustomerEmail string
	CustomerName  string
}

// Gateway is the payment platform as seen by checkout and fulfillment.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error)
	ParseEvent(payload []byte, signatureHeader string) (Event, error)
}
