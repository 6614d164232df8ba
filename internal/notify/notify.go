// Package notify delivers purchase notifications (buyer email and the agency's
// CRM webhook) off the request path.
package notify

import (
	"context"
	"time"
)

// Notice describes one recorded purchase to announce.
type Notice struct {
	PurchaseID   string
	Email        string
	CustomerName string
	AgencyID     string
	// WebhookURL is the agency's integration endpoint; empty skips the webhook.
	WebhookURL  string
	DownloadURL string
	ExpiresAt   time.Time
	ItemCount   int
}

type EmailSender interface {
	SendPurchaseEmail(ctx context.Context, n Notice) error
}

type WebhookSender interface {
	SendPurchaseWebhook(ctx context.Context, n Notice) error
}
