package domain

import "time"

// RetentionWindow is how long a purchase (and its downloads) stays available.
const RetentionWindow = 30 * 24 * time.Hour

// PurchaseStatusPaid is the only status a stored purchase ever has.
const PurchaseStatusPaid = "paid"

// Purchase is a paid order recorded from a payment-completion event. Items are a
// snapshot taken at payment time and are never updated.
type Purchase struct {
	ID           string         `json:"id"`
	SessionID    string         `json:"sessionId"`
	EventID      string         `json:"eventId,omitempty"`
	AgencyID     string         `json:"agencyId,omitempty"`
	Email        string         `json:"email"`
	CustomerName string         `json:"customerName,omitempty"`
	Items        []PurchaseItem `json:"items"`
	Status       string         `json:"status"`
	CreatedAt    time.Time      `json:"createdAt"`
	ExpiresAt    time.Time      `json:"expiresAt"`
}

// PurchaseItem mirrors CartItem at the moment of payment.
type PurchaseItem struct {
	ID           string      `json:"id"`
	PhotoID      string      `json:"photoId"`
	Type         ProductType `json:"type,omitempty"`
	Label        string      `json:"label"`
	Price        float64     `json:"price"`
	ThumbnailURL string      `json:"thumbnailUrl,omitempty"`
}

// TotalCents sums item prices in minor units.
func (p Purchase) TotalCents() int64 {
	var total int64
	for _, it := range p.Items {
		total += ToMinorUnits(it.Price)
	}
	return total
}

// Expired reports whether the retention window has passed at now. A purchase
// stays valid through the instant ExpiresAt, matching the sweeper's cutoff.
func (p Purchase) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
