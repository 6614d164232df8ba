package domain

import "time"

// Agency is a photography agency operating events on the storefront.
type Agency struct {
	ID         string    `json:"id"`
	Slug       string    `json:"slug"`
	Name       string    `json:"name"`
	APIKeyHash string    `json:"-"`
	WebhookURL string    `json:"webhookUrl,omitempty"`
	UsageCount int64     `json:"usageCount"`
	UsageLimit int64     `json:"usageLimit"`
	CreatedAt  time.Time `json:"createdAt"`
}

// AgencyStats backs the operator dashboard.
type AgencyStats struct {
	Events       int64 `json:"events"`
	Photos       int64 `json:"photos"`
	Sales        int64 `json:"sales"`
	RevenueCents int64 `json:"revenueCents"`
	AIUsage      int64 `json:"aiUsage"`
	AILimit      int64 `json:"aiLimit"`
}
