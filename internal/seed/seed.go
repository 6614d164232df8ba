package seed

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Options describe the demo tenant.
type Options struct {
	AgencySlug string
	AgencyName string
	WebhookURL string
	UsageLimit int64
	EventSlug  string
	EventName  string
	EventDate  string
}

func DefaultOptions() Options {
	return Options{
		AgencySlug: "demo",
		AgencyName: "Demo Agency",
		UsageLimit: 100,
		EventSlug:  "demo-event",
		EventName:  "Demo Event",
	}
}

// Result carries the ids to use against the admin API.
type Result struct {
	AgencyID string
	EventID  string
}

// KeyHasher hashes the operator key before it is stored.
type KeyHasher func(key string) (string, error)

// Apply upserts a demo agency and event. apiKey replaces the agency's key on
// every run, so the printed key always works. It is idempotent via ON CONFLICT.
func Apply(ctx context.Context, pool *pgxpool.Pool, opts Options, apiKey string, hash KeyHasher) (Result, error) {
	hashed, err := hash(apiKey)
	if err != nil {
		return Result{}, fmt.Errorf("hash api key: %w", err)
	}

	agencyID, err := upsertAgency(ctx, pool, opts, hashed)
	if err != nil {
		return Result{}, fmt.Errorf("upsert agency %s: %w", opts.AgencySlug, err)
	}
	eventID, err := upsertEvent(ctx, pool, agencyID, opts)
	if err != nil {
		return Result{}, fmt.Errorf("upsert event %s: %w", opts.EventSlug, err)
	}
	return Result{AgencyID: agencyID, EventID: eventID}, nil
}

func upsertAgency(ctx context.Context, pool *pgxpool.Pool, opts Options, keyHash string) (string, error) {
	const q = `
INSERT INTO agencies (slug, name, api_key_hash, webhook_url, usage_limit)
VALUES ($1, $2, $3, NULLIF($4, ''), $5)
ON CONFLICT (slug) DO UPDATE
SET name = EXCLUDED.name,
    api_key_hash = EXCLUDED.api_key_hash,
    webhook_url = EXCLUDED.webhook_url,
    usage_limit = EXCLUDED.usage_limit
RETURNING id::text
`
	var id string
	if err := pool.QueryRow(ctx, q, opts.AgencySlug, opts.AgencyName, keyHash, opts.WebhookURL, opts.UsageLimit).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func upsertEvent(ctx context.Context, pool *pgxpool.Pool, agencyID string, opts Options) (string, error) {
	const q = `
INSERT INTO events (agency_id, name, slug, event_date, status)
VALUES ($1, $2, $3, NULLIF($4, '')::date, 'active')
ON CONFLICT (agency_id, slug) DO UPDATE SET name = EXCLUDED.name
RETURNING id::text
`
	var id string
	if err := pool.QueryRow(ctx, q, agencyID, opts.EventName, opts.EventSlug, opts.EventDate).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}
