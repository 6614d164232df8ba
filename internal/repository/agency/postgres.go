package agency

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"playa-storefront/internal/domain"
)

const agencyColumns = `id::text, slug, name, api_key_hash, COALESCE(webhook_url, ''), usage_count, usage_limit, created_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger zerolog.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.With().Str("repo", "agency").Logger()}
}

func (r *postgresRepo) Create(ctx context.Context, a domain.Agency) (*domain.Agency, error) {
	const q = `
INSERT INTO agencies (slug, name, api_key_hash, webhook_url, usage_limit)
VALUES ($1, $2, $3, NULLIF($4, ''), $5)
RETURNING ` + agencyColumns
	return r.scanAgency(r.pool.QueryRow(ctx, q, a.Slug, a.Name, a.APIKeyHash, a.WebhookURL, a.UsageLimit))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Agency, error) {
	const q = `SELECT ` + agencyColumns + ` FROM agencies WHERE id = $1`
	return r.scanAgency(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) GetBySlug(ctx context.Context, slug string) (*domain.Agency, error) {
	const q = `SELECT ` + agencyColumns + ` FROM agencies WHERE slug = $1`
	return r.scanAgency(r.pool.QueryRow(ctx, q, slug))
}

func (r *postgresRepo) ConsumeUsage(ctx context.Context, id string, n int64) (*domain.Agency, error) {
	const q = `
UPDATE agencies
SET usage_count = usage_count + $2
WHERE id = $1 AND (usage_limit = 0 OR usage_count + $2 <= usage_limit)
RETURNING ` + agencyColumns
	a, err := r.scanAgency(r.pool.QueryRow(ctx, q, id, n))
	if !errors.Is(err, domain.ErrNotFound) {
		return a, err
	}
	// Either the agency is missing or the guard rejected the increment.
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, domain.ErrUsageLimitReached
}

func (r *postgresRepo) scanAgency(row pgx.Row) (*domain.Agency, error) {
	var a domain.Agency
	err := row.Scan(
		&a.ID,
		&a.Slug,
		&a.Name,
		&a.APIKeyHash,
		&a.WebhookURL,
		&a.UsageCount,
		&a.UsageLimit,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return nil, domain.ErrAlreadyExists
			case "22P02":
				return nil, domain.ErrNotFound
			}
		}
		r.logger.Error().Err(err).Msg("scan agency")
		return nil, err
	}
	return &a, nil
}
