package purchase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"playa-storefront/internal/domain"
)

const purchaseColumns = `id::text, session_id, event_id, agency_id, email, customer_name, items, status, created_at, expires_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger zerolog.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logger.With().Str("repo", "purchase").Logger()}
}

func (r *postgresRepo) Create(ctx context.Context, p domain.Purchase) (*domain.Purchase, bool, error) {
	items := p.Items
	if items == nil {
		items = []domain.PurchaseItem{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, false, fmt.Errorf("encode items: %w", err)
	}

	const q = `
INSERT INTO purchases (id, session_id, event_id, agency_id, email, customer_name, items, total_cents, status, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (session_id) DO NOTHING
RETURNING ` + purchaseColumns
	stored, err := r.scanPurchase(r.pool.QueryRow(ctx, q,
		p.ID,
		p.SessionID,
		p.EventID,
		p.AgencyID,
		p.Email,
		p.CustomerName,
		itemsJSON,
		p.TotalCents(),
		p.Status,
		p.CreatedAt,
		p.ExpiresAt,
	))
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	// Nothing returned: another delivery for this session already wrote the row.
	existing, err := r.GetBySession(ctx, p.SessionID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Purchase, error) {
	const q = `SELECT ` + purchaseColumns + ` FROM purchases WHERE id = $1`
	return r.scanPurchase(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) GetBySession(ctx context.Context, sessionID string) (*domain.Purchase, error) {
	const q = `SELECT ` + purchaseColumns + ` FROM purchases WHERE session_id = $1`
	return r.scanPurchase(r.pool.QueryRow(ctx, q, sessionID))
}

func (r *postgresRepo) ListExpired(ctx context.Context, before time.Time) ([]domain.Purchase, error) {
	const q = `SELECT ` + purchaseColumns + ` FROM purchases WHERE expires_at < $1 ORDER BY expires_at, id`
	rows, err := r.pool.Query(ctx, q, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Purchase
	for rows.Next() {
		p, err := r.scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM purchases WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
			return domain.ErrNotFound
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) SalesByAgency(ctx context.Context, agencyID string) (int64, int64, error) {
	const q = `SELECT count(*), COALESCE(sum(total_cents), 0)::bigint FROM purchases WHERE agency_id = $1`
	var count, revenue int64
	if err := r.pool.QueryRow(ctx, q, agencyID).Scan(&count, &revenue); err != nil {
		return 0, 0, err
	}
	return count, revenue, nil
}

func (r *postgresRepo) scanPurchase(row pgx.Row) (*domain.Purchase, error) {
	var p domain.Purchase
	var itemsJSON []byte
	err := row.Scan(
		&p.ID,
		&p.SessionID,
		&p.EventID,
		&p.AgencyID,
		&p.Email,
		&p.CustomerName,
		&itemsJSON,
		&p.Status,
		&p.CreatedAt,
		&p.ExpiresAt,
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
				// malformed uuid in a lookup
				return nil, domain.ErrNotFound
			}
		}
		r.logger.Error().Err(err).Msg("scan purchase")
		return nil, err
	}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &p.Items); err != nil {
			r.logger.Error().Err(err).Str("purchase_id", p.ID).Msg("decode purchase items")
			return nil, err
		}
	}
	return &p, nil
}
