package event

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"playa-storefront/internal/domain"
)

const eventColumns = `id::text, agency_id::text, name, slug, COALESCE(event_date::text, ''), status, created_at`

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Create(ctx context.Context, e domain.Event) (*domain.Event, error) {
	status := e.Status
	if status == "" {
		status = domain.EventStatusActive
	}
	const q = `
INSERT INTO events (agency_id, name, slug, event_date, status)
VALUES ($1, $2, $3, NULLIF($4, '')::date, $5)
RETURNING ` + eventColumns
	return scanEvent(r.pool.QueryRow(ctx, q, e.AgencyID, e.Name, e.Slug, e.Date, status))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return scanEvent(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) ListByAgency(ctx context.Context, agencyID string) ([]domain.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE agency_id = $1 ORDER BY created_at DESC, id`
	rows, err := r.pool.Query(ctx, q, agencyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *postgresRepo) CountByAgency(ctx context.Context, agencyID string) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM events WHERE agency_id = $1`, agencyID).Scan(&n)
	return n, err
}

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var e domain.Event
	if err := row.Scan(&e.ID, &e.AgencyID, &e.Name, &e.Slug, &e.Date, &e.Status, &e.CreatedAt); err != nil {
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
		return nil, err
	}
	return &e, nil
}
