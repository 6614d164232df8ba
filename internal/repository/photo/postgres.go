package photo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"playa-storefront/internal/domain"
)

const photoColumns = `id::text, event_id::text, object_path, content_type, created_at`

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

// Create inserts p. A caller-supplied ID is kept so the storage path can embed it.
func (r *postgresRepo) Create(ctx context.Context, p domain.Photo) (*domain.Photo, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	const q = `
INSERT INTO photos (id, event_id, object_path, content_type)
VALUES ($1, $2, $3, $4)
RETURNING ` + photoColumns
	return scanPhoto(r.pool.QueryRow(ctx, q, p.ID, p.EventID, p.ObjectPath, p.ContentType))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Photo, error) {
	const q = `SELECT ` + photoColumns + ` FROM photos WHERE id = $1`
	return scanPhoto(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) ListByEvent(ctx context.Context, eventID string) ([]domain.Photo, error) {
	const q = `SELECT ` + photoColumns + ` FROM photos WHERE event_id = $1 ORDER BY created_at, id`
	return r.list(ctx, q, eventID)
}

func (r *postgresRepo) ListByIDs(ctx context.Context, ids []string) ([]domain.Photo, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []domain.Photo{}, nil
	}
	const q = `SELECT ` + photoColumns + ` FROM photos WHERE id = ANY($1::uuid[])`
	return r.list(ctx, q, valid)
}

func (r *postgresRepo) CountByAgency(ctx context.Context, agencyID string) (int64, error) {
	const q = `
SELECT count(*)
FROM photos p
JOIN events e ON e.id = p.event_id
WHERE e.agency_id = $1
`
	var n int64
	err := r.pool.QueryRow(ctx, q, agencyID).Scan(&n)
	return n, err
}

func (r *postgresRepo) list(ctx context.Context, q string, arg any) ([]domain.Photo, error) {
	rows, err := r.pool.Query(ctx, q, arg)
	if err != nil {
		if isInvalidUUID(err) {
			return []domain.Photo{}, nil
		}
		return nil, err
	}
	defer rows.Close()

	out := []domain.Photo{}
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return []domain.Photo{}, nil
		}
		return nil, err
	}
	return out, nil
}

func isInvalidUUID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}

func scanPhoto(row pgx.Row) (*domain.Photo, error) {
	var p domain.Photo
	if err := row.Scan(&p.ID, &p.EventID, &p.ObjectPath, &p.ContentType, &p.CreatedAt); err != nil {
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
			case "23503":
				// event does not exist
				return nil, domain.ErrNotFound
			}
		}
		return nil, err
	}
	return &p, nil
}
