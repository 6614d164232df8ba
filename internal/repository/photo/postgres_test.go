package photo

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playa-storefront/internal/domain"
	"playa-storefront/internal/migrate"
	eventrepo "playa-storefront/internal/repository/event"
)

func TestPostgres_EventPhotoLifecycle(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)

	var agencyID string
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO agencies (slug, name, api_key_hash) VALUES ('a1', 'Agency', 'h') RETURNING id::text`,
	).Scan(&agencyID))

	events := eventrepo.NewPostgres(pool)
	ev, err := events.Create(ctx, domain.Event{AgencyID: agencyID, Name: "Beach Run", Slug: "beach-run", Date: "2026-02-14"})
	require.NoError(t, err)
	assert.Equal(t, domain.EventStatusActive, ev.Status)
	assert.Equal(t, "2026-02-14", ev.Date)

	photos := NewPostgres(pool)
	id := uuid.NewString()
	p, err := photos.Create(ctx, domain.Photo{ID: id, EventID: ev.ID, ObjectPath: "events/" + ev.ID + "/" + id + ".jpg", ContentType: "image/jpeg"})
	require.NoError(t, err)
	assert.Equal(t, id, p.ID)

	_, err = photos.Create(ctx, domain.Photo{EventID: uuid.NewString(), ObjectPath: "x.jpg"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	listed, err := photos.ListByEvent(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	byIDs, err := photos.ListByIDs(ctx, []string{id, "garbage", uuid.NewString()})
	require.NoError(t, err)
	require.Len(t, byIDs, 1)

	n, err := photos.CountByAgency(ctx, agencyID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	en, err := events.CountByAgency(ctx, agencyID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), en)
}

func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE photos, events, agencies CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return pool
}
