package cart

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartstore "playa-storefront/internal/cart"
)

func setupRedis(t *testing.T, ttl time.Duration) (Repository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client, ttl), mr
}

func TestLoadMissingKey(t *testing.T) {
	repo, _ := setupRedis(t, time.Hour)

	data, err := repo.Load(context.Background(), "mm_cart:nobody")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestSaveLoadAndTTL(t *testing.T) {
	repo, mr := setupRedis(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "mm_cart:s1", []byte(`[{"id":"a"}]`)))

	data, err := repo.Load(ctx, "mm_cart:s1")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"a"}]`, string(data))
	assert.Equal(t, time.Hour, mr.TTL("mm_cart:s1"))

	mr.FastForward(30 * time.Minute)
	require.NoError(t, repo.Save(ctx, "mm_cart:s1", []byte(`[]`)))
	assert.Equal(t, time.Hour, mr.TTL("mm_cart:s1"), "save slides the TTL")

	mr.FastForward(61 * time.Minute)
	data, err = repo.Load(ctx, "mm_cart:s1")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestDelete(t *testing.T) {
	repo, mr := setupRedis(t, time.Hour)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, "k", []byte("[]")))

	require.NoError(t, repo.Delete(ctx, "k"))
	assert.False(t, mr.Exists("k"))
}

func TestRedisErrorsSurface(t *testing.T) {
	repo, mr := setupRedis(t, time.Hour)
	mr.SetError("LOADING")

	_, err := repo.Load(context.Background(), "k")
	require.Error(t, err)
	require.Error(t, repo.Save(context.Background(), "k", []byte("[]")))
}

func TestStoreRoundTripThroughRedis(t *testing.T) {
	repo, mr := setupRedis(t, time.Hour)
	ctx := context.Background()
	key := cartstore.Key("sess-1")

	s := cartstore.Open(ctx, repo, key, zerolog.Nop())
	_, err := s.Add(ctx, cartstore.NewItem{PhotoID: "p1", Label: "Social Download", Price: 4.99})
	require.NoError(t, err)
	_, err = s.Add(ctx, cartstore.NewItem{PhotoID: "p2", Label: "Print", Price: 14.99})
	require.NoError(t, err)
	require.True(t, mr.Exists(key))

	reloaded := cartstore.Open(ctx, repo, key, zerolog.Nop())
	assert.Equal(t, s.Items(), reloaded.Items())
	assert.InDelta(t, 19.98, reloaded.Total(), 1e-9)

	mr.Set(key, "garbage")
	corrupt := cartstore.Open(ctx, repo, key, zerolog.Nop())
	assert.Zero(t, corrupt.Count())
}
