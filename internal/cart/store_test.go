package cart

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playa-storefront/internal/domain"
)

type memPersister struct {
	mu      sync.Mutex
	data    map[string][]byte
	saves   int
	saveErr error
	loadErr error
}

func newMemPersister() *memPersister {
	return &memPersister{data: make(map[string][]byte)}
}

func (m *memPersister) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.data[key], nil
}

func (m *memPersister) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func openStore(t *testing.T, p Persister) *Store {
	t.Helper()
	return Open(context.Background(), p, Key("s1"), zerolog.Nop())
}

func TestAddAssignsIDsAndOpens(t *testing.T) {
	s := openStore(t, newMemPersister())
	ctx := context.Background()

	a, err := s.Add(ctx, NewItem{PhotoID: "p1", Type: domain.ProductSocial, Label: "Social Download", Price: 4.99})
	require.NoError(t, err)
	b, err := s.Add(ctx, NewItem{PhotoID: "p1", Type: domain.ProductPrint, Label: "Print", Price: 14.99})
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.True(t, s.IsOpen())
	assert.Equal(t, 2, s.Count())
	assert.Equal(t, int64(1998), s.TotalCents())
	assert.InDelta(t, 19.98, s.Total(), 1e-9)
}

func TestAddRejectsInvalidItems(t *testing.T) {
	s := openStore(t, newMemPersister())
	ctx := context.Background()

	cases := []NewItem{
		{PhotoID: "p1", Label: "Print", Price: -1},
		{Label: "Print", Price: 1},
		{PhotoID: "p1", Price: 1},
		{PhotoID: "p1", Label: "Print", Price: 1, Type: "poster"},
		{PhotoID: "p1", Label: "Print", Price: 1e18},
		{PhotoID: "p1", Label: "Print", Price: math.Inf(1)},
		{PhotoID: "p1", Label: "Print", Price: math.NaN()},
	}
	for _, in := range cases {
		_, err := s.Add(ctx, in)
		assert.ErrorIs(t, err, ErrInvalidItem, "%+v", in)
	}
	assert.Zero(t, s.Count())
	assert.False(t, s.IsOpen())
}

func TestAddAcceptsMaxPrice(t *testing.T) {
	s := openStore(t, newMemPersister())

	_, err := s.Add(context.Background(), NewItem{PhotoID: "p1", Label: "Print", Price: domain.MaxItemPrice})
	require.NoError(t, err)
	assert.Equal(t, int64(99999999), s.TotalCents())
}

func TestReloadPicksUpExternalWrites(t *testing.T) {
	p := newMemPersister()
	a := openStore(t, p)
	b := openStore(t, p)
	ctx := context.Background()

	var seen []Snapshot
	cancel := b.Subscribe(func(snap Snapshot) { seen = append(seen, snap) })
	defer cancel()

	_, err := a.Add(ctx, NewItem{PhotoID: "p1", Label: "Print", Price: 14.99})
	require.NoError(t, err)
	assert.Zero(t, b.Count())

	b.Reload(ctx)
	assert.Equal(t, a.Items(), b.Items())
	assert.Equal(t, int64(1499), b.TotalCents())
	require.Len(t, seen, 1)

	b.Reload(ctx)
	assert.Len(t, seen, 1, "unchanged data publishes nothing")

	a.Clear(ctx)
	b.Reload(ctx)
	assert.Zero(t, b.Count())

	p.loadErr = errors.New("redis down")
	_, err = a.Add(ctx, NewItem{PhotoID: "p2", Label: "Print", Price: 1})
	require.NoError(t, err)
	b.Reload(ctx)
	assert.Zero(t, b.Count(), "failed read keeps current items")
}

func TestTotalMatchesItemsAfterEveryMutation(t *testing.T) {
	s := openStore(t, newMemPersister())
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		items := s.Items()
		if len(items) > 0 && rng.Intn(3) == 0 {
			s.Remove(ctx, items[rng.Intn(len(items))].ID)
		} else {
			price := float64(rng.Intn(5000)) / 100
			_, err := s.Add(ctx, NewItem{PhotoID: "p", Label: "x", Price: price})
			require.NoError(t, err)
		}

		items = s.Items()
		var want int64
		for _, it := range items {
			want += domain.ToMinorUnits(it.Price)
		}
		require.Equal(t, want, s.TotalCents())
		require.Equal(t, len(items), s.Count())
	}
}

func TestRemoveUnknownIsNoop(t *testing.T) {
	p := newMemPersister()
	s := openStore(t, p)
	ctx := context.Background()
	_, err := s.Add(ctx, NewItem{PhotoID: "p1", Label: "Social Download", Price: 4.99})
	require.NoError(t, err)

	before := s.Items()
	saves := p.saves
	s.Remove(ctx, "missing")

	assert.Equal(t, before, s.Items())
	assert.Equal(t, saves, p.saves)
}

func TestClearEmptiesAndCloses(t *testing.T) {
	s := openStore(t, newMemPersister())
	ctx := context.Background()
	_, err := s.Add(ctx, NewItem{PhotoID: "p1", Label: "Print", Price: 14.99})
	require.NoError(t, err)

	s.Clear(ctx)

	snap := s.Snapshot()
	assert.Empty(t, snap.Items)
	assert.False(t, snap.IsOpen)
	assert.Zero(t, snap.Total)

	s.Clear(ctx)
	assert.False(t, s.IsOpen())
}

func TestToggleLeavesItems(t *testing.T) {
	s := openStore(t, newMemPersister())
	ctx := context.Background()
	_, err := s.Add(ctx, NewItem{PhotoID: "p1", Label: "Print", Price: 14.99})
	require.NoError(t, err)

	assert.False(t, s.Toggle())
	assert.True(t, s.Toggle())
	assert.Equal(t, 1, s.Count())
}

func TestPersistReloadRoundTrip(t *testing.T) {
	p := newMemPersister()
	s := openStore(t, p)
	ctx := context.Background()
	for _, label := range []string{"a", "b", "c"} {
		_, err := s.Add(ctx, NewItem{PhotoID: "p-" + label, Label: label, Price: 1.25})
		require.NoError(t, err)
	}

	reloaded := openStore(t, p)
	assert.Equal(t, s.Items(), reloaded.Items())
	assert.False(t, reloaded.IsOpen())
}

func TestCorruptDataLoadsEmpty(t *testing.T) {
	p := newMemPersister()
	p.data[Key("s1")] = []byte("{not json")

	s := openStore(t, p)
	assert.Zero(t, s.Count())
	assert.NotNil(t, s.Items())
}

func TestPersistenceFailuresAreNotSurfaced(t *testing.T) {
	p := newMemPersister()
	p.loadErr = errors.New("redis down")
	p.saveErr = errors.New("redis down")

	s := openStore(t, p)
	_, err := s.Add(context.Background(), NewItem{PhotoID: "p1", Label: "Print", Price: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Count())
}

func TestSubscribeReceivesChangesUntilCancelled(t *testing.T) {
	s := openStore(t, nil)
	ctx := context.Background()

	var got []Snapshot
	cancel := s.Subscribe(func(snap Snapshot) { got = append(got, snap) })

	_, err := s.Add(ctx, NewItem{PhotoID: "p1", Label: "Print", Price: 3})
	require.NoError(t, err)
	s.Toggle()
	cancel()
	cancel()
	s.Clear(ctx)

	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Count)
	assert.True(t, got[0].IsOpen)
	assert.False(t, got[1].IsOpen)
}
