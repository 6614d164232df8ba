// Package cart holds a visitor's pending selections. A Store is the only way to
// read or mutate a cart: consumers go through Add/Remove/Clear/Toggle and observe
// changes through Subscribe.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"playa-storefront/internal/domain"
)

// KeyPrefix namespaces persisted carts.
const KeyPrefix = "mm_cart"

// ErrInvalidItem is returned by Add when the item fails validation.
var ErrInvalidItem = errors.New("invalid cart item")

var validate = validator.New()

// Key returns the persistence key for a browsing session.
func Key(sessionID string) string {
	return KeyPrefix + ":" + sessionID
}

// Persister stores the serialized item list. Load returns nil, nil when nothing
// has been saved under key.
type Persister interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// NewItem is a selection before it is assigned an id.
type NewItem struct {
	PhotoID      string             `json:"photoId" validate:"required"`
	Type         domain.ProductType `json:"type" validate:"omitempty,oneof=social print original remix"`
	Label        string             `json:"label" validate:"required"`
	Price        float64            `json:"price" validate:"gte=0,lte=999999.99"`
	ThumbnailURL string             `json:"thumbnailUrl"`
}

// Snapshot is a consistent view of the cart.
type Snapshot struct {
	Items  []domain.CartItem `json:"items"`
	IsOpen bool              `json:"isOpen"`
	Total  float64           `json:"total"`
	Count  int               `json:"count"`
}

// Listener receives the cart state after every change.
type Listener func(Snapshot)

// Store is a single visitor's cart.
type Store struct {
	mu        sync.Mutex
	key       string
	persister Persister
	logger    zerolog.Logger

	items []domain.CartItem
	open  bool

	nextSub   int
	listeners map[int]Listener
}

// Open builds a Store and loads any persisted items under key. Missing or
// unreadable data yields an empty cart; the failure is logged.
func Open(ctx context.Context, persister Persister, key string, logger zerolog.Logger) *Store {
	s := &Store{
		key:       key,
		persister: persister,
		logger:    logger.With().Str("cart_key", key).Logger(),
		items:     []domain.CartItem{},
		listeners: make(map[int]Listener),
	}
	s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) {
	if items, ok := s.read(ctx); ok {
		s.items = items
	}
}

// Reload replaces the items with the persisted list when another writer has
// changed it. A failed or corrupt read keeps the current items.
func (s *Store) Reload(ctx context.Context) {
	items, ok := s.read(ctx)
	if !ok {
		return
	}
	s.mu.Lock()
	if slices.Equal(s.items, items) {
		s.mu.Unlock()
		return
	}
	s.items = items
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap)
}

// read loads the persisted items. Absent data is an empty cart.
func (s *Store) read(ctx context.Context) ([]domain.CartItem, bool) {
	if s.persister == nil {
		return nil, false
	}
	raw, err := s.persister.Load(ctx, s.key)
	if err != nil {
		s.logger.Warn().Err(err).Msg("load cart")
		return nil, false
	}
	items := []domain.CartItem{}
	if len(raw) == 0 {
		return items, true
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		s.logger.Warn().Err(err).Msg("discarding corrupt cart data")
		return nil, false
	}
	if items == nil {
		items = []domain.CartItem{}
	}
	return items, true
}

// Add assigns a fresh id to item, appends it and opens the cart.
func (s *Store) Add(ctx context.Context, item NewItem) (domain.CartItem, error) {
	if err := validate.Struct(item); err != nil {
		return domain.CartItem{}, fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}

	added := domain.CartItem{
		ID:           uuid.NewString(),
		PhotoID:      item.PhotoID,
		Type:         item.Type,
		Label:        item.Label,
		Price:        item.Price,
		ThumbnailURL: item.ThumbnailURL,
	}

	s.mu.Lock()
	s.items = append(s.items, added)
	s.open = true
	snap := s.mutatedLocked(ctx)
	s.mu.Unlock()

	s.publish(snap)
	return added, nil
}

// Remove drops the item with id. Unknown ids are ignored.
func (s *Store) Remove(ctx context.Context, id string) {
	s.mu.Lock()
	idx := -1
	for i, it := range s.items {
		if it.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.items = append(s.items[:idx:idx], s.items[idx+1:]...)
	snap := s.mutatedLocked(ctx)
	s.mu.Unlock()

	s.publish(snap)
}

// Clear empties the cart and closes it.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.items = []domain.CartItem{}
	s.open = false
	snap := s.mutatedLocked(ctx)
	s.mu.Unlock()

	s.publish(snap)
}

// Toggle flips the open flag. Items are not touched and nothing is persisted.
func (s *Store) Toggle() bool {
	s.mu.Lock()
	s.open = !s.open
	open := s.open
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(snap)
	return open
}

// Items returns a copy of the current items in insertion order.
func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.items)
}

// TotalCents is the sum of item prices in minor units.
func (s *Store) TotalCents() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalCents(s.items)
}

// Total is the sum of item prices as a decimal amount.
func (s *Store) Total() float64 {
	return domain.FromMinorUnits(s.TotalCents())
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn for change notifications and returns a function that
// removes it. Listeners run on the mutating goroutine after the lock is released.
func (s *Store) Subscribe(fn Listener) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// mutatedLocked persists the item list and returns the new snapshot.
func (s *Store) mutatedLocked(ctx context.Context) Snapshot {
	s.persistLocked(ctx)
	return s.snapshotLocked()
}

func (s *Store) persistLocked(ctx context.Context) {
	if s.persister == nil {
		return
	}
	data, err := json.Marshal(s.items)
	if err != nil {
		s.logger.Error().Err(err).Msg("encode cart")
		return
	}
	if err := s.persister.Save(ctx, s.key, data); err != nil {
		s.logger.Warn().Err(err).Msg("persist cart")
	}
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Items:  cloneItems(s.items),
		IsOpen: s.open,
		Total:  domain.FromMinorUnits(totalCents(s.items)),
		Count:  len(s.items),
	}
}

func (s *Store) publish(snap Snapshot) {
	s.mu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

func totalCents(items []domain.CartItem) int64 {
	var total int64
	for _, it := range items {
		total += it.UnitAmount()
	}
	return total
}

func cloneItems(items []domain.CartItem) []domain.CartItem {
	out := make([]domain.CartItem, len(items))
	copy(out, items)
	return out
}
