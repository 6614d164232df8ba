package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	cartstore "playa-storefront/internal/cart"
	"playa-storefront/internal/domain"
)

// ErrUnknownPhoto is returned when an item references a photo that does not exist.
var ErrUnknownPhoto = errors.New("photo not found")

type photoLookup interface {
	GetByID(ctx context.Context, id string) (*domain.Photo, error)
}

type entry struct {
	store    *cartstore.Store
	lastUsed time.Time
}

// Service keeps one open Store per browsing session. Every access re-reads the
// persisted items, so replicas sharing the persister see each other's writes.
// Stores are dropped from memory after idleTTL without access; their items stay
// persisted.
type Service struct {
	persister cartstore.Persister
	photos    photoLookup
	idleTTL   time.Duration
	now       func() time.Time
	logger    zerolog.Logger

	mu     sync.Mutex
	stores map[string]*entry
}

func New(persister cartstore.Persister, photos photoLookup, idleTTL time.Duration, logger zerolog.Logger) *Service {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	return &Service{
		persister: persister,
		photos:    photos,
		idleTTL:   idleTTL,
		now:       time.Now,
		logger:    logger.With().Str("component", "cart").Logger(),
		stores:    make(map[string]*entry),
	}
}

// Get returns the session's cart with its items synced from the persister.
func (s *Service) Get(ctx context.Context, sessionID string) *cartstore.Store {
	s.mu.Lock()
	if e, ok := s.stores[sessionID]; ok {
		e.lastUsed = s.now()
		s.mu.Unlock()
		e.store.Reload(ctx)
		return e.store
	}
	s.mu.Unlock()

	loaded := cartstore.Open(ctx, s.persister, cartstore.Key(sessionID), s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.stores[sessionID]; ok {
		e.lastUsed = s.now()
		return e.store
	}
	s.stores[sessionID] = &entry{store: loaded, lastUsed: s.now()}
	return loaded
}

// AddItem checks that the photo exists before adding it to the session's cart.
func (s *Service) AddItem(ctx context.Context, sessionID string, item cartstore.NewItem) (domain.CartItem, error) {
	if s.photos != nil && item.PhotoID != "" {
		if _, err := s.photos.GetByID(ctx, item.PhotoID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.CartItem{}, fmt.Errorf("%w: %s", ErrUnknownPhoto, item.PhotoID)
			}
			return domain.CartItem{}, err
		}
	}
	return s.Get(ctx, sessionID).Add(ctx, item)
}

// Evict drops stores idle for longer than the idle TTL and returns how many.
func (s *Service) Evict() int {
	cutoff := s.now().Add(-s.idleTTL)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.stores {
		if e.lastUsed.Before(cutoff) {
			delete(s.stores, id)
			n++
		}
	}
	return n
}

func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stores)
}

// Serve evicts idle carts periodically until ctx is cancelled.
func (s *Service) Serve(ctx context.Context) error {
	ticker := time.NewTicker(max(s.idleTTL/2, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := s.Evict(); n > 0 {
				s.logger.Debug().Int("evicted", n).Msg("evicted idle carts")
			}
		}
	}
}

func (s *Service) String() string { return "cart-registry" }
