package gallery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"playa-storefront/internal/domain"
	"playa-storefront/internal/storage"
)

var (
	ErrInvalidInput = errors.New("invalid gallery request")
	// ErrForbidden is returned when an operator touches another agency's event.
	ErrForbidden = errors.New("event belongs to another agency")
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type eventRepo interface {
	Create(ctx context.Context, e domain.Event) (*domain.Event, error)
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	ListByAgency(ctx context.Context, agencyID string) ([]domain.Event, error)
}

type photoRepo interface {
	Create(ctx context.Context, p domain.Photo) (*domain.Photo, error)
	ListByEvent(ctx context.Context, eventID string) ([]domain.Photo, error)
}

// Preview is what a visitor sees in an event gallery.
type Preview struct {
	ID         string `json:"id"`
	EventID    string `json:"eventId"`
	PreviewURL string `json:"previewUrl"`
}

// NewEvent is an operator's request to open a gallery.
type NewEvent struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
	Date string `json:"date"`
}

// Upload is one photo original sent by an operator.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

type Service struct {
	events  eventRepo
	photos  photoRepo
	objects storage.ObjectStore
	assets  string
	logger  zerolog.Logger
}

func New(events eventRepo, photos photoRepo, objects storage.ObjectStore, assetBaseURL string, logger zerolog.Logger) *Service {
	return &Service{
		events:  events,
		photos:  photos,
		objects: objects,
		assets:  assetBaseURL,
		logger:  logger.With().Str("component", "gallery").Logger(),
	}
}

func (s *Service) CreateEvent(ctx context.Context, agencyID string, in NewEvent) (*domain.Event, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		slug = slugify(name)
	}
	if slug == "" {
		return nil, fmt.Errorf("%w: slug is required", ErrInvalidInput)
	}
	return s.events.Create(ctx, domain.Event{
		AgencyID: agencyID,
		Name:     name,
		Slug:     slug,
		Date:     strings.TrimSpace(in.Date),
		Status:   domain.EventStatusActive,
	})
}

func (s *Service) ListEvents(ctx context.Context, agencyID string) ([]domain.Event, error) {
	return s.events.ListByAgency(ctx, agencyID)
}

// UploadPhoto writes the original to object storage, then records the photo row.
// The stored object is removed again if the row cannot be written.
func (s *Service) UploadPhoto(ctx context.Context, agencyID, eventID string, up Upload) (*domain.Photo, error) {
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.AgencyID != agencyID {
		return nil, ErrForbidden
	}

	contentType := strings.ToLower(strings.TrimSpace(strings.Split(up.ContentType, ";")[0]))
	ext, ok := allowedTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported content type %q", ErrInvalidInput, up.ContentType)
	}
	if contentType == "image/jpeg" && strings.EqualFold(path.Ext(up.Filename), ".jpeg") {
		ext = ".jpeg"
	}

	id := uuid.NewString()
	objectPath := fmt.Sprintf("events/%s/%s%s", ev.ID, id, ext)
	if err := s.objects.Put(ctx, objectPath, contentType, up.Body); err != nil {
		return nil, fmt.Errorf("store original: %w", err)
	}

	p, err := s.photos.Create(ctx, domain.Photo{
		ID:          id,
		EventID:     ev.ID,
		ObjectPath:  objectPath,
		ContentType: contentType,
	})
	if err != nil {
		if delErr := s.objects.Delete(ctx, objectPath); delErr != nil {
			s.logger.Error().Err(delErr).Str("object", objectPath).Msg("remove orphaned original")
		}
		return nil, err
	}
	s.logger.Info().Str("event_id", ev.ID).Str("photo_id", p.ID).Msg("photo uploaded")
	return p, nil
}

// Previews lists the watermarked previews of an active event.
func (s *Service) Previews(ctx context.Context, eventID string) ([]Preview, error) {
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.Status != domain.EventStatusActive {
		return nil, domain.ErrNotFound
	}
	photos, err := s.photos.ListByEvent(ctx, ev.ID)
	if err != nil {
		return nil, err
	}
	out := make([]Preview, 0, len(photos))
	for _, p := range photos {
		out = append(out, Preview{
			ID:         p.ID,
			EventID:    p.EventID,
			PreviewURL: storage.PublicURL(s.assets, p.WatermarkedPath()),
		})
	}
	return out, nil
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
