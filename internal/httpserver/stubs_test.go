package httpserver

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"playa-storefront/internal/auth"
	"playa-storefront/internal/domain"
	"playa-storefront/internal/payment"
	agencysvc "playa-storefront/internal/service/agency"
	cartsvc "playa-storefront/internal/service/cart"
	"playa-storefront/internal/service/checkout"
	"playa-storefront/internal/service/download"
	"playa-storefront/internal/service/fulfillment"
	"playa-storefront/internal/service/gallery"
	"playa-storefront/internal/service/session"
	"playa-storefront/internal/service/sweeper"
)

type memPersister struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memPersister) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memPersister) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	return nil
}

type stubPhotoLookup struct{}

func (stubPhotoLookup) GetByID(_ context.Context, id string) (*domain.Photo, error) {
	if id == "missing" {
		return nil, domain.ErrNotFound
	}
	return &domain.Photo{ID: id}, nil
}

type stubCheckout struct {
	got  checkout.Input
	sess payment.Session
	err  error
}

func (s *stubCheckout) Start(_ context.Context, in checkout.Input) (payment.Session, error) {
	s.got = in
	return s.sess, s.err
}

type stubParser struct {
	ev  payment.Event
	err error
	sig string
}

func (s *stubParser) ParseEvent(_ []byte, sig string) (payment.Event, error) {
	s.sig = sig
	return s.ev, s.err
}

type stubFulfillment struct {
	calls int
	err   error
}

func (s *stubFulfillment) Handle(context.Context, payment.Event) (fulfillment.Result, error) {
	s.calls++
	return fulfillment.Result{State: fulfillment.StateFulfilled}, s.err
}

type stubGallery struct {
	previews []gallery.Preview
	events   []domain.Event
	uploaded *gallery.Upload
	body     string
	err      error
}

func (s *stubGallery) CreateEvent(_ context.Context, agencyID string, in gallery.NewEvent) (*domain.Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Event{ID: "ev-new", AgencyID: agencyID, Name: in.Name, Status: domain.EventStatusActive}, nil
}

func (s *stubGallery) ListEvents(context.Context, string) ([]domain.Event, error) {
	return s.events, s.err
}

func (s *stubGallery) UploadPhoto(_ context.Context, _, eventID string, up gallery.Upload) (*domain.Photo, error) {
	if s.err != nil {
		return nil, s.err
	}
	buf := make([]byte, 64)
	n, _ := up.Body.Read(buf)
	s.body = string(buf[:n])
	s.uploaded = &up
	return &domain.Photo{ID: "ph1", EventID: eventID, ContentType: up.ContentType}, nil
}

func (s *stubGallery) Previews(context.Context, string) ([]gallery.Preview, error) {
	return s.previews, s.err
}

type stubDownloads struct {
	bundle *download.Bundle
	err    error
}

func (s *stubDownloads) Links(context.Context, string) (*download.Bundle, error) {
	return s.bundle, s.err
}

type stubAgencies struct {
	usage    int64
	limit    int64
	statsErr error
}

func (s *stubAgencies) Authenticate(_ context.Context, id, key string) (*domain.Agency, error) {
	if id == "boom" {
		return nil, errors.New("db down")
	}
	if id != "ag1" || key != "good-key" {
		return nil, agencysvc.ErrInvalidCredentials
	}
	return &domain.Agency{ID: "ag1"}, nil
}

func (s *stubAgencies) ConsumeUsage(_ context.Context, _ string, n int64) (*domain.Agency, error) {
	if s.limit > 0 && s.usage+n > s.limit {
		return nil, domain.ErrUsageLimitReached
	}
	s.usage += n
	return &domain.Agency{ID: "ag1", UsageCount: s.usage, UsageLimit: s.limit}, nil
}

func (s *stubAgencies) Stats(context.Context, string) (domain.AgencyStats, error) {
	return domain.AgencyStats{Events: 2, Photos: 40, Sales: 3, RevenueCents: 4500}, s.statsErr
}

type stubSweeper struct {
	report sweeper.Report
	err    error
}

func (s *stubSweeper) RunOnce(context.Context) (sweeper.Report, error) {
	return s.report, s.err
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type testEnv struct {
	router      *gin.Engine
	sessionID   string
	checkout    *stubCheckout
	parser      *stubParser
	fulfillment *stubFulfillment
	gallery     *stubGallery
	downloads   *stubDownloads
	agencies    *stubAgencies
	sweeper     *stubSweeper
	verifier    *auth.Verifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sessions := session.New()
	sid, err := sessions.Issue()
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	env := &testEnv{
		sessionID:   sid,
		checkout:    &stubCheckout{sess: payment.Session{ID: "cs_1", URL: "https://pay.example/cs_1"}},
		parser:      &stubParser{},
		fulfillment: &stubFulfillment{},
		gallery:     &stubGallery{},
		downloads:   &stubDownloads{},
		agencies:    &stubAgencies{},
		sweeper:     &stubSweeper{},
		verifier:    auth.NewVerifier("test-secret"),
	}
	carts := cartsvc.New(&memPersister{data: map[string][]byte{}}, stubPhotoLookup{}, 0, zerolog.Nop())

	router, err := buildRouter(zerolog.Nop(), Deps{
		Sessions:    sessions,
		Carts:       carts,
		Checkout:    env.checkout,
		Payments:    env.parser,
		Fulfillment: env.fulfillment,
		Gallery:     env.gallery,
		Downloads:   env.downloads,
		Agencies:    env.agencies,
		Sweeper:     env.sweeper,
		Tokens:      env.verifier,
		Readiness:   map[string]Pinger{"db": stubPinger{}},
	})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	env.router = router
	return env
}

func logDiscard() zerolog.Logger {
	return zerolog.Nop()
}
