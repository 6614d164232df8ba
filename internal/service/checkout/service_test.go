package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playa-storefront/internal/domain"
	"playa-storefront/internal/payment"
)

type stubGateway struct {
	calls int
	req   payment.SessionRequest
	sess  payment.Session
	err   error
}

func (s *stubGateway) CreateCheckoutSession(_ context.Context, req payment.SessionRequest) (payment.Session, error) {
	s.calls++
	s.req = req
	return s.sess, s.err
}

func sampleItems() []domain.CartItem {
	return []domain.CartItem{
		{ID: "i1", PhotoID: "p1", Type: domain.ProductSocial, Label: "Social Download", Price: 4.99, ThumbnailURL: "https://cdn/p1.jpg"},
		{ID: "i2", PhotoID: "p2", Type: domain.ProductPrint, Label: "Print", Price: 14.99, ThumbnailURL: "https://cdn/p2.jpg"},
	}
}

func TestStartBuildsSessionRequest(t *testing.T) {
	gw := &stubGateway{sess: payment.Session{ID: "cs_1", URL: "https://pay.example/cs_1"}}
	svc := New(gw, Config{Currency: "usd", RequireAuth: true}, zerolog.Nop())

	sess, err := svc.Start(context.Background(), Input{
		Items:     sampleItems(),
		AgencyID:  "ag_1",
		EventID:   "ev_1",
		ReturnURL: "https://shop.example/",
		Email:     "buyer@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/cs_1", sess.URL)

	req := gw.req
	require.Len(t, req.LineItems, 2)
	assert.Equal(t, payment.LineItem{Name: "Social Download", ImageURL: "https://cdn/p1.jpg", UnitAmount: 499, Quantity: 1}, req.LineItems[0])
	assert.Equal(t, int64(1499), req.LineItems[1].UnitAmount)
	assert.Equal(t, "usd", req.Currency)
	assert.Equal(t, "https://shop.example/#/checkout/success", req.SuccessURL)
	assert.Equal(t, "https://shop.example/#/", req.CancelURL)
	assert.Equal(t, "buyer@example.com", req.CustomerEmail)
	assert.Equal(t, "ag_1", req.Metadata[MetaAgencyID])
	assert.Equal(t, "ev_1", req.Metadata[MetaEventID])
	assert.Equal(t, "buyer@example.com", req.Metadata[MetaCustomerEmail])

	var items []domain.CartItem
	require.NoError(t, json.Unmarshal([]byte(req.Metadata[MetaCartItems]), &items))
	assert.Equal(t, sampleItems(), items)
}

func TestStartGuestWhenAuthOptional(t *testing.T) {
	gw := &stubGateway{sess: payment.Session{URL: "https://pay.example/x"}}
	svc := New(gw, Config{RequireAuth: false}, zerolog.Nop())

	_, err := svc.Start(context.Background(), Input{Items: sampleItems(), AgencyID: "ag_1", ReturnURL: "https://shop.example"})
	require.NoError(t, err)
	assert.Equal(t, GuestEmail, gw.req.Metadata[MetaCustomerEmail])
	assert.Empty(t, gw.req.CustomerEmail)
}

func TestStartRejectsBeforeCallingGateway(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		in   Input
		want error
	}{
		{"empty cart", Config{}, Input{AgencyID: "ag", ReturnURL: "https://x.example", Email: "a@b.c"}, ErrEmptyCart},
		{"unauthenticated", Config{RequireAuth: true}, Input{Items: sampleItems(), AgencyID: "ag", ReturnURL: "https://x.example"}, ErrUnauthenticated},
		{"no agency", Config{}, Input{Items: sampleItems(), ReturnURL: "https://x.example"}, ErrInvalidInput},
		{"relative url", Config{}, Input{Items: sampleItems(), AgencyID: "ag", ReturnURL: "/shop"}, ErrInvalidInput},
		{"javascript url", Config{}, Input{Items: sampleItems(), AgencyID: "ag", ReturnURL: "javascript:alert(1)"}, ErrInvalidInput},
		{"fragment url", Config{}, Input{Items: sampleItems(), AgencyID: "ag", ReturnURL: "https://x.example/#/cart"}, ErrInvalidInput},
		{"negative price", Config{}, Input{Items: []domain.CartItem{{ID: "i", Label: "x", Price: -1}}, AgencyID: "ag", ReturnURL: "https://x.example"}, ErrInvalidInput},
		{"price too large", Config{}, Input{Items: []domain.CartItem{{ID: "i", Label: "x", Price: 1e18}}, AgencyID: "ag", ReturnURL: "https://x.example"}, ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := &stubGateway{}
			_, err := New(gw, tc.cfg, zerolog.Nop()).Start(context.Background(), tc.in)
			assert.ErrorIs(t, err, tc.want)
			assert.Zero(t, gw.calls)
		})
	}
}

func TestStartGatewayFailure(t *testing.T) {
	gw := &stubGateway{err: errors.New("dial tcp: timeout")}
	svc := New(gw, Config{}, zerolog.Nop())
	items := sampleItems()

	_, err := svc.Start(context.Background(), Input{Items: items, AgencyID: "ag", ReturnURL: "https://x.example"})
	assert.ErrorIs(t, err, ErrCheckoutUnavailable)
	assert.Equal(t, sampleItems(), items)
}

func TestCartMetadataTruncated(t *testing.T) {
	gw := &stubGateway{}
	svc := New(gw, Config{MetadataLimit: 500}, zerolog.Nop())

	var items []domain.CartItem
	for i := 0; i < 20; i++ {
		items = append(items, domain.CartItem{ID: strings.Repeat("é", 10), PhotoID: "photo", Label: "Original Högupplöst", Price: 9.5})
	}
	_, err := svc.Start(context.Background(), Input{Items: items, AgencyID: "ag", ReturnURL: "https://x.example"})
	require.NoError(t, err)

	meta := gw.req.Metadata[MetaCartItems]
	assert.Equal(t, 500, utf8.RuneCountInString(meta))
	assert.True(t, utf8.ValidString(meta))
	assert.Len(t, gw.req.LineItems, 20)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "日本", Truncate("日本語", 2))
	assert.Equal(t, "", Truncate("abc", 0))
}
