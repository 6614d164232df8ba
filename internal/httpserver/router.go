package httpserver

import (
	"context"
	"errors"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"playa-storefront/internal/auth"
	cartstore "playa-storefront/internal/cart"
	"playa-storefront/internal/domain"
	"playa-storefront/internal/payment"
	"playa-storefront/internal/service/checkout"
	"playa-storefront/internal/service/download"
	"playa-storefront/internal/service/fulfillment"
	"playa-storefront/internal/service/gallery"
	"playa-storefront/internal/service/sweeper"
)

type SessionService interface {
	Issue() (string, error)
	Validate(id string) error
}

type CartService interface {
	Get(ctx context.Context, sessionID string) *cartstore.Store
	AddItem(ctx context.Context, sessionID string, item cartstore.NewItem) (domain.CartItem, error)
}

type CheckoutService interface {
	Start(ctx context.Context, in checkout.Input) (payment.Session, error)
}

type EventParser interface {
	ParseEvent(payload []byte, sigHeader string) (payment.Event, error)
}

type FulfillmentService interface {
	Handle(ctx context.Context, ev payment.Event) (fulfillment.Result, error)
}

type GalleryService interface {
	CreateEvent(ctx context.Context, agencyID string, in gallery.NewEvent) (*domain.Event, error)
	ListEvents(ctx context.Context, agencyID string) ([]domain.Event, error)
	UploadPhoto(ctx context.Context, agencyID, eventID string, up gallery.Upload) (*domain.Photo, error)
	Previews(ctx context.Context, eventID string) ([]gallery.Preview, error)
}

type DownloadService interface {
	Links(ctx context.Context, purchaseID string) (*download.Bundle, error)
}

type AgencyService interface {
	Authenticate(ctx context.Context, agencyID, apiKey string) (*domain.Agency, error)
	ConsumeUsage(ctx context.Context, agencyID string, n int64) (*domain.Agency, error)
	Stats(ctx context.Context, agencyID string) (domain.AgencyStats, error)
}

type SweepRunner interface {
	RunOnce(ctx context.Context) (sweeper.Report, error)
}

type TokenVerifier interface {
	FromHeader(header string) (*auth.Claims, error)
}

// Deps groups the services the router dispatches to.
type Deps struct {
	Sessions    SessionService
	Carts       CartService
	Checkout    CheckoutService
	Payments    EventParser
	Fulfillment FulfillmentService
	Gallery     GalleryService
	Downloads   DownloadService
	Agencies    AgencyService
	Sweeper     SweepRunner
	Tokens      TokenVerifier
	Readiness   map[string]Pinger

	CORSOrigins   []string
	MaxUploadSize int64
}

func (d Deps) validate() error {
	switch {
	case d.Sessions == nil, d.Carts == nil:
		return errors.New("httpserver: cart dependencies are required")
	case d.Checkout == nil, d.Payments == nil, d.Fulfillment == nil:
		return errors.New("httpserver: payment dependencies are required")
	case d.Gallery == nil, d.Downloads == nil, d.Agencies == nil, d.Sweeper == nil:
		return errors.New("httpserver: gallery and agency dependencies are required")
	}
	return nil
}

// buildRouter wires routes for the API.
func buildRouter(logger zerolog.Logger, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.MaxUploadSize <= 0 {
		deps.MaxUploadSize = 50 << 20
	}

	router := gin.New()
	router.Use(recoverer(logger), requestLogger(logger))
	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", sessionHeader},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	h := &handlers{deps: deps, logger: logger}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.Readiness))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/sessions", h.createSession)

	cart := router.Group("/cart", sessionMiddleware(deps.Sessions))
	cart.GET("", h.getCart)
	cart.POST("/items", h.addCartItem)
	cart.DELETE("/items/:itemId", h.removeCartItem)
	cart.POST("/clear", h.clearCart)
	cart.POST("/toggle", h.toggleCart)

	router.POST("/checkout", sessionMiddleware(deps.Sessions), h.checkout)
	router.POST("/webhooks/payments", h.paymentWebhook)

	router.GET("/events/:eventId/photos", h.eventPhotos)
	router.GET("/downloads/:purchaseId", h.downloads)

	admin := router.Group("/admin", agencyMiddleware(deps.Agencies))
	admin.GET("/stats", h.agencyStats)
	admin.GET("/events", h.listEvents)
	admin.POST("/events", h.createEvent)
	admin.POST("/events/:eventId/photos", h.uploadPhoto)
	admin.POST("/usage/ai-generations", h.consumeUsage)
	admin.POST("/sweeps", h.runSweep)

	return router, nil
}
