package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"playa-storefront/internal/auth"
	"playa-storefront/internal/config"
	"playa-storefront/internal/db"
	"playa-storefront/internal/httpserver"
	"playa-storefront/internal/logging"
	"playa-storefront/internal/notify"
	"playa-storefront/internal/payment"
	agencyrepo "playa-storefront/internal/repository/agency"
	cartrepo "playa-storefront/internal/repository/cart"
	eventrepo "playa-storefront/internal/repository/event"
	photorepo "playa-storefront/internal/repository/photo"
	purchaserepo "playa-storefront/internal/repository/purchase"
	agencysvc "playa-storefront/internal/service/agency"
	cartsvc "playa-storefront/internal/service/cart"
	"playa-storefront/internal/service/checkout"
	"playa-storefront/internal/service/download"
	"playa-storefront/internal/service/fulfillment"
	"playa-storefront/internal/service/gallery"
	"playa-storefront/internal/service/session"
	"playa-storefront/internal/service/sweeper"
	"playa-storefront/internal/storage"
	"playa-storefront/internal/supervisor"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		l := logging.New(logging.Config{})
		l.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	for _, w := range cfg.Warnings() {
		logger.Warn().Msg(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to db")
	}
	defer dbpool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer rdb.Close()

	if cfg.Storage.Bucket == "" {
		logger.Fatal().Msg("GCS_BUCKET is required")
	}
	gcsClient, err := gcs.NewClient(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("init object storage")
	}
	defer gcsClient.Close()
	objects := storage.NewGCS(gcsClient, cfg.Storage.Bucket)

	purchases := purchaserepo.NewPostgres(dbpool, logger)
	agencies := agencyrepo.NewPostgres(dbpool, logger)
	events := eventrepo.NewPostgres(dbpool)
	photos := photorepo.NewPostgres(dbpool)
	carts := cartrepo.NewRedis(rdb, cfg.Cart.PersistTTL)

	gateway := payment.NewStripe(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, payment.DefaultBreakerConfig(), logger)

	dispatcher := notify.NewDispatcher(notify.DispatcherConfig{
		Workers:     cfg.Notify.Workers,
		QueueSize:   cfg.Notify.QueueSize,
		SendTimeout: 2 * cfg.Notify.WebhookTimeout,
	}, emailSender(cfg, logger), notify.NewHTTPWebhook(nil, notify.WebhookConfig{
		Timeout:       cfg.Notify.WebhookTimeout,
		MaxRetries:    2,
		RetryInterval: 500 * time.Millisecond,
	}, logger), logger)

	cartService := cartsvc.New(carts, photos, cfg.Cart.IdleTTL, logger)
	sweeperService := sweeper.New(purchases, cfg.Sweeper.Interval, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, httpserver.Deps{
		Sessions: session.New(),
		Carts:    cartService,
		Checkout: checkout.New(gateway, checkout.Config{
			Currency:      cfg.Stripe.Currency,
			RequireAuth:   cfg.Checkout.RequireAuth,
			MetadataLimit: cfg.Checkout.MetadataLimit,
		}, logger),
		Payments:    gateway,
		Fulfillment: fulfillment.New(purchases, agencies, dispatcher, cfg.PublicURL, logger),
		Gallery:     gallery.New(events, photos, objects, cfg.AssetBaseURL, logger),
		Downloads:   download.New(purchases, photos, objects, cfg.Storage.SignedURLTTL, logger),
		Agencies:    agencysvc.New(agencies, events, photos, purchases),
		Sweeper:     sweeperService,
		Tokens:      auth.NewVerifier(cfg.Auth.JWTSecret),
		Readiness: map[string]httpserver.Pinger{
			"db":    dbpool,
			"redis": carts,
		},
		CORSOrigins: cfg.CORSOrigins,
	}, cfg.ShutdownTimeout)
	if err != nil {
		logger.Fatal().Err(err).Msg("init server")
	}

	tree := supervisor.New(logger, supervisor.TreeConfig{ShutdownTimeout: cfg.ShutdownTimeout})
	tree.AddWorker(dispatcher)
	tree.AddWorker(cartService)
	if cfg.Sweeper.Enabled {
		tree.AddWorker(sweeperService)
	}
	tree.AddAPI(srv)

	logger.Info().Str("addr", cfg.HTTPAddr).Msg("starting storefront")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("supervisor stopped")
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}

// emailSender returns nil when SendGrid is not configured so the dispatcher
// skips the channel instead of failing every send.
func emailSender(cfg config.Config, logger zerolog.Logger) notify.EmailSender {
	if cfg.Email.SendGridAPIKey == "" {
		logger.Warn().Msg("SENDGRID_API_KEY not set, purchase emails disabled")
		return nil
	}
	return notify.NewSendGridEmail(cfg.Email.SendGridAPIKey, cfg.Email.From, cfg.Email.FromName)
}
