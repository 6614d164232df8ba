package main

import (
	"context"
	"flag"
	"fmt"

	"playa-storefront/internal/config"
	"playa-storefront/internal/db"
	"playa-storefront/internal/logging"
	"playa-storefront/internal/seed"
	agencysvc "playa-storefront/internal/service/agency"
)

func main() {
	opts := seed.DefaultOptions()
	flag.StringVar(&opts.AgencySlug, "agency", opts.AgencySlug, "Agency slug to create or update")
	flag.StringVar(&opts.AgencyName, "agency-name", opts.AgencyName, "Agency display name")
	flag.StringVar(&opts.WebhookURL, "webhook", "", "Agency CRM webhook URL")
	flag.Int64Var(&opts.UsageLimit, "usage-limit", opts.UsageLimit, "AI generation ceiling, 0 for unlimited")
	flag.StringVar(&opts.EventSlug, "event", opts.EventSlug, "Event slug to create or update")
	flag.StringVar(&opts.EventName, "event-name", opts.EventName, "Event display name")
	flag.StringVar(&opts.EventDate, "event-date", "", "Event date, YYYY-MM-DD")
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		l := logging.New(logging.Config{})
		l.Fatal().Err(err).Msg("load config")
	}
	logger := logging.Component(logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}), "seed")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	key, err := agencysvc.GenerateAPIKey()
	if err != nil {
		logger.Fatal().Err(err).Msg("generate api key")
	}
	res, err := seed.Apply(ctx, pool, opts, key, agencysvc.HashAPIKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed apply")
	}

	logger.Info().Str("agency_id", res.AgencyID).Str("event_id", res.EventID).Msg("seed applied")
	fmt.Printf("X-Agency-ID: %s\nX-Agency-Key: %s\nEvent: %s\n", res.AgencyID, key, res.EventID)
}
