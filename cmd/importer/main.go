package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"playa-storefront/internal/config"
	"playa-storefront/internal/db"
	"playa-storefront/internal/importer"
	"playa-storefront/internal/logging"
	"playa-storefront/internal/repository/event"
	"playa-storefront/internal/repository/photo"
)

func main() {
	var (
		filePath string
		eventID  string
	)
	flag.StringVar(&filePath, "file", "", "Path to the photo manifest CSV")
	flag.StringVar(&eventID, "event", "", "Event id the photos belong to")
	flag.Parse()

	if filePath == "" || eventID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		l := logging.New(logging.Config{})
		l.Fatal().Err(err).Msg("load config")
	}
	logger := logging.Component(logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}), "importer")
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	ev, err := event.NewPostgres(pool).GetByID(ctx, eventID)
	if err != nil {
		logger.Fatal().Err(err).Str("event_id", eventID).Msg("look up event")
	}

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("open file")
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f, photo.NewPostgres(pool), ev.ID)

	start := time.Now()
	sum, err := imp.Run(ctx)
	if err != nil {
		logger.Fatal().Err(err).Int("imported", sum.Imported).Msg("import failed")
	}

	fmt.Printf("Imported %d photos into event %s (%d already registered) in %s\n",
		sum.Imported, ev.Name, sum.Skipped, time.Since(start).Truncate(time.Millisecond))
}
