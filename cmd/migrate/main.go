package main

import (
	"context"
	"flag"

	"playa-storefront/internal/config"
	"playa-storefront/internal/db"
	"playa-storefront/internal/logging"
	"playa-storefront/internal/migrate"
)

func main() {
	var (
		down    int
		version bool
	)
	flag.IntVar(&down, "down", 0, "Roll back this many migrations instead of applying")
	flag.BoolVar(&version, "version", false, "Print the applied schema version and exit")
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		l := logging.New(logging.Config{})
		l.Fatal().Err(err).Msg("load config")
	}
	logger := logging.Component(logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}), "migrate")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	switch {
	case version:
		v, dirty, err := migrate.Version(ctx, pool)
		if err != nil {
			logger.Fatal().Err(err).Msg("read schema version")
		}
		logger.Info().Uint("version", v).Bool("dirty", dirty).Msg("schema version")
	case down > 0:
		if err := migrate.Rollback(ctx, pool, down); err != nil {
			logger.Fatal().Err(err).Msg("roll back migrations")
		}
		logger.Info().Int("steps", down).Msg("migrations rolled back")
	default:
		if err := migrate.Apply(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
		logger.Info().Msg("migrations applied")
	}
}
