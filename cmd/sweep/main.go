// Command sweep runs a single expiry pass, for cron-style deployments that
// disable the in-process sweeper.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"playa-storefront/internal/config"
	"playa-storefront/internal/db"
	"playa-storefront/internal/logging"
	purchaserepo "playa-storefront/internal/repository/purchase"
	"playa-storefront/internal/service/sweeper"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		l := logging.New(logging.Config{})
		l.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	report, err := sweeper.New(purchaserepo.NewPostgres(pool, logger), cfg.Sweeper.Interval, logger).RunOnce(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("sweep failed")
		pool.Close()
		os.Exit(1)
	}
	if len(report.Failed) > 0 {
		logger.Warn().Int("failed", len(report.Failed)).Msg("some expired purchases were not deleted")
		pool.Close()
		os.Exit(3)
	}
}
