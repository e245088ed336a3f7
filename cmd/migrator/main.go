package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/UnknownOlympus/hestia/internal/config"
	"github.com/UnknownOlympus/hestia/internal/lib/logger/sl"
	"github.com/UnknownOlympus/hestia/internal/metrics"
	"github.com/UnknownOlympus/hestia/internal/repository"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()
	logger := sl.New(cfg.Env, os.Stdout)

	dbpool, dbErr := repository.NewDatabase(ctx, logger, cfg.Postgres, metrics.NewMetrics(prometheus.NewRegistry()))
	if dbErr != nil {
		logger.ErrorContext(ctx, "Failed to connect to DB", sl.Err(dbErr))
		os.Exit(1) //nolint:gocritic // stop only releases the signal handler
	}
	defer dbpool.Close()

	if migrationErr := goose.Up(stdlib.OpenDBFromPool(dbpool), "migrations"); migrationErr != nil {
		logger.ErrorContext(ctx, "Failed to apply migrations", sl.Err(migrationErr))
		return
	}

	logger.InfoContext(ctx, "Migrations applied successfully")
}
