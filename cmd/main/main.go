package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/UnknownOlympus/hestia/internal/assets"
	"github.com/UnknownOlympus/hestia/internal/client"
	"github.com/UnknownOlympus/hestia/internal/config"
	"github.com/UnknownOlympus/hestia/internal/lib/logger/sl"
	"github.com/UnknownOlympus/hestia/internal/metrics"
	"github.com/UnknownOlympus/hestia/internal/repository"
	"github.com/UnknownOlympus/hestia/internal/server"
	"github.com/UnknownOlympus/hestia/internal/services/employees"
	"github.com/UnknownOlympus/hestia/internal/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	httpClientTimeout = 30 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// main is the entry point of the application.
func main() {
	var wgr sync.WaitGroup

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()

	logger := sl.New(cfg.Env, os.Stdout)

	// Create a separate registry for metrics with exemplar
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	var store assets.ObjectStore
	if cfg.S3.Complete() {
		minioClient, err := assets.NewObjectStore(cfg.S3)
		if err != nil {
			logger.ErrorContext(ctx, "Object storage is misconfigured, falling back to the public image", sl.Err(err))
		} else {
			store = minioClient
		}
	}

	fetcher := assets.NewFetcher(
		logger,
		client.CreateHTTPClient(logger, httpClientTimeout),
		store,
		assets.Config{
			Mode:      cfg.Background.Mode,
			URL:       cfg.Background.URL,
			Bucket:    cfg.S3.Bucket,
			Key:       cfg.S3.ImageKey,
			StaticDir: cfg.HTTP.StaticDir,
		},
		appMetrics,
	)
	if err := fetcher.Fetch(ctx); err != nil {
		logger.WarnContext(ctx, "Continuing without background image", "source", fetcher.Source())
	}

	dtb, err := repository.NewDatabase(ctx, logger, cfg.Postgres, appMetrics)
	if errors.Is(err, context.Canceled) {
		logger.Info("Shutdown requested before the database was reachable")
		return
	}
	if err != nil {
		logger.ErrorContext(ctx, "Failed to connect to DB", sl.Err(err))
		os.Exit(1) //nolint:gocritic // nothing to clean up yet besides the signal context
	}
	defer dtb.Close()

	employeeRepo := repository.NewEmployeeRepository(dtb, appMetrics)
	staff := employees.NewStaff(logger, employeeRepo, appMetrics)

	router, err := web.New(logger, appMetrics, staff, fetcher, cfg.Branding, cfg.HTTP.StaticDir)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to build router", sl.Err(err))
		dtb.Close()
		os.Exit(1) //nolint:gocritic // pool closed above
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: shutdownTimeout,
	}

	wgr.Add(2) //nolint:mnd // monitoring and form servers

	go func() {
		defer wgr.Done()
		server.StartMonitoringServer(ctx, logger, reg, dtb, cfg.HTTP.MetricsPort, fetcher.SourceURL())
	}()

	go func() {
		defer wgr.Done()
		logger.InfoContext(ctx, "Starting form server", "addr", cfg.HTTP.Addr, "group", cfg.Branding.GroupName)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorContext(ctx, "Form server failed", sl.Err(err))
			stop()
		}
		logger.InfoContext(ctx, "Form server stopped.")
	}()

	logger.InfoContext(ctx, "Application started. Press Ctrl+C to stop.")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down form server", sl.Err(err))
	}

	wgr.Wait()

	logger.Info("Application stopped gracefully...")
}
