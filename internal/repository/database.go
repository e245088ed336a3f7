package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"time"

	"github.com/UnknownOlympus/hestia/internal/config"
	"github.com/UnknownOlympus/hestia/internal/lib/logger/sl"
	"github.com/UnknownOlympus/hestia/internal/metrics"
	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrConnectExhausted is returned when every startup attempt to reach the database failed.
var ErrConnectExhausted = errors.New("could not connect to database")

const defaultAttemptTimeout = 5 * time.Second

type Database interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type dialFunc func(ctx context.Context) (*pgxpool.Pool, error)

// NewDatabase creates a PostgreSQL connection pool and blocks until the database answers a ping.
// Unreachable databases are retried with exponential backoff bounded by cfg.Retry.
func NewDatabase(
	ctx context.Context,
	log *slog.Logger,
	cfg config.PostgresConfig,
	appMetrics *metrics.Metrics,
) (*pgxpool.Pool, error) {
	poolConfig, err := newPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	dial := func(ctx context.Context) (*pgxpool.Pool, error) {
		attemptTimeout := cfg.Retry.AttemptTimeout
		if attemptTimeout <= 0 {
			attemptTimeout = defaultAttemptTimeout
		}

		actx, cancel := context.WithTimeout(ctx, attemptTimeout)
		defer cancel()

		dbpool, err := pgxpool.NewWithConfig(actx, poolConfig)
		if err != nil {
			return nil, fmt.Errorf("unable to create connection to PostgreSQL: %w", err)
		}

		if err = dbpool.Ping(actx); err != nil {
			dbpool.Close()
			return nil, fmt.Errorf("failed to ping PostgreSQL DB: %w", err)
		}

		return dbpool, nil
	}

	return connectWithRetry(ctx, log, cfg.Retry, appMetrics, dial)
}

func newPoolConfig(cfg config.PostgresConfig) (*pgxpool.Config, error) {
	var (
		minConns int32 = 1
		idleTime       = 30 * time.Second
		hcPeriod       = 30 * time.Second
	)

	dbURL := (&url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, cfg.Port),
		Path:     cfg.Dbname,
		RawQuery: "sslmode=disable",
	}).String()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MinConns = min(minConns, poolConfig.MaxConns)
	poolConfig.MaxConnIdleTime = idleTime
	poolConfig.HealthCheckPeriod = hcPeriod

	return poolConfig, nil
}

func newBackOff(ctx context.Context, cfg config.RetryConfig) backoff.BackOffContext {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = cfg.Interval
	expo.Multiplier = max(cfg.Multiplier, 1)
	expo.MaxInterval = max(cfg.MaxInterval, cfg.Interval)
	expo.RandomizationFactor = 0
	expo.MaxElapsedTime = 0
	expo.Reset()

	retries := max(cfg.Attempts, 1) - 1

	return backoff.WithContext(backoff.WithMaxRetries(expo, uint64(retries)), ctx)
}

func connectWithRetry(
	pctx context.Context,
	log *slog.Logger,
	cfg config.RetryConfig,
	appMetrics *metrics.Metrics,
	dial dialFunc,
) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(pctx, cfg.Timeout)
	defer cancel()

	var (
		dbpool  *pgxpool.Pool
		lastErr error
		attempt int
	)

	operation := func() error {
		attempt++

		pool, err := dial(ctx)
		if err != nil {
			lastErr = err
			appMetrics.DBConnectAttempts.WithLabelValues("failure").Inc()
			return err
		}

		dbpool = pool
		appMetrics.DBConnectAttempts.WithLabelValues("success").Inc()
		return nil
	}

	notify := func(err error, wait time.Duration) {
		log.WarnContext(ctx, "Waiting for database...",
			"attempt", attempt, "of", cfg.Attempts, "retry_in", wait.String(), sl.Err(err))
	}

	if err := backoff.RetryNotify(operation, newBackOff(ctx, cfg), notify); err != nil {
		if cause := pctx.Err(); cause != nil {
			log.InfoContext(pctx, "Database connect interrupted by shutdown", "attempts", attempt)
			return nil, fmt.Errorf("database connect interrupted after %d attempts: %w", attempt, cause)
		}
		if lastErr == nil {
			lastErr = err
		}
		log.ErrorContext(ctx, "Could not connect to database", "attempts", attempt, sl.Err(lastErr))
		return nil, fmt.Errorf("%w after %d attempts: %w", ErrConnectExhausted, attempt, lastErr)
	}

	log.InfoContext(ctx, "Connected to database", "attempts", attempt)

	return dbpool, nil
}
