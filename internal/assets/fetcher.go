package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/UnknownOlympus/hestia/internal/config"
	"github.com/UnknownOlympus/hestia/internal/lib/logger/sl"
	"github.com/UnknownOlympus/hestia/internal/metrics"
	"github.com/minio/minio-go/v7"
)

const (
	// BackgroundFile is the name of the downloaded image inside the static directory.
	BackgroundFile = "background.jpg"
	// StaticPrefix is the URL path the static directory is served under.
	StaticPrefix = "/static"
	// PresignExpiry is the lifetime of presigned background links.
	PresignExpiry = time.Hour

	SourceS3  = "s3"
	SourceURL = "url"
)

// ErrUnexpectedStatus is returned when the image URL answers with anything but 200.
var ErrUnexpectedStatus = errors.New("unexpected response status")

type Config struct {
	Mode      string // config.ModeDownload or config.ModePresign
	URL       string // public image URL
	Bucket    string
	Key       string
	StaticDir string
}

// Fetcher obtains the background image once at startup and tells the pages where to find it.
type Fetcher struct {
	log     *slog.Logger
	client  *http.Client
	store   ObjectStore
	cfg     Config
	metrics *metrics.Metrics
	now     func() time.Time

	mu          sync.Mutex
	presigned   string
	presignedAt time.Time
}

// NewFetcher creates a Fetcher. store must be nil when object storage is not fully configured;
// the fetcher then falls back to the public URL.
func NewFetcher(log *slog.Logger, client *http.Client, store ObjectStore, cfg Config, m *metrics.Metrics) *Fetcher {
	return &Fetcher{
		log:     log.With(slog.String("division", "assets")),
		client:  client,
		store:   store,
		cfg:     cfg,
		metrics: m,
		now:     time.Now,
	}
}

// Source reports where the image comes from: "s3" or "url".
func (f *Fetcher) Source() string {
	if f.store != nil {
		return SourceS3
	}
	return SourceURL
}

// SourceURL is the address a health probe can check. It is empty for object storage.
func (f *Fetcher) SourceURL() string {
	if f.store != nil {
		return ""
	}
	return f.cfg.URL
}

// Fetch runs the startup retrieval. Callers are expected to log the error and carry on.
func (f *Fetcher) Fetch(ctx context.Context) error {
	const opn = "Assets.Fetch"
	log := f.log.With(slog.String("op", opn), slog.String("source", f.Source()), slog.String("mode", f.cfg.Mode))

	log.InfoContext(ctx, "Fetching background image", "url", f.cfg.URL, "bucket", f.cfg.Bucket, "key", f.cfg.Key)

	err := f.fetch(ctx)
	if err != nil {
		f.metrics.AssetFetches.WithLabelValues(f.Source(), "failure").Inc()
		log.ErrorContext(ctx, "Failed to fetch background image", sl.Err(err))
		return err
	}

	f.metrics.AssetFetches.WithLabelValues(f.Source(), "success").Inc()
	log.InfoContext(ctx, "Background image ready")

	return nil
}

func (f *Fetcher) fetch(ctx context.Context) error {
	if f.cfg.Mode == config.ModePresign {
		if f.store == nil {
			return nil
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		return f.presignLocked(ctx)
	}

	if err := os.MkdirAll(f.cfg.StaticDir, 0o755); err != nil {
		return fmt.Errorf("failed to create static directory: %w", err)
	}

	if f.store != nil {
		err := f.store.FGetObject(ctx, f.cfg.Bucket, f.cfg.Key, f.localPath(), minio.GetObjectOptions{})
		if err != nil {
			return fmt.Errorf("failed to download s3://%s/%s: %w", f.cfg.Bucket, f.cfg.Key, err)
		}
		return nil
	}

	return f.download(ctx)
}

func (f *Fetcher) download(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to create new request %s: %w", f.cfg.URL, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to request %s: %w", f.cfg.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(f.cfg.StaticDir, "background-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err = io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}

	if err = os.Rename(tmp.Name(), f.localPath()); err != nil {
		return fmt.Errorf("failed to store image: %w", err)
	}

	return nil
}

// presignLocked refreshes the cached link. f.mu must be held.
func (f *Fetcher) presignLocked(ctx context.Context) error {
	u, err := f.store.PresignedGetObject(ctx, f.cfg.Bucket, f.cfg.Key, PresignExpiry, nil)
	if err != nil {
		return fmt.Errorf("failed to presign s3://%s/%s: %w", f.cfg.Bucket, f.cfg.Key, err)
	}

	f.presigned = u.String()
	f.presignedAt = f.now()

	return nil
}

// ImageURL returns the address pages should use for the background, or "" when there is none.
// Presigned links are renewed once half of their lifetime has passed.
func (f *Fetcher) ImageURL(ctx context.Context) string {
	if f.cfg.Mode != config.ModePresign {
		if _, err := os.Stat(f.localPath()); err != nil {
			return ""
		}
		return StaticPrefix + "/" + BackgroundFile
	}

	if f.store == nil {
		return f.cfg.URL
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	age := f.now().Sub(f.presignedAt)
	if f.presigned != "" && age < PresignExpiry/2 {
		return f.presigned
	}

	if err := f.presignLocked(ctx); err != nil {
		f.log.WarnContext(ctx, "Failed to renew presigned background link", sl.Err(err))
		if f.presigned != "" && age < PresignExpiry {
			return f.presigned
		}
		return ""
	}

	return f.presigned
}

func (f *Fetcher) localPath() string {
	return filepath.Join(f.cfg.StaticDir, BackgroundFile)
}
