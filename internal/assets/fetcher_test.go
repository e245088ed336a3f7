package assets

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Flaque/filet"
	"github.com/UnknownOlympus/hestia/internal/config"
	"github.com/UnknownOlympus/hestia/internal/metrics"
	"github.com/minio/minio-go/v7"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var imageBytes = []byte("\xff\xd8\xff\xe0 not really a jpeg")

type fakeStore struct {
	getErr      error
	presignErr  error
	getCalls    int
	presigns    int
	gotBucket   string
	gotKey      string
	gotExpiry   time.Duration
	gotFilePath string
}

func (s *fakeStore) FGetObject(_ context.Context, bucket, object, filePath string, _ minio.GetObjectOptions) error {
	s.getCalls++
	s.gotBucket, s.gotKey, s.gotFilePath = bucket, object, filePath
	if s.getErr != nil {
		return s.getErr
	}
	return os.WriteFile(filePath, imageBytes, 0o600)
}

func (s *fakeStore) PresignedGetObject(
	_ context.Context, bucket, object string, expires time.Duration, _ url.Values,
) (*url.URL, error) {
	s.presigns++
	s.gotBucket, s.gotKey, s.gotExpiry = bucket, object, expires
	if s.presignErr != nil {
		return nil, s.presignErr
	}
	return url.Parse("https://" + bucket + ".s3.amazonaws.com/" + object + "?sig=" + string(rune('0'+s.presigns)))
}

func newTestFetcher(t *testing.T, store ObjectStore, cfg Config) (*Fetcher, *metrics.Metrics) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	m := metrics.NewMetrics(prometheus.NewRegistry())

	return NewFetcher(logger, http.DefaultClient, store, cfg, m), m
}

func TestFetch_URLDownload(t *testing.T) {
	defer filet.CleanUp(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(imageBytes)
	}))
	defer srv.Close()

	staticDir := filepath.Join(filet.TmpDir(t, ""), "static")
	fetcher, m := newTestFetcher(t, nil, Config{Mode: config.ModeDownload, URL: srv.URL, StaticDir: staticDir})

	assert.Empty(t, fetcher.ImageURL(context.Background()), "no image before fetch")

	require.NoError(t, fetcher.Fetch(context.Background()))

	assert.Equal(t, SourceURL, fetcher.Source())
	assert.Equal(t, srv.URL, fetcher.SourceURL())
	assert.True(t, filet.FileSays(t, filepath.Join(staticDir, BackgroundFile), imageBytes))
	assert.Equal(t, "/static/background.jpg", fetcher.ImageURL(context.Background()))
	assert.InDelta(t, 1, testutil.ToFloat64(m.AssetFetches.WithLabelValues(SourceURL, "success")), 0)
}

func TestFetch_URLNotFound(t *testing.T) {
	defer filet.CleanUp(t)

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	staticDir := filet.TmpDir(t, "")
	fetcher, m := newTestFetcher(t, nil, Config{Mode: config.ModeDownload, URL: srv.URL, StaticDir: staticDir})

	err := fetcher.Fetch(context.Background())

	require.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Contains(t, err.Error(), "404")
	assert.False(t, filet.Exists(t, filepath.Join(staticDir, BackgroundFile)))
	assert.Empty(t, fetcher.ImageURL(context.Background()))
	assert.InDelta(t, 1, testutil.ToFloat64(m.AssetFetches.WithLabelValues(SourceURL, "failure")), 0)
}

func TestFetch_URLUnreachable(t *testing.T) {
	defer filet.CleanUp(t)

	fetcher, _ := newTestFetcher(t, nil, Config{
		Mode: config.ModeDownload, URL: "http://127.0.0.1:1/bg.jpg", StaticDir: filet.TmpDir(t, ""),
	})

	require.Error(t, fetcher.Fetch(context.Background()))
}

func TestFetch_S3Download(t *testing.T) {
	defer filet.CleanUp(t)

	store := &fakeStore{}
	staticDir := filet.TmpDir(t, "")
	fetcher, m := newTestFetcher(t, store, Config{
		Mode: config.ModeDownload, URL: "http://unused.invalid", Bucket: "bucket", Key: "bg.jpg", StaticDir: staticDir,
	})

	require.NoError(t, fetcher.Fetch(context.Background()))

	assert.Equal(t, SourceS3, fetcher.Source())
	assert.Empty(t, fetcher.SourceURL())
	assert.Equal(t, "bucket", store.gotBucket)
	assert.Equal(t, "bg.jpg", store.gotKey)
	assert.Equal(t, filepath.Join(staticDir, BackgroundFile), store.gotFilePath)
	assert.Equal(t, "/static/background.jpg", fetcher.ImageURL(context.Background()))
	assert.InDelta(t, 1, testutil.ToFloat64(m.AssetFetches.WithLabelValues(SourceS3, "success")), 0)
}

func TestFetch_S3DownloadError(t *testing.T) {
	defer filet.CleanUp(t)

	store := &fakeStore{getErr: assert.AnError}
	fetcher, _ := newTestFetcher(t, store, Config{
		Mode: config.ModeDownload, Bucket: "bucket", Key: "bg.jpg", StaticDir: filet.TmpDir(t, ""),
	})

	err := fetcher.Fetch(context.Background())

	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "s3://bucket/bg.jpg")
	assert.Empty(t, fetcher.ImageURL(context.Background()))
}

func TestFetch_PresignWithoutStoreUsesPublicURL(t *testing.T) {
	fetcher, _ := newTestFetcher(t, nil, Config{Mode: config.ModePresign, URL: "https://example.com/bg.png"})

	require.NoError(t, fetcher.Fetch(context.Background()))
	assert.Equal(t, "https://example.com/bg.png", fetcher.ImageURL(context.Background()))
}

func TestImageURL_PresignRefresh(t *testing.T) {
	store := &fakeStore{}
	fetcher, _ := newTestFetcher(t, store, Config{Mode: config.ModePresign, Bucket: "bucket", Key: "bg.jpg"})

	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	fetcher.now = func() time.Time { return clock }

	require.NoError(t, fetcher.Fetch(context.Background()))
	assert.Equal(t, 1, store.presigns)
	assert.Equal(t, PresignExpiry, store.gotExpiry)

	first := fetcher.ImageURL(context.Background())
	assert.Equal(t, "https://bucket.s3.amazonaws.com/bg.jpg?sig=1", first)
	assert.Equal(t, 1, store.presigns, "cached link is reused")

	clock = clock.Add(31 * time.Minute)
	second := fetcher.ImageURL(context.Background())
	assert.Equal(t, 2, store.presigns)
	assert.NotEqual(t, first, second)
}

func TestImageURL_PresignFailure(t *testing.T) {
	store := &fakeStore{}
	fetcher, _ := newTestFetcher(t, store, Config{Mode: config.ModePresign, Bucket: "bucket", Key: "bg.jpg"})

	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	fetcher.now = func() time.Time { return clock }

	require.NoError(t, fetcher.Fetch(context.Background()))
	cached := fetcher.ImageURL(context.Background())

	store.presignErr = assert.AnError

	clock = clock.Add(40 * time.Minute)
	assert.Equal(t, cached, fetcher.ImageURL(context.Background()), "still valid link is kept")

	clock = clock.Add(30 * time.Minute)
	assert.Empty(t, fetcher.ImageURL(context.Background()), "expired link is dropped")
}
