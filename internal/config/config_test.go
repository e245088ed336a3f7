package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/UnknownOlympus/hestia/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_LoadFromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DBHOST", "testHost")
	t.Setenv("DBPORT", "12345")
	t.Setenv("DBUSER", "admin")
	t.Setenv("DBPWD", "adminpass")
	t.Setenv("DATABASE", "testName")
	t.Setenv("GROUP_NAME", "Team Go")
	t.Setenv("GROUP_SLOGAN", "Ship it")
	t.Setenv("BACKGROUND_MODE", "presign")
	t.Setenv("AWS_ACCESS_KEY_ID", "ak")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "sk")
	t.Setenv("AWS_SESSION_TOKEN", "token")
	t.Setenv("S3_BUCKET_NAME", "bucket")
	t.Setenv("DB_CONNECT_ATTEMPTS", "20")
	t.Setenv("DB_RETRY_INTERVAL", "500ms")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "testHost", cfg.Postgres.Host)
	assert.Equal(t, "12345", cfg.Postgres.Port)
	assert.Equal(t, "admin", cfg.Postgres.User)
	assert.Equal(t, "adminpass", cfg.Postgres.Password)
	assert.Equal(t, "testName", cfg.Postgres.Dbname)
	assert.Equal(t, 20, cfg.Postgres.Retry.Attempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Postgres.Retry.Interval)
	assert.Equal(t, "Team Go", cfg.Branding.GroupName)
	assert.Equal(t, "Ship it", cfg.Branding.GroupSlogan)
	assert.Equal(t, config.ModePresign, cfg.Background.Mode)
	assert.Equal(t, "token", cfg.S3.SessionToken)
	assert.Equal(t, "background.jpg", cfg.S3.ImageKey)
	assert.True(t, cfg.S3.Complete())
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, ":81", cfg.HTTP.Addr)
	assert.Equal(t, 8080, cfg.HTTP.MetricsPort)
	assert.Equal(t, "5432", cfg.Postgres.Port)
	assert.Equal(t, "employees", cfg.Postgres.Dbname)
	assert.Equal(t, 10, cfg.Postgres.Retry.Attempts)
	assert.Equal(t, 3*time.Second, cfg.Postgres.Retry.Interval)
	assert.InDelta(t, 1.0, cfg.Postgres.Retry.Multiplier, 0)
	assert.Equal(t, 5*time.Second, cfg.Postgres.Retry.AttemptTimeout)
	assert.GreaterOrEqual(t, cfg.Postgres.Retry.Timeout, cfg.Postgres.Retry.Budget(),
		"the default timeout leaves room for every attempt")
	assert.Equal(t, config.ModeDownload, cfg.Background.Mode)
	assert.Equal(t, "us-east-1", cfg.S3.Region)
	assert.False(t, cfg.S3.Complete())
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("postgres:\n  host: filehost\nbranding:\n  group_name: From File\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("GROUP_NAME", "From Env")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "filehost", cfg.Postgres.Host)
	assert.Equal(t, "From Env", cfg.Branding.GroupName, "environment wins over the file")
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("BACKGROUND_MODE", "carrier-pigeon")
	t.Setenv("DBPORT", "not-a-port")
	t.Setenv("DB_CONNECT_ATTEMPTS", "0")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown background mode "carrier-pigeon"`)
	assert.Contains(t, err.Error(), `database port "not-a-port" is invalid`)
	assert.Contains(t, err.Error(), "connect attempts must be at least 1")
}

func TestMustLoad_Panics(t *testing.T) {
	t.Setenv("DB_RETRY_MULTIPLIER", "0.5")

	assert.PanicsWithValue(t, "config error: retry multiplier must be >= 1, got 0.5", func() {
		config.MustLoad()
	})
}

func TestS3Config_Complete(t *testing.T) {
	t.Parallel()

	full := config.S3Config{Bucket: "b", ImageKey: "k", AccessKey: "a", SecretKey: "s"}
	assert.True(t, full.Complete())

	noSecret := full
	noSecret.SecretKey = ""
	assert.False(t, noSecret.Complete())

	noBucket := full
	noBucket.Bucket = ""
	assert.False(t, noBucket.Complete())
}

func TestLoad_TimeoutShorterThanSchedule(t *testing.T) {
	t.Setenv("DB_RETRY_MULTIPLIER", "1.5")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is shorter than the 10-attempt schedule")
}

func TestRetryConfig_Waits(t *testing.T) {
	t.Parallel()

	fixed := config.RetryConfig{Attempts: 10, Interval: 3 * time.Second, MaxInterval: 30 * time.Second, Multiplier: 1}
	waits := fixed.Waits()
	require.Len(t, waits, 9)
	for _, wait := range waits {
		assert.Equal(t, 3*time.Second, wait)
	}

	growing := config.RetryConfig{Attempts: 5, Interval: 3 * time.Second, MaxInterval: 10 * time.Second, Multiplier: 2}
	assert.Equal(t,
		[]time.Duration{3 * time.Second, 6 * time.Second, 10 * time.Second, 10 * time.Second},
		growing.Waits())

	single := config.RetryConfig{Attempts: 1, Interval: time.Second, Multiplier: 1}
	assert.Empty(t, single.Waits())
}

func TestRetryConfig_Budget(t *testing.T) {
	t.Parallel()

	retry := config.RetryConfig{
		Attempts:       10,
		Interval:       3 * time.Second,
		MaxInterval:    30 * time.Second,
		Multiplier:     1,
		AttemptTimeout: 5 * time.Second,
	}

	assert.Equal(t, 77*time.Second, retry.Budget())

	retry.Multiplier = 1.5
	assert.Greater(t, retry.Budget(), 2*time.Minute)
}
