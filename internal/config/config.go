package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	ModeDownload = "download"
	ModePresign  = "presign"
)

type Config struct {
	Env        string           `yaml:"env"`        // Env is the current environment: local, development, production.
	HTTP       HTTPConfig       `yaml:"http"`       // HTTP holds the listen addresses of the form and monitoring servers.
	Postgres   PostgresConfig   `yaml:"postgres"`   // Postgres holds the database configuration.
	Branding   BrandingConfig   `yaml:"branding"`   // Branding holds the strings rendered on every page.
	Background BackgroundConfig `yaml:"background"` // Background holds the background image source.
	S3         S3Config         `yaml:"s3"`         // S3 holds the object storage configuration.
}

type HTTPConfig struct {
	Addr        string `yaml:"addr"`         // Addr is the listen address of the form server.
	MetricsPort int    `yaml:"metrics_port"` // MetricsPort is the port of the /metrics and /healthz server.
	StaticDir   string `yaml:"static_dir"`   // StaticDir is where the downloaded background is stored.
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string      `yaml:"host"`      // Host is the database server address.
	Port     string      `yaml:"port"`      // Port is the database server port.
	User     string      `yaml:"user"`      // User is the database user.
	Password string      `yaml:"password"`  // Password is the database user's password.
	Dbname   string      `yaml:"db_name"`   // Dbname is the name of the database.
	MaxConns int32       `yaml:"max_conns"` // MaxConns bounds the connection pool.
	Retry    RetryConfig `yaml:"retry"`     // Retry controls the startup connection attempts.
}

// RetryConfig describes the exponential backoff used while the database is unreachable.
type RetryConfig struct {
	Attempts       int           `yaml:"attempts"`
	Interval       time.Duration `yaml:"interval"`
	MaxInterval    time.Duration `yaml:"max_interval"`
	Multiplier     float64       `yaml:"multiplier"`
	Timeout        time.Duration `yaml:"timeout"`         // Timeout bounds the whole schedule.
	AttemptTimeout time.Duration `yaml:"attempt_timeout"` // AttemptTimeout bounds a single dial and ping.
}

// Waits returns the pauses between consecutive attempts: Interval grown by Multiplier
// and capped at MaxInterval, one fewer than Attempts.
func (r RetryConfig) Waits() []time.Duration {
	if r.Attempts < 2 || r.Interval <= 0 {
		return nil
	}

	multiplier := max(r.Multiplier, 1)
	ceiling := max(r.MaxInterval, r.Interval)
	current := r.Interval

	waits := make([]time.Duration, 0, r.Attempts-1)
	for range r.Attempts - 1 {
		waits = append(waits, current)
		if float64(current) >= float64(ceiling)/multiplier {
			current = ceiling
		} else {
			current = time.Duration(float64(current) * multiplier)
		}
	}

	return waits
}

// Budget is the longest the schedule can take when every attempt runs into AttemptTimeout.
func (r RetryConfig) Budget() time.Duration {
	budget := time.Duration(max(r.Attempts, 0)) * r.AttemptTimeout
	for _, wait := range r.Waits() {
		budget += wait
	}

	return budget
}

type BrandingConfig struct {
	GroupName   string `yaml:"group_name"`
	GroupSlogan string `yaml:"group_slogan"`
}

type BackgroundConfig struct {
	Mode string `yaml:"mode"` // Mode is either "download" or "presign".
	URL  string `yaml:"url"`  // URL is the public image used when object storage is not configured.
}

type S3Config struct {
	Endpoint     string `yaml:"endpoint"`
	Region       string `yaml:"region"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	SessionToken string `yaml:"session_token"`
	Bucket       string `yaml:"bucket"`
	ImageKey     string `yaml:"image_key"`
}

// Complete reports whether the bucket, key and credentials are all present.
func (s S3Config) Complete() bool {
	return s.Bucket != "" && s.ImageKey != "" && s.AccessKey != "" && s.SecretKey != ""
}

// envBindings maps configuration keys to the environment variables that set them.
var envBindings = map[string]string{
	"env":                            "APP_ENV",
	"http.addr":                      "LISTEN_ADDR",
	"http.metrics_port":              "METRICS_PORT",
	"http.static_dir":                "STATIC_DIR",
	"postgres.host":                  "DBHOST",
	"postgres.port":                  "DBPORT",
	"postgres.user":                  "DBUSER",
	"postgres.password":              "DBPWD",
	"postgres.db_name":               "DATABASE",
	"postgres.max_conns":             "DB_MAX_CONNS",
	"postgres.retry.attempts":        "DB_CONNECT_ATTEMPTS",
	"postgres.retry.interval":        "DB_RETRY_INTERVAL",
	"postgres.retry.max_interval":    "DB_RETRY_MAX_INTERVAL",
	"postgres.retry.multiplier":      "DB_RETRY_MULTIPLIER",
	"postgres.retry.timeout":         "DB_CONNECT_TIMEOUT",
	"postgres.retry.attempt_timeout": "DB_ATTEMPT_TIMEOUT",
	"branding.group_name":            "GROUP_NAME",
	"branding.group_slogan":          "GROUP_SLOGAN",
	"background.mode":                "BACKGROUND_MODE",
	"background.url":                 "BACKGROUND_IMAGE_URL",
	"s3.endpoint":                    "S3_ENDPOINT",
	"s3.region":                      "AWS_REGION",
	"s3.access_key":                  "AWS_ACCESS_KEY_ID",
	"s3.secret_key":                  "AWS_SECRET_ACCESS_KEY",
	"s3.session_token":               "AWS_SESSION_TOKEN",
	"s3.bucket":                      "S3_BUCKET_NAME",
	"s3.image_key":                   "S3_IMAGE_KEY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")
	v.SetDefault("http.addr", ":81")
	v.SetDefault("http.metrics_port", 8080)
	v.SetDefault("http.static_dir", "static")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "password")
	v.SetDefault("postgres.db_name", "employees")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.retry.attempts", 10)
	v.SetDefault("postgres.retry.interval", 3*time.Second)
	v.SetDefault("postgres.retry.max_interval", 30*time.Second)
	v.SetDefault("postgres.retry.multiplier", 1)
	v.SetDefault("postgres.retry.timeout", 2*time.Minute)
	v.SetDefault("postgres.retry.attempt_timeout", 5*time.Second)
	v.SetDefault("branding.group_name", "Team CLO835")
	v.SetDefault("branding.group_slogan", "Scaling the future")
	v.SetDefault("background.mode", ModeDownload)
	v.SetDefault("background.url", "https://vectorified.com/images/kubernetes-icon-14.png")
	v.SetDefault("s3.endpoint", "https://s3.amazonaws.com")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.image_key", "background.jpg")
}

// Load reads the configuration from the environment, an optional YAML file
// pointed to by CONFIG_PATH and the built-in defaults, in that order of priority.
// A .env file in the working directory is applied to the environment first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	vpr := viper.New()
	setDefaults(vpr)

	for key, env := range envBindings {
		if err := vpr.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		vpr.SetConfigFile(configPath)
		if err := vpr.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	cfg := &Config{
		Env: vpr.GetString("env"),
		HTTP: HTTPConfig{
			Addr:        vpr.GetString("http.addr"),
			MetricsPort: vpr.GetInt("http.metrics_port"),
			StaticDir:   vpr.GetString("http.static_dir"),
		},
		Postgres: PostgresConfig{
			Host:     vpr.GetString("postgres.host"),
			Port:     vpr.GetString("postgres.port"),
			User:     vpr.GetString("postgres.user"),
			Password: vpr.GetString("postgres.password"),
			Dbname:   vpr.GetString("postgres.db_name"),
			MaxConns: vpr.GetInt32("postgres.max_conns"),
			Retry: RetryConfig{
				Attempts:       vpr.GetInt("postgres.retry.attempts"),
				Interval:       vpr.GetDuration("postgres.retry.interval"),
				MaxInterval:    vpr.GetDuration("postgres.retry.max_interval"),
				Multiplier:     vpr.GetFloat64("postgres.retry.multiplier"),
				Timeout:        vpr.GetDuration("postgres.retry.timeout"),
				AttemptTimeout: vpr.GetDuration("postgres.retry.attempt_timeout"),
			},
		},
		Branding: BrandingConfig{
			GroupName:   vpr.GetString("branding.group_name"),
			GroupSlogan: vpr.GetString("branding.group_slogan"),
		},
		Background: BackgroundConfig{
			Mode: vpr.GetString("background.mode"),
			URL:  vpr.GetString("background.url"),
		},
		S3: S3Config{
			Endpoint:     vpr.GetString("s3.endpoint"),
			Region:       vpr.GetString("s3.region"),
			AccessKey:    vpr.GetString("s3.access_key"),
			SecretKey:    vpr.GetString("s3.secret_key"),
			SessionToken: vpr.GetString("s3.session_token"),
			Bucket:       vpr.GetString("s3.bucket"),
			ImageKey:     vpr.GetString("s3.image_key"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad loads the configuration and panics if it cannot be loaded or is invalid.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic("config error: " + err.Error())
	}

	return cfg
}

// Validate checks the values that would otherwise fail later at runtime.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	if c.HTTP.MetricsPort < 1 || c.HTTP.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("metrics port %d is out of range", c.HTTP.MetricsPort))
	}
	if port, err := strconv.Atoi(c.Postgres.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Errorf("database port %q is invalid", c.Postgres.Port))
	}
	if c.Postgres.Host == "" {
		errs = append(errs, errors.New("database host is empty"))
	}
	if c.Postgres.MaxConns < 1 {
		errs = append(errs, fmt.Errorf("database max conns must be positive, got %d", c.Postgres.MaxConns))
	}
	if c.Postgres.Retry.Attempts < 1 {
		errs = append(errs, fmt.Errorf("connect attempts must be at least 1, got %d", c.Postgres.Retry.Attempts))
	}
	if c.Postgres.Retry.Interval <= 0 {
		errs = append(errs, errors.New("retry interval must be positive"))
	}
	if c.Postgres.Retry.Multiplier < 1 {
		errs = append(errs, fmt.Errorf("retry multiplier must be >= 1, got %v", c.Postgres.Retry.Multiplier))
	}
	if c.Postgres.Retry.AttemptTimeout <= 0 {
		errs = append(errs, errors.New("connect attempt timeout must be positive"))
	}
	if retry := c.Postgres.Retry; retry.Timeout <= 0 {
		errs = append(errs, errors.New("connect timeout must be positive"))
	} else if retry.Attempts >= 1 && retry.Interval > 0 && retry.Timeout < retry.Budget() {
		errs = append(errs, fmt.Errorf(
			"connect timeout %s is shorter than the %d-attempt schedule (%s)",
			retry.Timeout, retry.Attempts, retry.Budget()))
	}
	if c.Background.Mode != ModeDownload && c.Background.Mode != ModePresign {
		errs = append(errs, fmt.Errorf("unknown background mode %q", c.Background.Mode))
	}

	return errors.Join(errs...)
}
