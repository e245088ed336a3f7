package assets

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/UnknownOlympus/hestia/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore is the part of an S3 client the fetcher needs. *minio.Client satisfies it.
type ObjectStore interface {
	FGetObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.GetObjectOptions) error
	PresignedGetObject(
		ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values,
	) (*url.URL, error)
}

var errEmptyEndpoint = errors.New("empty endpoint")

// normaliseEndpoint accepts either "host:port" or "http(s)://host:port".
// Without a scheme the endpoint is treated as plain HTTP, which suits a local MinIO.
func normaliseEndpoint(raw string) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, errEmptyEndpoint
	}

	if !strings.Contains(raw, "://") {
		return raw, false, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("failed to parse endpoint: %w", err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid endpoint %q", raw)
	}
	if u.Path != "" && u.Path != "/" {
		return "", false, fmt.Errorf("endpoint must not contain a path: %q", raw)
	}

	return u.Host, u.Scheme == "https", nil
}

// NewObjectStore builds an S3 client from static credentials. The session token may be empty.
func NewObjectStore(cfg config.S3Config) (*minio.Client, error) {
	endpoint, secure, err := normaliseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}

	return client, nil
}
