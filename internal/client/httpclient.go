package client

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/UnknownOlympus/hestia/internal/models"
)

// userAgentTransport sets models.UserAgent on requests that do not carry one.
type userAgentTransport struct {
	next http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.next.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", models.UserAgent)

	return t.next.RoundTrip(clone)
}

// CreateHTTPClient initializes the outbound HTTP client used for background downloads.
// Redirects are followed and logged at debug level.
func CreateHTTPClient(log *slog.Logger, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &userAgentTransport{next: http.DefaultTransport},
		CheckRedirect: func(req *http.Request, _ []*http.Request) error {
			log.Debug("Redirected to URL", "URL", req.URL)

			return nil
		},
	}
}
