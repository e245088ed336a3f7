package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/UnknownOlympus/hestia/internal/lib/logger/sl"
)

type DBPinger interface {
	Ping(ctx context.Context) error
}

type HealthChecker struct {
	db          DBPinger
	imageSource string
	httpClient  *http.Client
	log         *slog.Logger
}

// NewHealthChecker creates the /healthz handler. imageSource is the public background URL;
// when empty the image probe is skipped and reported as "skipped".
func NewHealthChecker(db DBPinger, imageSource string, log *slog.Logger) *HealthChecker {
	clientTO := 5
	return &HealthChecker{
		db:          db,
		imageSource: imageSource,
		httpClient:  &http.Client{Timeout: time.Duration(clientTO) * time.Second},
		log:         log,
	}
}

func (h *HealthChecker) ServeHTTP(writer http.ResponseWriter, req *http.Request) {
	h.log.DebugContext(req.Context(), "Performing health checks...")

	status := make(map[string]string)
	overallStatus := http.StatusOK

	if err := h.db.Ping(req.Context()); err != nil {
		status["database"] = "unavailable"
		overallStatus = http.StatusServiceUnavailable
		h.log.WarnContext(req.Context(), "Health check failed: DB ping", sl.Err(err))
	} else {
		status["database"] = "ok"
	}

	// The pages render without a background, so the image only informs.
	status["image_source"] = h.probeImage(req.Context())

	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(overallStatus)
	if err := json.NewEncoder(writer).Encode(status); err != nil {
		h.log.ErrorContext(req.Context(), "Failed to write health check response", sl.Err(err))
	}

	h.log.DebugContext(req.Context(), "Health checks completed", "status", overallStatus)
}

func (h *HealthChecker) probeImage(ctx context.Context) string {
	if h.imageSource == "" {
		return "skipped"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, h.imageSource, nil)
	if err != nil {
		h.log.WarnContext(ctx, "Health check failed: invalid image source", "host", h.imageSource, sl.Err(err))
		return "unreachable"
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		h.log.WarnContext(ctx, "Health check failed: image source unreachable", "host", h.imageSource, sl.Err(err))
		return "unreachable"
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			h.log.WarnContext(ctx, "Failed to close response body", sl.Err(cerr))
		}
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		h.log.WarnContext(
			ctx,
			"Health check failed: image source returned error status",
			"host",
			h.imageSource,
			"status_code",
			resp.StatusCode,
		)
		return "degraded"
	}

	return "ok"
}
