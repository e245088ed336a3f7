package web

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/UnknownOlympus/hestia/internal/metrics"
	"github.com/labstack/echo/v4"
)

// requestLogger logs one line per request and records the HTTP metrics.
// Handler errors are resolved through echo's error handler first so the
// logged status is the one the client received.
func requestLogger(log *slog.Logger, m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			if err := next(c); err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			duration := time.Since(start)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}

			m.HTTPRequests.WithLabelValues(req.Method, route, strconv.Itoa(res.Status)).Inc()
			m.HTTPDuration.WithLabelValues(route).Observe(duration.Seconds())

			level := slog.LevelInfo
			if res.Status >= 500 {
				level = slog.LevelError
			}

			log.LogAttrs(req.Context(), level, "request",
				slog.String("rid", res.Header().Get(echo.HeaderXRequestID)),
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", res.Status),
				slog.Int64("ms", duration.Milliseconds()),
				slog.Int64("bytes", res.Size),
				slog.String("ip", c.RealIP()),
				slog.String("ua", req.UserAgent()),
			)

			return nil
		}
	}
}
