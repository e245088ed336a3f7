package server_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/UnknownOlympus/hestia/internal/server"
	"github.com/stretchr/testify/require"
)

type MockDBPinger struct {
	ShouldFail bool
}

func (m *MockDBPinger) Ping(_ context.Context) error {
	if m.ShouldFail {
		return errors.New("mock db error")
	}
	return nil
}

func TestHealthChecker(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	serve := func(checker *server.HealthChecker) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rr := httptest.NewRecorder()
		checker.ServeHTTP(rr, req)
		return rr
	}

	imageServer := func(t *testing.T, code int) string {
		t.Helper()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(code)
		}))
		t.Cleanup(srv.Close)
		return srv.URL
	}

	t.Run("all systems ok", func(t *testing.T) {
		rr := serve(server.NewHealthChecker(&MockDBPinger{}, imageServer(t, http.StatusOK), logger))

		require.Equal(t, http.StatusOK, rr.Code)
		require.JSONEq(t, `{"database":"ok","image_source":"ok"}`, rr.Body.String())
	})

	t.Run("database unavailable", func(t *testing.T) {
		rr := serve(server.NewHealthChecker(&MockDBPinger{ShouldFail: true}, imageServer(t, http.StatusOK), logger))

		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		require.JSONEq(t, `{"database":"unavailable","image_source":"ok"}`, rr.Body.String())
	})

	t.Run("image source degraded", func(t *testing.T) {
		rr := serve(server.NewHealthChecker(&MockDBPinger{}, imageServer(t, http.StatusInternalServerError), logger))

		require.Equal(t, http.StatusOK, rr.Code)
		require.JSONEq(t, `{"database":"ok","image_source":"degraded"}`, rr.Body.String())
	})

	t.Run("image source unreachable", func(t *testing.T) {
		rr := serve(server.NewHealthChecker(&MockDBPinger{}, "invalid_url", logger))

		require.Equal(t, http.StatusOK, rr.Code)
		require.JSONEq(t, `{"database":"ok","image_source":"unreachable"}`, rr.Body.String())
	})

	t.Run("database down and image unreachable", func(t *testing.T) {
		rr := serve(server.NewHealthChecker(&MockDBPinger{ShouldFail: true}, "invalid_url", logger))

		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		require.JSONEq(t, `{"database":"unavailable","image_source":"unreachable"}`, rr.Body.String())
	})

	t.Run("object storage skips the probe", func(t *testing.T) {
		rr := serve(server.NewHealthChecker(&MockDBPinger{}, "", logger))

		require.Equal(t, http.StatusOK, rr.Code)
		require.JSONEq(t, `{"database":"ok","image_source":"skipped"}`, rr.Body.String())
	})
}
