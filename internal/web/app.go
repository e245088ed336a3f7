// Package web serves the employee forms: the router, middleware, handlers and templates.
package web

import (
	"log/slog"

	"github.com/UnknownOlympus/hestia/internal/assets"
	"github.com/UnknownOlympus/hestia/internal/config"
	"github.com/UnknownOlympus/hestia/internal/metrics"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// New builds the echo instance with every route registered.
func New(
	log *slog.Logger,
	m *metrics.Metrics,
	staff EmployeeService,
	images ImageSource,
	branding config.BrandingConfig,
	staticDir string,
) (*echo.Echo, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestLogger(log.With(slog.String("division", "http")), m))
	e.Use(middleware.Recover())

	h := &Handler{
		staff:       staff,
		images:      images,
		groupName:   branding.GroupName,
		groupSlogan: branding.GroupSlogan,
	}

	e.GET("/", h.Home)
	e.GET("/about", h.About)
	e.POST("/addemp", h.AddEmp)
	e.GET("/getemp", h.GetEmp)
	e.POST("/fetchdata", h.FetchData)
	e.Static(assets.StaticPrefix, staticDir)

	return e, nil
}
