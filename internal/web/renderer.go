package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/UnknownOlympus/hestia/internal/models"
	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

// page is the data every template receives.
type page struct {
	GroupName       string
	GroupSlogan     string
	BackgroundImage string
	Name            string
	Employee        models.Employee
}

// Renderer renders the embedded HTML templates for echo.
type Renderer struct {
	templates *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Renderer{templates: tmpl}, nil
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}
