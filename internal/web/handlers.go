package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/UnknownOlympus/hestia/internal/models"
	"github.com/UnknownOlympus/hestia/internal/services/employees"
	"github.com/labstack/echo/v4"
)

// NotFoundMessage is the body of /fetchdata when no record matches.
const NotFoundMessage = "No employee found."

type EmployeeService interface {
	AddEmployee(ctx context.Context, employee models.Employee) (string, error)
	FetchEmployee(ctx context.Context, identifier string) (models.Employee, error)
}

type ImageSource interface {
	ImageURL(ctx context.Context) string
}

type Handler struct {
	staff       EmployeeService
	images      ImageSource
	groupName   string
	groupSlogan string
}

func (h *Handler) pageData(c echo.Context) page {
	return page{
		GroupName:       h.groupName,
		GroupSlogan:     h.groupSlogan,
		BackgroundImage: h.images.ImageURL(c.Request().Context()),
	}
}

func (h *Handler) Home(c echo.Context) error {
	return c.Render(http.StatusOK, "addemp.html", h.pageData(c))
}

func (h *Handler) About(c echo.Context) error {
	return c.Render(http.StatusOK, "about.html", h.pageData(c))
}

func (h *Handler) GetEmp(c echo.Context) error {
	return c.Render(http.StatusOK, "getemp.html", h.pageData(c))
}

// AddEmp stores the submitted record. Database errors are returned to echo,
// which answers with a generic 500.
func (h *Handler) AddEmp(c echo.Context) error {
	form, err := formFields(c, "emp_id", "first_name", "last_name", "primary_skill", "location")
	if err != nil {
		return err
	}

	name, err := h.staff.AddEmployee(c.Request().Context(), models.Employee{
		ID:           form["emp_id"],
		FirstName:    form["first_name"],
		LastName:     form["last_name"],
		PrimarySkill: form["primary_skill"],
		Location:     form["location"],
	})
	if err != nil {
		return err
	}

	data := h.pageData(c)
	data.Name = name

	return c.Render(http.StatusOK, "addempoutput.html", data)
}

// FetchData looks a record up. Database errors are reported verbatim as the body.
func (h *Handler) FetchData(c echo.Context) error {
	form, err := formFields(c, "emp_id")
	if err != nil {
		return err
	}

	employee, err := h.staff.FetchEmployee(c.Request().Context(), form["emp_id"])
	if errors.Is(err, employees.ErrEmployeeNotFound) {
		return c.String(http.StatusOK, NotFoundMessage)
	}
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}

	data := h.pageData(c)
	data.Employee = employee

	return c.Render(http.StatusOK, "getempoutput.html", data)
}

// formFields returns the named form values. A field absent from the form is a 400;
// an empty value is accepted.
func formFields(c echo.Context, names ...string) (map[string]string, error) {
	params, err := c.FormParams()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid form body").SetInternal(err)
	}

	values := make(map[string]string, len(names))
	for _, name := range names {
		v, ok := params[name]
		if !ok || len(v) == 0 {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "missing form field: "+name)
		}
		values[name] = v[0]
	}

	return values, nil
}
