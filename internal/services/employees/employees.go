package employees

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/hestia/internal/lib/logger/sl"
	"github.com/UnknownOlympus/hestia/internal/metrics"
	"github.com/UnknownOlympus/hestia/internal/models"
	"github.com/UnknownOlympus/hestia/internal/repository"
	"github.com/jackc/pgx/v5"
)

// ErrEmployeeNotFound is returned by FetchEmployee when no row has the requested identifier.
var ErrEmployeeNotFound = errors.New("employee not found")

type Staff struct {
	log     *slog.Logger
	repo    repository.EmployeeRepoIface
	metrics *metrics.Metrics
}

func NewStaff(log *slog.Logger, repo repository.EmployeeRepoIface, metrics *metrics.Metrics) *Staff {
	return &Staff{log: log, repo: repo, metrics: metrics}
}

func (s *Staff) initLogger(opn string) *slog.Logger {
	return s.log.With(
		slog.String("op", opn),
		slog.String("division", "employee"),
	)
}

// AddEmployee stores the record and returns the full name shown on the confirmation page.
// Field contents are not validated; the table is the only authority on uniqueness.
func (s *Staff) AddEmployee(ctx context.Context, employee models.Employee) (string, error) {
	const opn = "Employee.AddEmployee"
	log := s.initLogger(opn)

	if err := s.repo.SaveEmployee(ctx, employee); err != nil {
		s.metrics.EmployeesAdded.WithLabelValues("failure").Inc()
		log.ErrorContext(ctx, "Failed to add employee", "emp_id", employee.ID, sl.Err(err))
		return "", fmt.Errorf("failed to add employee '%s': %w", employee.ID, err)
	}

	s.metrics.EmployeesAdded.WithLabelValues("success").Inc()
	log.InfoContext(ctx, "Employee added", "emp_id", employee.ID)

	return employee.FullName(), nil
}

// FetchEmployee looks up one record by identifier.
func (s *Staff) FetchEmployee(ctx context.Context, identifier string) (models.Employee, error) {
	const opn = "Employee.FetchEmployee"
	log := s.initLogger(opn)

	employee, err := s.repo.GetEmployeeByID(ctx, identifier)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		s.metrics.EmployeeLookups.WithLabelValues("not_found").Inc()
		log.DebugContext(ctx, "Employee not found", "emp_id", identifier)
		return models.Employee{}, ErrEmployeeNotFound
	case err != nil:
		s.metrics.EmployeeLookups.WithLabelValues("error").Inc()
		log.ErrorContext(ctx, "Failed to fetch employee", "emp_id", identifier, sl.Err(err))
		return models.Employee{}, err
	}

	s.metrics.EmployeeLookups.WithLabelValues("found").Inc()

	return employee, nil
}
