package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/UnknownOlympus/hestia/internal/models"
)

// SaveEmployee inserts a new employee row. Uniqueness of the identifier is left to the
// table's primary key, so a duplicate surfaces as the driver error.
func (r *Repository) SaveEmployee(ctx context.Context, employee models.Employee) error {
	startTime := time.Now()
	defer func() {
		duration := time.Since(startTime).Seconds()
		r.metrics.DBQueryDuration.WithLabelValues("save_employee").Observe(duration)
	}()
	query := `
		INSERT INTO employee (emp_id, first_name, last_name, primary_skill, location)
		VALUES ($1, $2, $3, $4, $5);
	`

	_, err := r.db.Exec(ctx, query,
		employee.ID, employee.FirstName, employee.LastName, employee.PrimarySkill, employee.Location)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}

	return nil
}

// GetEmployeeByID retrieves an employee from the database by their ID.
// A missing row is reported as a wrapped pgx.ErrNoRows.
func (r *Repository) GetEmployeeByID(ctx context.Context, identifier string) (models.Employee, error) {
	var result models.Employee

	startTime := time.Now()
	defer func() {
		duration := time.Since(startTime).Seconds()
		r.metrics.DBQueryDuration.WithLabelValues("get_employee_by_id").Observe(duration)
	}()
	query := `SELECT emp_id, first_name, last_name, primary_skill, location FROM employee WHERE emp_id=$1`

	err := r.db.QueryRow(ctx, query, identifier).Scan(
		&result.ID, &result.FirstName, &result.LastName, &result.PrimarySkill, &result.Location)
	if err != nil {
		return models.Employee{}, fmt.Errorf("failed to get employee by id: %w", err)
	}

	return result, nil
}
