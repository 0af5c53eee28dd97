package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type employeeDirectory struct {
	db *database.DB
}

// NewEmployeeDirectory reads compensation profiles from the employees table.
func NewEmployeeDirectory(db *database.DB) payroll.EmployeeDirectory {
	return &employeeDirectory{db: db}
}

const employeeProfileQuery = `
	SELECT id, full_name, COALESCE(employee_code, ''), base_salary,
		COALESCE(bank_account_number, ''), employment_status
	FROM employees
	WHERE deleted_at IS NULL`

func scanCompensationProfile(row pgx.Row) (payroll.CompensationProfile, error) {
	var (
		profile payroll.CompensationProfile
		salary  decimal.NullDecimal
	)
	err := row.Scan(
		&profile.EmployeeID, &profile.EmployeeName, &profile.EmployeeCode, &salary,
		&profile.PayoutDestination, &profile.Status,
	)
	if err != nil {
		return payroll.CompensationProfile{}, err
	}
	if salary.Valid {
		profile.BasicSalary = salary.Decimal
	}
	return profile, nil
}

// ListActiveEmployees implements payroll.EmployeeDirectory.
func (d *employeeDirectory) ListActiveEmployees(ctx context.Context) ([]payroll.CompensationProfile, error) {
	q := GetQuerier(ctx, d.db)

	rows, err := q.Query(ctx, employeeProfileQuery+" AND employment_status = $1 ORDER BY full_name ASC", payroll.EmployeeStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list active employees: %w", err)
	}
	defer rows.Close()

	var profiles []payroll.CompensationProfile
	for rows.Next() {
		profile, err := scanCompensationProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employees: %w", err)
	}

	return profiles, nil
}

// GetCompensationProfile implements payroll.EmployeeDirectory.
func (d *employeeDirectory) GetCompensationProfile(ctx context.Context, employeeID string) (payroll.CompensationProfile, error) {
	q := GetQuerier(ctx, d.db)

	profile, err := scanCompensationProfile(q.QueryRow(ctx, employeeProfileQuery+" AND id = $1", employeeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.CompensationProfile{}, payroll.ErrEmployeeNotFound
		}
		return payroll.CompensationProfile{}, fmt.Errorf("failed to get employee with id %s: %w", employeeID, err)
	}

	return profile, nil
}
