package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
	"github.com/shopspring/decimal"
)

type attendanceSource struct {
	db *database.DB
}

// NewAttendanceSource aggregates closed attendance sessions into period hours.
func NewAttendanceSource(db *database.DB) payroll.AttendanceSource {
	return &attendanceSource{db: db}
}

var minutesPerHour = decimal.NewFromInt(60)

// GetAttendanceSummary implements payroll.AttendanceSource.
func (a *attendanceSource) GetAttendanceSummary(ctx context.Context, employeeID string, periodStart, periodEnd time.Time) (payroll.AttendanceSummary, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT
			COALESCE(SUM(work_hours_in_minutes), 0),
			COALESCE(SUM(overtime_minutes), 0)
		FROM attendances
		WHERE employee_id = $1
			AND date >= $2 AND date <= $3
			AND clock_out IS NOT NULL
			AND status <> 'rejected'
	`

	var workMinutes, overtimeMinutes int64
	err := q.QueryRow(ctx, query, employeeID, periodStart, periodEnd).Scan(&workMinutes, &overtimeMinutes)
	if err != nil {
		return payroll.AttendanceSummary{}, fmt.Errorf("failed to aggregate attendance for employee %s: %w", employeeID, err)
	}

	total := decimal.NewFromInt(workMinutes).Div(minutesPerHour).Round(2)
	overtime := decimal.NewFromInt(overtimeMinutes).Div(minutesPerHour).Round(2)
	regular := total.Sub(overtime)
	if regular.IsNegative() {
		regular = decimal.Zero
	}

	return payroll.AttendanceSummary{
		TotalHours:    total,
		RegularHours:  regular,
		OvertimeHours: overtime,
	}, nil
}
