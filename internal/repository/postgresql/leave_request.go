package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
)

type leaveSource struct {
	db *database.DB
}

// NewLeaveSource counts approved leave from leave_requests.
func NewLeaveSource(db *database.DB) payroll.LeaveSource {
	return &leaveSource{db: db}
}

// CountApprovedLeaveDays implements payroll.LeaveSource. Each approved range
// is clipped to the period and counted in working days.
func (l *leaveSource) CountApprovedLeaveDays(ctx context.Context, employeeID string, periodStart, periodEnd time.Time) (int, error) {
	q := GetQuerier(ctx, l.db)

	query := `
		SELECT start_date, end_date
		FROM leave_requests
		WHERE employee_id = $1
			AND status = 'approved'
			AND start_date <= $3
			AND end_date >= $2
	`

	rows, err := q.Query(ctx, query, employeeID, periodStart, periodEnd)
	if err != nil {
		return 0, fmt.Errorf("failed to query leave requests for employee %s: %w", employeeID, err)
	}
	defer rows.Close()

	days := 0
	for rows.Next() {
		var start, end time.Time
		if err := rows.Scan(&start, &end); err != nil {
			return 0, fmt.Errorf("failed to scan leave request: %w", err)
		}
		if start.Before(periodStart) {
			start = periodStart
		}
		if end.After(periodEnd) {
			end = periodEnd
		}
		days += payroll.WorkingDaysBetween(start, end)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to iterate leave requests: %w", err)
	}

	return days, nil
}
