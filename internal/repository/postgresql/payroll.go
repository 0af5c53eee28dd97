package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepository{db: db}
}

const payrollColumns = `
	pr.id, pr.employee_id, pr.period_start, pr.period_end,
	pr.total_hours, pr.regular_hours, pr.overtime_hours,
	pr.basic_salary, pr.standard_working_hours, pr.payout_destination,
	pr.hourly_rate, pr.standard_overtime_rate, pr.premium_overtime_rate,
	pr.paid_regular_hours, pr.standard_overtime_hours, pr.premium_overtime_hours,
	pr.regular_pay, pr.standard_overtime_pay, pr.premium_overtime_pay, pr.total_overtime_pay, pr.gross_pay,
	pr.paye, pr.nhif, pr.nssf, pr.housing_levy, pr.other_deductions, pr.total_deductions, pr.net_pay,
	pr.payment_status, pr.payment_reference_id, pr.gateway_reference, pr.payment_date, pr.payment_attempts, pr.failure_reason,
	pr.overtime_approval_required, pr.overtime_approved_by, pr.overtime_approved_at, pr.overtime_approval_reason,
	pr.approved_by, pr.approved_at, pr.working_days, pr.leave_days, pr.notes, pr.version,
	pr.created_at, pr.updated_at`

const payrollSelect = `
	SELECT ` + payrollColumns + `,
		e.full_name AS employee_name, e.employee_code
	FROM payroll_records pr
	JOIN employees e ON pr.employee_id = e.id`

func scanPayrollRecord(row pgx.Row, withEmployee bool) (payroll.PayrollRecord, error) {
	var rec payroll.PayrollRecord
	dest := []interface{}{
		&rec.ID, &rec.EmployeeID, &rec.PeriodStart, &rec.PeriodEnd,
		&rec.Attendance.TotalHours, &rec.Attendance.RegularHours, &rec.Attendance.OvertimeHours,
		&rec.Compensation.BasicSalary, &rec.Compensation.StandardWorkingHours, &rec.Compensation.PayoutDestination,
		&rec.Salary.HourlyRate, &rec.Salary.StandardOvertimeRate, &rec.Salary.PremiumOvertimeRate,
		&rec.Salary.PaidRegularHours, &rec.Salary.StandardOvertimeHours, &rec.Salary.PremiumOvertimeHours,
		&rec.Salary.RegularPay, &rec.Salary.StandardOvertimePay, &rec.Salary.PremiumOvertimePay, &rec.Salary.TotalOvertimePay, &rec.Salary.GrossPay,
		&rec.Deductions.PAYE, &rec.Deductions.HealthLevy, &rec.Deductions.SocialSecurity, &rec.Deductions.HousingLevy,
		&rec.Deductions.OtherDeductions, &rec.Deductions.TotalDeductions, &rec.NetPay,
		&rec.PaymentStatus, &rec.Payment.ReferenceID, &rec.Payment.GatewayReference, &rec.Payment.PaymentDate,
		&rec.Payment.Attempts, &rec.Payment.FailureReason,
		&rec.OvertimeApproval.Required, &rec.OvertimeApproval.ApprovedBy, &rec.OvertimeApproval.ApprovedDate, &rec.OvertimeApproval.Reason,
		&rec.ApprovedBy, &rec.ApprovedDate, &rec.WorkingDays, &rec.LeaveDays, &rec.Notes, &rec.Version,
		&rec.CreatedAt, &rec.UpdatedAt,
	}
	if withEmployee {
		dest = append(dest, &rec.EmployeeName, &rec.EmployeeCode)
	}
	err := row.Scan(dest...)
	return rec, err
}

func (r *payrollRepository) Create(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_records AS pr (
			id, employee_id, period_start, period_end,
			total_hours, regular_hours, overtime_hours,
			basic_salary, standard_working_hours, payout_destination,
			hourly_rate, standard_overtime_rate, premium_overtime_rate,
			paid_regular_hours, standard_overtime_hours, premium_overtime_hours,
			regular_pay, standard_overtime_pay, premium_overtime_pay, total_overtime_pay, gross_pay,
			paye, nhif, nssf, housing_levy, other_deductions, total_deductions, net_pay,
			payment_status, overtime_approval_required, working_days, leave_days, notes, version
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
			$31, $32, $33, 1
		)
		ON CONFLICT (employee_id, period_start, period_end) DO NOTHING
		RETURNING ` + payrollColumns

	created, err := scanPayrollRecord(q.QueryRow(ctx, query,
		record.ID, record.EmployeeID, record.PeriodStart, record.PeriodEnd,
		record.Attendance.TotalHours, record.Attendance.RegularHours, record.Attendance.OvertimeHours,
		record.Compensation.BasicSalary, record.Compensation.StandardWorkingHours, record.Compensation.PayoutDestination,
		record.Salary.HourlyRate, record.Salary.StandardOvertimeRate, record.Salary.PremiumOvertimeRate,
		record.Salary.PaidRegularHours, record.Salary.StandardOvertimeHours, record.Salary.PremiumOvertimeHours,
		record.Salary.RegularPay, record.Salary.StandardOvertimePay, record.Salary.PremiumOvertimePay, record.Salary.TotalOvertimePay, record.Salary.GrossPay,
		record.Deductions.PAYE, record.Deductions.HealthLevy, record.Deductions.SocialSecurity, record.Deductions.HousingLevy,
		record.Deductions.OtherDeductions, record.Deductions.TotalDeductions, record.NetPay,
		record.PaymentStatus, record.OvertimeApproval.Required, record.WorkingDays, record.LeaveDays, record.Notes,
	), false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRecord{}, payroll.ErrRecordAlreadyExists
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to create payroll record: %w", err)
	}

	created.EmployeeName = record.EmployeeName
	created.EmployeeCode = record.EmployeeCode
	return created, nil
}

func (r *payrollRepository) getOne(ctx context.Context, where string, args ...interface{}) (payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	rec, err := scanPayrollRecord(q.QueryRow(ctx, payrollSelect+" WHERE "+where, args...), true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollRecord{}, payroll.ErrRecordNotFound
		}
		return payroll.PayrollRecord{}, fmt.Errorf("failed to get payroll record: %w", err)
	}
	return rec, nil
}

func (r *payrollRepository) GetByID(ctx context.Context, id string) (payroll.PayrollRecord, error) {
	return r.getOne(ctx, "pr.id = $1", id)
}

func (r *payrollRepository) GetByEmployeePeriod(ctx context.Context, employeeID string, periodStart, periodEnd time.Time) (payroll.PayrollRecord, error) {
	return r.getOne(ctx, "pr.employee_id = $1 AND pr.period_start = $2 AND pr.period_end = $3", employeeID, periodStart, periodEnd)
}

func (r *payrollRepository) GetByPaymentReference(ctx context.Context, referenceID string) (payroll.PayrollRecord, error) {
	return r.getOne(ctx, "pr.payment_reference_id = $1", referenceID)
}

func (r *payrollRepository) List(ctx context.Context, filter payroll.PayrollFilter) ([]payroll.PayrollRecord, int64, error) {
	q := GetQuerier(ctx, r.db)

	var (
		conditions []string
		args       []interface{}
	)
	addCondition := func(clause string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if filter.EmployeeID != nil {
		addCondition("pr.employee_id = $%d", *filter.EmployeeID)
	}
	if filter.Status != nil {
		addCondition("pr.payment_status = $%d", *filter.Status)
	}
	if filter.PeriodStart != nil {
		addCondition("pr.period_start >= $%d", *filter.PeriodStart)
	}
	if filter.PeriodEnd != nil {
		addCondition("pr.period_end <= $%d", *filter.PeriodEnd)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var totalCount int64
	countQuery := "SELECT COUNT(*) FROM payroll_records pr" + where
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count payroll records: %w", err)
	}

	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	offset := (filter.Page - 1) * filter.Limit

	selectQuery := fmt.Sprintf("%s%s ORDER BY pr.period_start DESC, e.full_name ASC LIMIT $%d OFFSET $%d",
		payrollSelect, where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, offset)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payroll records: %w", err)
	}
	defer rows.Close()

	var records []payroll.PayrollRecord
	for rows.Next() {
		rec, err := scanPayrollRecord(rows, true)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan payroll record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate payroll records: %w", err)
	}

	return records, totalCount, nil
}

func (r *payrollRepository) ListByStatus(ctx context.Context, status payroll.PaymentStatus, limit int) ([]payroll.PayrollRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := payrollSelect + " WHERE pr.payment_status = $1 ORDER BY pr.updated_at ASC LIMIT $2"
	rows, err := q.Query(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll records by status: %w", err)
	}
	defer rows.Close()

	var records []payroll.PayrollRecord
	for rows.Next() {
		rec, err := scanPayrollRecord(rows, true)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payroll record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Update writes every mutable column under an optimistic version check and
// journals status changes to payroll_payment_events in the same transaction.
func (r *payrollRepository) Update(ctx context.Context, record payroll.PayrollRecord) (payroll.PayrollRecord, error) {
	var updated payroll.PayrollRecord

	err := WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		var (
			previousStatus payroll.PaymentStatus
			currentVersion int
		)
		err := q.QueryRow(ctx,
			`SELECT payment_status, version FROM payroll_records WHERE id = $1 FOR UPDATE`,
			record.ID,
		).Scan(&previousStatus, &currentVersion)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return payroll.ErrRecordNotFound
			}
			return fmt.Errorf("failed to lock payroll record: %w", err)
		}
		if currentVersion != record.Version {
			return payroll.ErrConcurrentModification
		}

		query := `
			UPDATE payroll_records AS pr SET
				total_hours = $2, regular_hours = $3, overtime_hours = $4,
				hourly_rate = $5, standard_overtime_rate = $6, premium_overtime_rate = $7,
				paid_regular_hours = $8, standard_overtime_hours = $9, premium_overtime_hours = $10,
				regular_pay = $11, standard_overtime_pay = $12, premium_overtime_pay = $13,
				total_overtime_pay = $14, gross_pay = $15,
				paye = $16, nhif = $17, nssf = $18, housing_levy = $19,
				other_deductions = $20, total_deductions = $21, net_pay = $22,
				standard_working_hours = $23,
				payment_status = $24, payment_reference_id = $25, gateway_reference = $26,
				payment_date = $27, payment_attempts = $28, failure_reason = $29,
				overtime_approval_required = $30, overtime_approved_by = $31,
				overtime_approved_at = $32, overtime_approval_reason = $33,
				approved_by = $34, approved_at = $35, notes = $36,
				version = version + 1, updated_at = NOW()
			WHERE id = $1
			RETURNING ` + payrollColumns

		updated, err = scanPayrollRecord(q.QueryRow(ctx, query,
			record.ID,
			record.Attendance.TotalHours, record.Attendance.RegularHours, record.Attendance.OvertimeHours,
			record.Salary.HourlyRate, record.Salary.StandardOvertimeRate, record.Salary.PremiumOvertimeRate,
			record.Salary.PaidRegularHours, record.Salary.StandardOvertimeHours, record.Salary.PremiumOvertimeHours,
			record.Salary.RegularPay, record.Salary.StandardOvertimePay, record.Salary.PremiumOvertimePay,
			record.Salary.TotalOvertimePay, record.Salary.GrossPay,
			record.Deductions.PAYE, record.Deductions.HealthLevy, record.Deductions.SocialSecurity, record.Deductions.HousingLevy,
			record.Deductions.OtherDeductions, record.Deductions.TotalDeductions, record.NetPay,
			record.Compensation.StandardWorkingHours,
			record.PaymentStatus, record.Payment.ReferenceID, record.Payment.GatewayReference,
			record.Payment.PaymentDate, record.Payment.Attempts, record.Payment.FailureReason,
			record.OvertimeApproval.Required, record.OvertimeApproval.ApprovedBy,
			record.OvertimeApproval.ApprovedDate, record.OvertimeApproval.Reason,
			record.ApprovedBy, record.ApprovedDate, record.Notes,
		), false)
		if err != nil {
			return fmt.Errorf("failed to update payroll record: %w", err)
		}

		if previousStatus != record.PaymentStatus {
			_, err = q.Exec(ctx, `
				INSERT INTO payroll_payment_events (
					payroll_record_id, from_status, to_status, payment_reference_id, gateway_reference, failure_reason
				) VALUES ($1, $2, $3, $4, $5, $6)
			`, record.ID, previousStatus, record.PaymentStatus,
				record.Payment.ReferenceID, record.Payment.GatewayReference, record.Payment.FailureReason)
			if err != nil {
				return fmt.Errorf("failed to record payment event: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return payroll.PayrollRecord{}, err
	}

	updated.EmployeeName = record.EmployeeName
	updated.EmployeeCode = record.EmployeeCode
	return updated, nil
}

func (r *payrollRepository) GetStatistics(ctx context.Context, periodStart, periodEnd time.Time) (payroll.PayrollStatistics, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT
			COUNT(*) AS total_records,
			COALESCE(SUM(gross_pay), 0) AS total_gross_pay,
			COALESCE(SUM(total_deductions), 0) AS total_deductions,
			COALESCE(SUM(net_pay), 0) AS total_net_pay,
			COALESCE(SUM(total_overtime_pay), 0) AS total_overtime_pay,
			COUNT(*) FILTER (WHERE payment_status = 'pending') AS pending_count,
			COUNT(*) FILTER (WHERE payment_status = 'processing') AS processing_count,
			COUNT(*) FILTER (WHERE payment_status = 'paid') AS paid_count,
			COUNT(*) FILTER (WHERE payment_status = 'failed') AS failed_count,
			COUNT(*) FILTER (WHERE payment_status = 'cancelled') AS cancelled_count,
			COUNT(*) FILTER (WHERE overtime_approval_required AND overtime_approved_by IS NULL) AS overtime_pending
		FROM payroll_records
		WHERE period_start >= $1 AND period_end <= $2
	`

	var (
		stats                                       payroll.PayrollStatistics
		pending, processing, paid, failed, cancelld int
		gross, deductions, net, overtimePay         decimal.Decimal
	)
	err := q.QueryRow(ctx, query, periodStart, periodEnd).Scan(
		&stats.TotalRecords, &gross, &deductions, &net, &overtimePay,
		&pending, &processing, &paid, &failed, &cancelld, &stats.OvertimeApprovalPending,
	)
	if err != nil {
		return payroll.PayrollStatistics{}, fmt.Errorf("failed to get payroll statistics: %w", err)
	}

	stats.PeriodStart = periodStart
	stats.PeriodEnd = periodEnd
	stats.TotalGrossPay = gross
	stats.TotalDeductions = deductions
	stats.TotalNetPay = net
	stats.TotalOvertimePay = overtimePay
	stats.StatusCounts = map[payroll.PaymentStatus]int{
		payroll.PaymentStatusPending:    pending,
		payroll.PaymentStatusProcessing: processing,
		payroll.PaymentStatusPaid:       paid,
		payroll.PaymentStatusFailed:     failed,
		payroll.PaymentStatusCancelled:  cancelld,
	}

	return stats, nil
}
