package payroll

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus enum
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusPaid       PaymentStatus = "paid"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
)

// AllPaymentStatuses lists every status in lifecycle order.
var AllPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusProcessing,
	PaymentStatusPaid,
	PaymentStatusFailed,
	PaymentStatusCancelled,
}

// IsValid reports whether s is a known status.
func (s PaymentStatus) IsValid() bool {
	for _, known := range AllPaymentStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// EmployeeStatusActive is the only employment status eligible for payroll.
const EmployeeStatusActive = "active"

// CompensationProfile is the employee directory view used to price a period.
type CompensationProfile struct {
	EmployeeID           string
	EmployeeName         string
	EmployeeCode         string
	BasicSalary          decimal.Decimal
	StandardWorkingHours decimal.Decimal
	PayoutDestination    string
	Status               string
}

// IsActive reports whether the employee may be paid.
func (p CompensationProfile) IsActive() bool {
	return p.Status == EmployeeStatusActive
}

// AttendanceSummary - Aggregate hours for one employee over one period
type AttendanceSummary struct {
	TotalHours    decimal.Decimal
	RegularHours  decimal.Decimal
	OvertimeHours decimal.Decimal
}

// Validate rejects negative hour counts.
func (a AttendanceSummary) Validate() error {
	if a.TotalHours.IsNegative() || a.RegularHours.IsNegative() || a.OvertimeHours.IsNegative() {
		return ErrMalformedAttendance
	}
	return nil
}

// Rounded returns the summary at storage precision, so a record priced from
// it prices the same after a reload.
func (a AttendanceSummary) Rounded() AttendanceSummary {
	return AttendanceSummary{
		TotalHours:    round(a.TotalHours),
		RegularHours:  round(a.RegularHours),
		OvertimeHours: round(a.OvertimeHours),
	}
}

// CompensationSnapshot freezes the salary inputs at generation time so later
// directory changes never reprice an existing record.
type CompensationSnapshot struct {
	BasicSalary          decimal.Decimal
	StandardWorkingHours decimal.Decimal
	PayoutDestination    string
}

// SalaryBreakdown - Earnings derived from the snapshot and attendance
type SalaryBreakdown struct {
	HourlyRate            decimal.Decimal
	StandardOvertimeRate  decimal.Decimal
	PremiumOvertimeRate   decimal.Decimal
	PaidRegularHours      decimal.Decimal
	StandardOvertimeHours decimal.Decimal
	PremiumOvertimeHours  decimal.Decimal
	RegularPay            decimal.Decimal
	StandardOvertimePay   decimal.Decimal
	PremiumOvertimePay    decimal.Decimal
	TotalOvertimePay      decimal.Decimal
	GrossPay              decimal.Decimal
}

// Deductions - Statutory and manual deductions
type Deductions struct {
	PAYE            decimal.Decimal
	HealthLevy      decimal.Decimal
	SocialSecurity  decimal.Decimal
	HousingLevy     decimal.Decimal
	OtherDeductions decimal.Decimal
	TotalDeductions decimal.Decimal
}

// OvertimeApproval tracks the sign-off required for heavy overtime months.
type OvertimeApproval struct {
	Required     bool
	ApprovedBy   *string
	ApprovedDate *time.Time
	Reason       *string
}

// IsPending reports whether approval is required and not yet given.
func (o OvertimeApproval) IsPending() bool {
	return o.Required && o.ApprovedBy == nil
}

// PaymentDetails - Disbursement tracking
type PaymentDetails struct {
	ReferenceID      *string
	GatewayReference *string
	PaymentDate      *time.Time
	Attempts         int
	FailureReason    *string
}

// PayrollRecord - One employee, one period
type PayrollRecord struct {
	ID               string
	EmployeeID       string
	PeriodStart      time.Time
	PeriodEnd        time.Time
	Attendance       AttendanceSummary
	Compensation     CompensationSnapshot
	Salary           SalaryBreakdown
	Deductions       Deductions
	NetPay           decimal.Decimal
	PaymentStatus    PaymentStatus
	Payment          PaymentDetails
	OvertimeApproval OvertimeApproval
	ApprovedBy       *string
	ApprovedDate     *time.Time
	WorkingDays      int
	LeaveDays        int
	Notes            *string
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// Joined fields
	EmployeeName *string
	EmployeeCode *string
}

// NewPayrollRecord builds a pending record for one period. Call Recompute
// before storing it.
func NewPayrollRecord(id string, profile CompensationProfile, attendance AttendanceSummary, periodStart, periodEnd time.Time) PayrollRecord {
	var name, code *string
	if profile.EmployeeName != "" {
		name = &profile.EmployeeName
	}
	if profile.EmployeeCode != "" {
		code = &profile.EmployeeCode
	}

	return PayrollRecord{
		ID:          id,
		EmployeeID:  profile.EmployeeID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Attendance:  attendance.Rounded(),
		Compensation: CompensationSnapshot{
			BasicSalary:          round(profile.BasicSalary),
			StandardWorkingHours: round(profile.StandardWorkingHours),
			PayoutDestination:    profile.PayoutDestination,
		},
		Deductions:    Deductions{OtherDeductions: decimal.Zero},
		PaymentStatus: PaymentStatusPending,
		WorkingDays:   WorkingDaysBetween(periodStart, periodEnd),
		EmployeeName:  name,
		EmployeeCode:  code,
	}
}

// PaymentReference is the idempotency key sent to the gateway for the
// current attempt.
func (r PayrollRecord) PaymentReference() string {
	return fmt.Sprintf("PAYROLL-%s-%d", r.ID, r.Payment.Attempts)
}

// WorkingDaysBetween counts weekdays from start through end inclusive.
func WorkingDaysBetween(start, end time.Time) int {
	start = truncateDay(start)
	end = truncateDay(end)

	days := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days++
		}
	}
	return days
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// PayrollStatistics - Aggregates over one period
type PayrollStatistics struct {
	PeriodStart             time.Time
	PeriodEnd               time.Time
	TotalRecords            int
	TotalGrossPay           decimal.Decimal
	TotalDeductions         decimal.Decimal
	TotalNetPay             decimal.Decimal
	TotalOvertimePay        decimal.Decimal
	AverageNetPay           decimal.Decimal
	StatusCounts            map[PaymentStatus]int
	OvertimeApprovalPending int
}
