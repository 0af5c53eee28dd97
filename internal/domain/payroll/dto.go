package payroll

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== OPTIONS ==========

// Options are the recognised per-request switches.
type Options struct {
	ValidateOvertime bool `json:"validate_overtime"`
	ForcePayment     bool `json:"force_payment"`
}

// UnmarshalJSON rejects keys other than the recognised options.
func (o *Options) UnmarshalJSON(data []byte) error {
	type plain Options
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var p plain
	if err := dec.Decode(&p); err != nil {
		return fmt.Errorf("%w: %v", ErrUnknownOption, err)
	}
	*o = Options(p)
	return nil
}

// ========== GENERATION DTOs ==========

type GeneratePayrollRequest struct {
	PeriodStart string   `json:"period_start"`
	PeriodEnd   string   `json:"period_end"`
	EmployeeIDs []string `json:"employee_ids,omitempty"` // Empty = all active employees
	Options     Options  `json:"options"`
}

func (r *GeneratePayrollRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.PeriodStart) {
		errs = append(errs, validator.ValidationError{Field: "period_start", Message: "is required"})
	} else if _, ok := validator.IsValidDate(r.PeriodStart); !ok {
		errs = append(errs, validator.ValidationError{Field: "period_start", Message: "must be in YYYY-MM-DD format"})
	}
	if validator.IsEmpty(r.PeriodEnd) {
		errs = append(errs, validator.ValidationError{Field: "period_end", Message: "is required"})
	} else if _, ok := validator.IsValidDate(r.PeriodEnd); !ok {
		errs = append(errs, validator.ValidationError{Field: "period_end", Message: "must be in YYYY-MM-DD format"})
	}
	for i, id := range r.EmployeeIDs {
		if !validator.IsValidUUID(id) {
			errs = append(errs, validator.ValidationError{Field: fmt.Sprintf("employee_ids[%d]", i), Message: "must be a valid UUID"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Period parses the request dates. The start must precede the end.
func (r *GeneratePayrollRequest) Period() (time.Time, time.Time, error) {
	return ParsePeriod(r.PeriodStart, r.PeriodEnd)
}

// ParsePeriod parses two YYYY-MM-DD dates into a payroll period.
func ParsePeriod(start, end string) (time.Time, time.Time, error) {
	periodStart, ok := validator.IsValidDate(start)
	if !ok {
		return time.Time{}, time.Time{}, &Error{Kind: KindInput, Err: ErrInvalidPeriod}
	}
	periodEnd, ok := validator.IsValidDate(end)
	if !ok {
		return time.Time{}, time.Time{}, &Error{Kind: KindInput, Err: ErrInvalidPeriod}
	}
	if !periodStart.Before(periodEnd) {
		return time.Time{}, time.Time{}, &Error{Kind: KindInput, Err: ErrInvalidPeriod}
	}
	return periodStart, periodEnd, nil
}

// MonthPeriod returns the first and last day of a calendar month.
func MonthPeriod(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, -1)
}

type EmployeeFailure struct {
	EmployeeID string    `json:"employee_id"`
	Kind       ErrorKind `json:"kind"`
	Error      string    `json:"error"`
	Violations []string  `json:"violations,omitempty"`
}

type EmployeeWarning struct {
	EmployeeID string   `json:"employee_id"`
	RecordID   string   `json:"record_id"`
	Violations []string `json:"violations"`
}

type GeneratePayrollResponse struct {
	PeriodStart    string                  `json:"period_start"`
	PeriodEnd      string                  `json:"period_end"`
	TotalEmployees int                     `json:"total_employees"`
	Generated      []PayrollRecordResponse `json:"generated"`
	Failed         []EmployeeFailure       `json:"failed"`
	Warnings       []EmployeeWarning       `json:"warnings,omitempty"`
	Aborted        bool                    `json:"aborted,omitempty"`
}

// ========== RECORD DTOs ==========

type AttendanceOverride struct {
	TotalHours    decimal.Decimal `json:"total_hours"`
	RegularHours  decimal.Decimal `json:"regular_hours"`
	OvertimeHours decimal.Decimal `json:"overtime_hours"`
}

type UpdatePayrollRecordRequest struct {
	ID              string
	Notes           *string             `json:"notes,omitempty"`
	OtherDeductions *decimal.Decimal    `json:"other_deductions,omitempty"`
	Attendance      *AttendanceOverride `json:"attendance,omitempty"`
}

func (r *UpdatePayrollRecordRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.OtherDeductions != nil && r.OtherDeductions.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "other_deductions", Message: "must be non-negative"})
	}
	if r.Attendance != nil {
		if r.Attendance.TotalHours.IsNegative() {
			errs = append(errs, validator.ValidationError{Field: "attendance.total_hours", Message: "must be non-negative"})
		}
		if r.Attendance.RegularHours.IsNegative() {
			errs = append(errs, validator.ValidationError{Field: "attendance.regular_hours", Message: "must be non-negative"})
		}
		if r.Attendance.OvertimeHours.IsNegative() {
			errs = append(errs, validator.ValidationError{Field: "attendance.overtime_hours", Message: "must be non-negative"})
		}
	}
	if r.Notes == nil && r.OtherDeductions == nil && r.Attendance == nil {
		errs = append(errs, validator.ValidationError{Field: "body", Message: "at least one field must be provided"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Edit converts the request into a domain edit.
func (r *UpdatePayrollRecordRequest) Edit() RecordEdit {
	edit := RecordEdit{
		Notes:           r.Notes,
		OtherDeductions: r.OtherDeductions,
	}
	if r.Attendance != nil {
		edit.Attendance = &AttendanceSummary{
			TotalHours:    r.Attendance.TotalHours,
			RegularHours:  r.Attendance.RegularHours,
			OvertimeHours: r.Attendance.OvertimeHours,
		}
	}
	return edit
}

type ApproveOvertimeRequest struct {
	RecordID string  `json:"-"`
	AdminID  string  `json:"-"`
	Reason   *string `json:"reason,omitempty"`
}

type SignOffRequest struct {
	RecordID string `json:"-"`
	AdminID  string `json:"-"`
}

func validateActor(recordID, adminID string) error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(recordID) {
		errs = append(errs, validator.ValidationError{Field: "id", Message: "is required"})
	}
	if validator.IsEmpty(adminID) {
		errs = append(errs, validator.ValidationError{Field: "admin_id", Message: "is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (r *ApproveOvertimeRequest) Validate() error {
	return validateActor(r.RecordID, r.AdminID)
}

func (r *SignOffRequest) Validate() error {
	return validateActor(r.RecordID, r.AdminID)
}

// ========== PAYMENT DTOs ==========

type SubmitPaymentRequest struct {
	RecordID string  `json:"-"`
	Options  Options `json:"options"`
}

type ProcessPaymentsRequest struct {
	RecordIDs []string `json:"record_ids"`
	Options   Options  `json:"options"`
}

func (r *ProcessPaymentsRequest) Validate() error {
	var errs validator.ValidationErrors

	if len(r.RecordIDs) == 0 {
		errs = append(errs, validator.ValidationError{Field: "record_ids", Message: "at least one record is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type RecordFailure struct {
	RecordID   string    `json:"record_id"`
	Kind       ErrorKind `json:"kind"`
	Error      string    `json:"error"`
	Violations []string  `json:"violations,omitempty"`
}

type ProcessPaymentsResponse struct {
	Successful []PayrollRecordResponse `json:"successful"`
	Failed     []RecordFailure         `json:"failed"`
}

type UpdatePaymentStatusRequest struct {
	RecordID         string  `json:"-"`
	AdminID          string  `json:"-"`
	Status           string  `json:"status"`
	GatewayReference *string `json:"gateway_reference,omitempty"`
	FailureReason    *string `json:"failure_reason,omitempty"`
	Notes            *string `json:"notes,omitempty"`
}

func (r *UpdatePaymentStatusRequest) Validate() error {
	var errs validator.ValidationErrors

	if !PaymentStatus(r.Status).IsValid() {
		errs = append(errs, validator.ValidationError{Field: "status", Message: "must be one of pending, processing, paid, failed, cancelled"})
	}
	if validator.IsEmpty(r.AdminID) {
		errs = append(errs, validator.ValidationError{Field: "admin_id", Message: "is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// GatewayCallback is a normalised asynchronous payment outcome.
type GatewayCallback struct {
	ReferenceID      string
	GatewayReference string
	Status           GatewayStatus
	FailureReason    string
}

// ========== QUERY DTOs ==========

type PayrollFilter struct {
	EmployeeID  *string `json:"employee_id,omitempty"`
	Status      *string `json:"status,omitempty"`
	PeriodStart *string `json:"period_start,omitempty"`
	PeriodEnd   *string `json:"period_end,omitempty"`
	Page        int     `json:"page"`
	Limit       int     `json:"limit"`
}

func (f *PayrollFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Status != nil && !PaymentStatus(*f.Status).IsValid() {
		errs = append(errs, validator.ValidationError{Field: "status", Message: "is not a valid payment status"})
	}
	if f.PeriodStart != nil {
		if _, ok := validator.IsValidDate(*f.PeriodStart); !ok {
			errs = append(errs, validator.ValidationError{Field: "period_start", Message: "must be in YYYY-MM-DD format"})
		}
	}
	if f.PeriodEnd != nil {
		if _, ok := validator.IsValidDate(*f.PeriodEnd); !ok {
			errs = append(errs, validator.ValidationError{Field: "period_end", Message: "must be in YYYY-MM-DD format"})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
	return nil
}

type ListPayrollRecordResponse struct {
	Data       []PayrollRecordResponse `json:"data"`
	TotalCount int64                   `json:"total_count"`
	Page       int                     `json:"page"`
	Limit      int                     `json:"limit"`
	TotalPages int                     `json:"total_pages"`
}

// ========== RESPONSE DTOs ==========

type AttendanceResponse struct {
	TotalHours    decimal.Decimal `json:"total_hours"`
	RegularHours  decimal.Decimal `json:"regular_hours"`
	OvertimeHours decimal.Decimal `json:"overtime_hours"`
}

type SalaryResponse struct {
	BasicSalary           decimal.Decimal `json:"basic_salary"`
	StandardWorkingHours  decimal.Decimal `json:"standard_working_hours"`
	HourlyRate            decimal.Decimal `json:"hourly_rate"`
	StandardOvertimeRate  decimal.Decimal `json:"standard_overtime_rate"`
	PremiumOvertimeRate   decimal.Decimal `json:"premium_overtime_rate"`
	StandardOvertimeHours decimal.Decimal `json:"standard_overtime_hours"`
	PremiumOvertimeHours  decimal.Decimal `json:"premium_overtime_hours"`
	RegularPay            decimal.Decimal `json:"regular_pay"`
	StandardOvertimePay   decimal.Decimal `json:"standard_overtime_pay"`
	PremiumOvertimePay    decimal.Decimal `json:"premium_overtime_pay"`
	TotalOvertimePay      decimal.Decimal `json:"total_overtime_pay"`
	GrossPay              decimal.Decimal `json:"gross_pay"`
}

type DeductionsResponse struct {
	PAYE            decimal.Decimal `json:"paye"`
	NHIF            decimal.Decimal `json:"nhif"`
	NSSF            decimal.Decimal `json:"nssf"`
	HousingLevy     decimal.Decimal `json:"housing_levy"`
	OtherDeductions decimal.Decimal `json:"other_deductions"`
	TotalDeductions decimal.Decimal `json:"total_deductions"`
}

type PaymentResponse struct {
	ReferenceID      *string `json:"reference_id,omitempty"`
	GatewayReference *string `json:"gateway_reference,omitempty"`
	PaymentDate      *string `json:"payment_date,omitempty"`
	Attempts         int     `json:"attempts"`
	FailureReason    *string `json:"failure_reason,omitempty"`
}

type OvertimeApprovalResponse struct {
	Required     bool    `json:"required"`
	ApprovedBy   *string `json:"approved_by,omitempty"`
	ApprovedDate *string `json:"approved_date,omitempty"`
	Reason       *string `json:"reason,omitempty"`
}

type PayrollRecordResponse struct {
	ID               string                   `json:"id"`
	EmployeeID       string                   `json:"employee_id"`
	EmployeeName     *string                  `json:"employee_name,omitempty"`
	EmployeeCode     *string                  `json:"employee_code,omitempty"`
	PeriodStart      string                   `json:"period_start"`
	PeriodEnd        string                   `json:"period_end"`
	Attendance       AttendanceResponse       `json:"attendance"`
	Salary           SalaryResponse           `json:"salary"`
	Deductions       DeductionsResponse       `json:"deductions"`
	NetPay           decimal.Decimal          `json:"net_pay"`
	PaymentStatus    PaymentStatus            `json:"payment_status"`
	Payment          PaymentResponse          `json:"payment"`
	OvertimeApproval OvertimeApprovalResponse `json:"overtime_approval"`
	ApprovedBy       *string                  `json:"approved_by,omitempty"`
	ApprovedDate     *string                  `json:"approved_date,omitempty"`
	WorkingDays      int                      `json:"working_days"`
	LeaveDays        int                      `json:"leave_days"`
	Notes            *string                  `json:"notes,omitempty"`
	Version          int                      `json:"version"`
	CreatedAt        string                   `json:"created_at"`
	UpdatedAt        string                   `json:"updated_at"`
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

// ToResponse maps a record to its API representation.
func ToResponse(r PayrollRecord) PayrollRecordResponse {
	return PayrollRecordResponse{
		ID:           r.ID,
		EmployeeID:   r.EmployeeID,
		EmployeeName: r.EmployeeName,
		EmployeeCode: r.EmployeeCode,
		PeriodStart:  r.PeriodStart.Format(time.DateOnly),
		PeriodEnd:    r.PeriodEnd.Format(time.DateOnly),
		Attendance: AttendanceResponse{
			TotalHours:    r.Attendance.TotalHours,
			RegularHours:  r.Attendance.RegularHours,
			OvertimeHours: r.Attendance.OvertimeHours,
		},
		Salary: SalaryResponse{
			BasicSalary:           r.Compensation.BasicSalary,
			StandardWorkingHours:  r.Compensation.StandardWorkingHours,
			HourlyRate:            r.Salary.HourlyRate,
			StandardOvertimeRate:  r.Salary.StandardOvertimeRate,
			PremiumOvertimeRate:   r.Salary.PremiumOvertimeRate,
			StandardOvertimeHours: r.Salary.StandardOvertimeHours,
			PremiumOvertimeHours:  r.Salary.PremiumOvertimeHours,
			RegularPay:            r.Salary.RegularPay,
			StandardOvertimePay:   r.Salary.StandardOvertimePay,
			PremiumOvertimePay:    r.Salary.PremiumOvertimePay,
			TotalOvertimePay:      r.Salary.TotalOvertimePay,
			GrossPay:              r.Salary.GrossPay,
		},
		Deductions: DeductionsResponse{
			PAYE:            r.Deductions.PAYE,
			NHIF:            r.Deductions.HealthLevy,
			NSSF:            r.Deductions.SocialSecurity,
			HousingLevy:     r.Deductions.HousingLevy,
			OtherDeductions: r.Deductions.OtherDeductions,
			TotalDeductions: r.Deductions.TotalDeductions,
		},
		NetPay:        r.NetPay,
		PaymentStatus: r.PaymentStatus,
		Payment: PaymentResponse{
			ReferenceID:      r.Payment.ReferenceID,
			GatewayReference: r.Payment.GatewayReference,
			PaymentDate:      formatTime(r.Payment.PaymentDate),
			Attempts:         r.Payment.Attempts,
			FailureReason:    r.Payment.FailureReason,
		},
		OvertimeApproval: OvertimeApprovalResponse{
			Required:     r.OvertimeApproval.Required,
			ApprovedBy:   r.OvertimeApproval.ApprovedBy,
			ApprovedDate: formatTime(r.OvertimeApproval.ApprovedDate),
			Reason:       r.OvertimeApproval.Reason,
		},
		ApprovedBy:   r.ApprovedBy,
		ApprovedDate: formatTime(r.ApprovedDate),
		WorkingDays:  r.WorkingDays,
		LeaveDays:    r.LeaveDays,
		Notes:        r.Notes,
		Version:      r.Version,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    r.UpdatedAt.Format(time.RFC3339),
	}
}

// PayslipLine is one labelled amount on a payslip.
type PayslipLine struct {
	Label  string          `json:"label"`
	Hours  *string         `json:"hours,omitempty"`
	Rate   *string         `json:"rate,omitempty"`
	Amount decimal.Decimal `json:"amount"`
}

type PayslipResponse struct {
	RecordID        string          `json:"record_id"`
	EmployeeID      string          `json:"employee_id"`
	EmployeeName    *string         `json:"employee_name,omitempty"`
	EmployeeCode    *string         `json:"employee_code,omitempty"`
	PeriodStart     string          `json:"period_start"`
	PeriodEnd       string          `json:"period_end"`
	WorkingDays     int             `json:"working_days"`
	LeaveDays       int             `json:"leave_days"`
	Earnings        []PayslipLine   `json:"earnings"`
	Deductions      []PayslipLine   `json:"deductions"`
	GrossPay        decimal.Decimal `json:"gross_pay"`
	TotalDeductions decimal.Decimal `json:"total_deductions"`
	NetPay          decimal.Decimal `json:"net_pay"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	PaymentDate     *string         `json:"payment_date,omitempty"`
}

func hoursAt(hours, rate decimal.Decimal) (*string, *string) {
	h := hours.StringFixed(2)
	r := rate.StringFixed(2)
	return &h, &r
}

// ToPayslip lays a record out as a payslip.
func ToPayslip(r PayrollRecord) PayslipResponse {
	regularHours, regularRate := hoursAt(r.Salary.PaidRegularHours, r.Salary.HourlyRate)
	stdHours, stdRate := hoursAt(r.Salary.StandardOvertimeHours, r.Salary.StandardOvertimeRate)
	premHours, premRate := hoursAt(r.Salary.PremiumOvertimeHours, r.Salary.PremiumOvertimeRate)

	earnings := []PayslipLine{
		{Label: "Regular pay", Hours: regularHours, Rate: regularRate, Amount: r.Salary.RegularPay},
	}
	if r.Salary.StandardOvertimePay.IsPositive() {
		earnings = append(earnings, PayslipLine{Label: "Overtime (1.5x)", Hours: stdHours, Rate: stdRate, Amount: r.Salary.StandardOvertimePay})
	}
	if r.Salary.PremiumOvertimePay.IsPositive() {
		earnings = append(earnings, PayslipLine{Label: "Overtime (2.0x)", Hours: premHours, Rate: premRate, Amount: r.Salary.PremiumOvertimePay})
	}

	deductions := []PayslipLine{
		{Label: "PAYE", Amount: r.Deductions.PAYE},
		{Label: "NHIF", Amount: r.Deductions.HealthLevy},
		{Label: "NSSF", Amount: r.Deductions.SocialSecurity},
		{Label: "Housing levy", Amount: r.Deductions.HousingLevy},
	}
	if r.Deductions.OtherDeductions.IsPositive() {
		deductions = append(deductions, PayslipLine{Label: "Other deductions", Amount: r.Deductions.OtherDeductions})
	}

	return PayslipResponse{
		RecordID:        r.ID,
		EmployeeID:      r.EmployeeID,
		EmployeeName:    r.EmployeeName,
		EmployeeCode:    r.EmployeeCode,
		PeriodStart:     r.PeriodStart.Format(time.DateOnly),
		PeriodEnd:       r.PeriodEnd.Format(time.DateOnly),
		WorkingDays:     r.WorkingDays,
		LeaveDays:       r.LeaveDays,
		Earnings:        earnings,
		Deductions:      deductions,
		GrossPay:        r.Salary.GrossPay,
		TotalDeductions: r.Deductions.TotalDeductions,
		NetPay:          r.NetPay,
		PaymentStatus:   r.PaymentStatus,
		PaymentDate:     formatTime(r.Payment.PaymentDate),
	}
}

type PayrollStatisticsResponse struct {
	PeriodStart             string                `json:"period_start"`
	PeriodEnd               string                `json:"period_end"`
	TotalRecords            int                   `json:"total_records"`
	TotalGrossPay           decimal.Decimal       `json:"total_gross_pay"`
	TotalDeductions         decimal.Decimal       `json:"total_deductions"`
	TotalNetPay             decimal.Decimal       `json:"total_net_pay"`
	TotalOvertimePay        decimal.Decimal       `json:"total_overtime_pay"`
	AverageNetPay           decimal.Decimal       `json:"average_net_pay"`
	StatusCounts            map[PaymentStatus]int `json:"status_counts"`
	OvertimeApprovalPending int                   `json:"overtime_approval_pending"`
}

type OvertimeTierResponse struct {
	MaxHours       decimal.Decimal `json:"max_hours"`
	RateMultiplier decimal.Decimal `json:"rate_multiplier"`
	Description    string          `json:"description"`
}

type OvertimePolicyResponse struct {
	StandardTier              OvertimeTierResponse `json:"standard_tier"`
	PremiumTier               OvertimeTierResponse `json:"premium_tier"`
	ApprovalThresholdHours    decimal.Decimal      `json:"approval_threshold_hours"`
	WeeklyHoursLimit          decimal.Decimal      `json:"weekly_hours_limit"`
	PremiumOvertimeLimitHours decimal.Decimal      `json:"premium_overtime_limit_hours"`
	UnpaidBeyondHours         decimal.Decimal      `json:"unpaid_beyond_hours"`
}
