package payroll

import (
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/overtime"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/statutory"
	"github.com/shopspring/decimal"
)

// Policy holds the tunable payroll limits.
type Policy struct {
	Overtime                       overtime.Policy
	DefaultStandardWorkingHours    decimal.Decimal
	OvertimeApprovalThresholdHours decimal.Decimal
	WeeklyHoursLimit               decimal.Decimal
	WeeksPerPeriod                 decimal.Decimal
	PremiumOvertimeLimitHours      decimal.Decimal
	MinimumBasicSalary             decimal.Decimal
}

// DefaultPolicy returns the limits used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		Overtime:                       overtime.DefaultPolicy(),
		DefaultStandardWorkingHours:    decimal.NewFromInt(160),
		OvertimeApprovalThresholdHours: decimal.NewFromInt(30),
		WeeklyHoursLimit:               decimal.NewFromInt(60),
		WeeksPerPeriod:                 decimal.NewFromInt(4),
		PremiumOvertimeLimitHours:      decimal.NewFromInt(15),
		MinimumBasicSalary:             decimal.NewFromInt(15000),
	}
}

// MoneyPlaces is the number of decimal places stored for every amount.
const MoneyPlaces = 2

func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// Recompute derives every salary and deduction field from the compensation
// snapshot, the attendance summary and OtherDeductions. It is deterministic:
// running it twice on the same inputs yields identical fields.
//
// Intermediate values stay unrounded; each stored component is rounded once.
// Gross pay is the sum of the stored components so the breakdown always adds up.
func (r *PayrollRecord) Recompute(p Policy) {
	standardHours := r.Compensation.StandardWorkingHours
	if !standardHours.IsPositive() {
		standardHours = p.DefaultStandardWorkingHours
		r.Compensation.StandardWorkingHours = standardHours
	}

	hourlyRate := r.Compensation.BasicSalary.Div(standardHours)
	standardRate, premiumRate := overtime.RatesFromHourly(hourlyRate)

	paidRegularHours := decimal.Min(r.Attendance.RegularHours, standardHours)
	if paidRegularHours.IsNegative() {
		paidRegularHours = decimal.Zero
	}
	split := p.Overtime.Allocate(r.Attendance.OvertimeHours)

	regularPay := round(paidRegularHours.Mul(hourlyRate))
	standardOvertimePay := round(split.StandardHours.Mul(standardRate))
	premiumOvertimePay := round(split.PremiumHours.Mul(premiumRate))
	totalOvertimePay := standardOvertimePay.Add(premiumOvertimePay)
	grossPay := regularPay.Add(totalOvertimePay)

	r.Salary = SalaryBreakdown{
		HourlyRate:            round(hourlyRate),
		StandardOvertimeRate:  round(standardRate),
		PremiumOvertimeRate:   round(premiumRate),
		PaidRegularHours:      paidRegularHours,
		StandardOvertimeHours: split.StandardHours,
		PremiumOvertimeHours:  split.PremiumHours,
		RegularPay:            regularPay,
		StandardOvertimePay:   standardOvertimePay,
		PremiumOvertimePay:    premiumOvertimePay,
		TotalOvertimePay:      totalOvertimePay,
		GrossPay:              grossPay,
	}

	if r.Attendance.OvertimeHours.GreaterThan(p.OvertimeApprovalThresholdHours) {
		r.OvertimeApproval.Required = true
	}

	statutoryDeductions := statutory.Compute(grossPay)
	d := Deductions{
		PAYE:            round(statutoryDeductions.PAYE),
		HealthLevy:      round(statutoryDeductions.HealthLevy),
		SocialSecurity:  round(statutoryDeductions.SocialSecurity),
		HousingLevy:     round(statutoryDeductions.HousingLevy),
		OtherDeductions: round(r.Deductions.OtherDeductions),
	}
	d.TotalDeductions = d.PAYE.Add(d.HealthLevy).Add(d.SocialSecurity).Add(d.HousingLevy).Add(d.OtherDeductions)
	r.Deductions = d

	netPay := grossPay.Sub(d.TotalDeductions)
	if netPay.IsNegative() {
		netPay = decimal.Zero
	}
	r.NetPay = netPay
}

// ValidateWorkingHours checks the record against the labour limits and
// returns one human-readable message per violation, or nil.
func (r PayrollRecord) ValidateWorkingHours(p Policy) []string {
	var violations []string

	totalHours := decimal.Max(r.Attendance.TotalHours, r.Attendance.RegularHours.Add(r.Attendance.OvertimeHours))
	weeklyHours := totalHours.Div(p.WeeksPerPeriod)
	if weeklyHours.GreaterThan(p.WeeklyHoursLimit) {
		violations = append(violations, fmt.Sprintf(
			"weekly hours (%s) exceed legal limit of %s hours",
			weeklyHours.StringFixed(1), p.WeeklyHoursLimit.String(),
		))
	}

	if r.Attendance.OvertimeHours.GreaterThan(p.OvertimeApprovalThresholdHours) && r.OvertimeApproval.ApprovedBy == nil {
		violations = append(violations, fmt.Sprintf(
			"overtime (%s hours) exceeds %s hours and requires admin approval",
			r.Attendance.OvertimeHours.String(), p.OvertimeApprovalThresholdHours.String(),
		))
	}

	premiumHours := p.Overtime.Allocate(r.Attendance.OvertimeHours).PremiumHours
	if premiumHours.GreaterThan(p.PremiumOvertimeLimitHours) {
		violations = append(violations, fmt.Sprintf(
			"premium overtime (%s hours) exceeds recommended limit of %s hours",
			premiumHours.String(), p.PremiumOvertimeLimitHours.String(),
		))
	}

	return violations
}

// UnpaidOvertimeHours returns overtime beyond both paid tiers.
func (r PayrollRecord) UnpaidOvertimeHours(p Policy) decimal.Decimal {
	return p.Overtime.Allocate(r.Attendance.OvertimeHours).Unpaid(r.Attendance.OvertimeHours)
}
