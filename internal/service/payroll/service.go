package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/overtime"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxUpdateAttempts bounds the reload-and-retry loop on version conflicts.
const maxUpdateAttempts = 3

type Config struct {
	Policy   payroll.Policy
	Currency string
}

type PayrollServiceImpl struct {
	payrollRepo payroll.PayrollRepository
	directory   payroll.EmployeeDirectory
	attendance  payroll.AttendanceSource
	leaves      payroll.LeaveSource
	gateway     payroll.PaymentGateway
	notifier    payroll.Notifier
	policy      payroll.Policy
	currency    string
	now         func() time.Time
}

func NewPayrollService(
	payrollRepo payroll.PayrollRepository,
	directory payroll.EmployeeDirectory,
	attendance payroll.AttendanceSource,
	leaves payroll.LeaveSource,
	gateway payroll.PaymentGateway,
	notifier payroll.Notifier,
	cfg Config,
) payroll.PayrollService {
	if cfg.Currency == "" {
		cfg.Currency = "KES"
	}
	return &PayrollServiceImpl{
		payrollRepo: payrollRepo,
		directory:   directory,
		attendance:  attendance,
		leaves:      leaves,
		gateway:     gateway,
		notifier:    notifier,
		policy:      cfg.Policy,
		currency:    cfg.Currency,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ========== GENERATION ==========

func (s *PayrollServiceImpl) GeneratePayroll(ctx context.Context, req payroll.GeneratePayrollRequest) (payroll.GeneratePayrollResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.GeneratePayrollResponse{}, err
	}
	periodStart, periodEnd, err := req.Period()
	if err != nil {
		return payroll.GeneratePayrollResponse{}, err
	}

	resp := payroll.GeneratePayrollResponse{
		PeriodStart: periodStart.Format(time.DateOnly),
		PeriodEnd:   periodEnd.Format(time.DateOnly),
		Generated:   []payroll.PayrollRecordResponse{},
		Failed:      []payroll.EmployeeFailure{},
	}

	profiles, failures, err := s.resolveRoster(ctx, req.EmployeeIDs)
	if err != nil {
		return payroll.GeneratePayrollResponse{}, err
	}
	resp.Failed = append(resp.Failed, failures...)
	resp.TotalEmployees = len(profiles) + len(failures)

	for _, profile := range profiles {
		if ctx.Err() != nil {
			resp.Aborted = true
			slog.Warn("Payroll generation aborted", "period_start", resp.PeriodStart, "generated", len(resp.Generated), "error", ctx.Err())
			break
		}

		record, warnings, err := s.generateForEmployee(ctx, profile, periodStart, periodEnd, req.Options)
		if err != nil {
			slog.Warn("Payroll generation failed for employee",
				"employee_id", profile.EmployeeID,
				"period_start", resp.PeriodStart,
				"kind", payroll.KindOf(err),
				"error", err)
			resp.Failed = append(resp.Failed, employeeFailure(profile.EmployeeID, err))
			continue
		}

		resp.Generated = append(resp.Generated, payroll.ToResponse(record))
		if len(warnings) > 0 {
			resp.Warnings = append(resp.Warnings, payroll.EmployeeWarning{
				EmployeeID: record.EmployeeID,
				RecordID:   record.ID,
				Violations: warnings,
			})
		}
		s.notify(ctx, payroll.EventPayrollGenerated, record, "Your payroll for the period has been generated")
	}

	slog.Info("Payroll generated",
		"period_start", resp.PeriodStart,
		"period_end", resp.PeriodEnd,
		"generated", len(resp.Generated),
		"failed", len(resp.Failed))

	return resp, nil
}

// resolveRoster returns the profiles to price. Explicit IDs that cannot be
// resolved become failures rather than aborting the batch.
func (s *PayrollServiceImpl) resolveRoster(ctx context.Context, employeeIDs []string) ([]payroll.CompensationProfile, []payroll.EmployeeFailure, error) {
	if len(employeeIDs) == 0 {
		profiles, err := s.directory.ListActiveEmployees(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list active employees: %w", err)
		}
		return profiles, nil, nil
	}

	var (
		profiles []payroll.CompensationProfile
		failures []payroll.EmployeeFailure
	)
	seen := make(map[string]struct{}, len(employeeIDs))
	for _, id := range employeeIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		profile, err := s.directory.GetCompensationProfile(ctx, id)
		if err != nil {
			if errors.Is(err, payroll.ErrEmployeeNotFound) {
				err = &payroll.Error{Kind: payroll.KindNotFound, EmployeeID: id, Err: err}
			}
			failures = append(failures, employeeFailure(id, err))
			continue
		}
		profiles = append(profiles, profile)
	}
	return profiles, failures, nil
}

func (s *PayrollServiceImpl) generateForEmployee(
	ctx context.Context,
	profile payroll.CompensationProfile,
	periodStart, periodEnd time.Time,
	opts payroll.Options,
) (payroll.PayrollRecord, []string, error) {
	inputErr := func(err error) error {
		return payroll.NewError(payroll.KindInput, err, profile.EmployeeID, periodStart, periodEnd)
	}

	if !profile.IsActive() {
		return payroll.PayrollRecord{}, nil, inputErr(payroll.ErrEmployeeInactive)
	}
	if !profile.BasicSalary.IsPositive() {
		return payroll.PayrollRecord{}, nil, inputErr(payroll.ErrInvalidBasicSalary)
	}
	if profile.BasicSalary.LessThan(s.policy.MinimumBasicSalary) {
		return payroll.PayrollRecord{}, nil, inputErr(payroll.ErrBelowMinimumSalary)
	}

	summary, err := s.attendance.GetAttendanceSummary(ctx, profile.EmployeeID, periodStart, periodEnd)
	if err != nil {
		return payroll.PayrollRecord{}, nil, fmt.Errorf("failed to get attendance summary: %w", err)
	}
	if err := summary.Validate(); err != nil {
		return payroll.PayrollRecord{}, nil, inputErr(err)
	}

	leaveDays := 0
	if s.leaves != nil {
		leaveDays, err = s.leaves.CountApprovedLeaveDays(ctx, profile.EmployeeID, periodStart, periodEnd)
		if err != nil {
			slog.Warn("Failed to count approved leave days", "employee_id", profile.EmployeeID, "error", err)
			leaveDays = 0
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return payroll.PayrollRecord{}, nil, fmt.Errorf("failed to generate payroll record id: %w", err)
	}

	record := payroll.NewPayrollRecord(id.String(), profile, summary, periodStart, periodEnd)
	record.LeaveDays = leaveDays
	record.Recompute(s.policy)

	var warnings []string
	if opts.ValidateOvertime {
		warnings = record.ValidateWorkingHours(s.policy)
	}

	created, err := s.payrollRepo.Create(ctx, record)
	if err != nil {
		if errors.Is(err, payroll.ErrRecordAlreadyExists) {
			return payroll.PayrollRecord{}, nil, payroll.NewError(payroll.KindConflict, err, profile.EmployeeID, periodStart, periodEnd)
		}
		return payroll.PayrollRecord{}, nil, fmt.Errorf("failed to create payroll record: %w", err)
	}
	return created, warnings, nil
}

func employeeFailure(employeeID string, err error) payroll.EmployeeFailure {
	return payroll.EmployeeFailure{
		EmployeeID: employeeID,
		Kind:       payroll.KindOf(err),
		Error:      err.Error(),
		Violations: payroll.ViolationsOf(err),
	}
}

// ========== RECORDS ==========

func (s *PayrollServiceImpl) GetPayrollRecord(ctx context.Context, id string) (payroll.PayrollRecordResponse, error) {
	record, err := s.payrollRepo.GetByID(ctx, id)
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}
	return payroll.ToResponse(record), nil
}

func (s *PayrollServiceImpl) GetPayslip(ctx context.Context, id string) (payroll.PayslipResponse, error) {
	record, err := s.payrollRepo.GetByID(ctx, id)
	if err != nil {
		return payroll.PayslipResponse{}, err
	}
	return payroll.ToPayslip(record), nil
}

func (s *PayrollServiceImpl) ListPayrollRecords(ctx context.Context, filter payroll.PayrollFilter) (payroll.ListPayrollRecordResponse, error) {
	if err := filter.Validate(); err != nil {
		return payroll.ListPayrollRecordResponse{}, err
	}

	records, total, err := s.payrollRepo.List(ctx, filter)
	if err != nil {
		return payroll.ListPayrollRecordResponse{}, err
	}

	data := make([]payroll.PayrollRecordResponse, 0, len(records))
	for _, r := range records {
		data = append(data, payroll.ToResponse(r))
	}

	return payroll.ListPayrollRecordResponse{
		Data:       data,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
	}, nil
}

func (s *PayrollServiceImpl) UpdatePayrollRecord(ctx context.Context, req payroll.UpdatePayrollRecordRequest) (payroll.PayrollRecordResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	updated, err := s.mutate(ctx, req.ID, func(r *payroll.PayrollRecord) error {
		return r.ApplyEdit(req.Edit(), s.policy)
	})
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}
	return payroll.ToResponse(updated), nil
}

func (s *PayrollServiceImpl) ValidateWorkingHours(ctx context.Context, id string) ([]string, error) {
	record, err := s.payrollRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	violations := record.ValidateWorkingHours(s.policy)
	if violations == nil {
		violations = []string{}
	}
	return violations, nil
}

// ========== APPROVALS ==========

func (s *PayrollServiceImpl) ApproveOvertime(ctx context.Context, req payroll.ApproveOvertimeRequest) (payroll.PayrollRecordResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	updated, err := s.mutate(ctx, req.RecordID, func(r *payroll.PayrollRecord) error {
		return r.ApproveOvertime(req.AdminID, req.Reason, s.now())
	})
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	slog.Info("Overtime approved", "record_id", updated.ID, "employee_id", updated.EmployeeID, "admin_id", req.AdminID)
	s.notify(ctx, payroll.EventOvertimeApproved, updated, "Your overtime for the period has been approved")
	return payroll.ToResponse(updated), nil
}

func (s *PayrollServiceImpl) SignOff(ctx context.Context, req payroll.SignOffRequest) (payroll.PayrollRecordResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	updated, err := s.mutate(ctx, req.RecordID, func(r *payroll.PayrollRecord) error {
		return r.SignOff(req.AdminID, s.now())
	})
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}
	return payroll.ToResponse(updated), nil
}

// ========== STATE HELPERS ==========

// mutate loads the record fresh, applies fn and writes it back under the
// version check. On a version conflict the record is reloaded and fn is
// re-applied, so its preconditions are always checked against current state.
func (s *PayrollServiceImpl) mutate(ctx context.Context, id string, fn func(r *payroll.PayrollRecord) error) (payroll.PayrollRecord, error) {
	var (
		lastErr    error
		lastLoaded payroll.PayrollRecord
	)
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		record, err := s.payrollRepo.GetByID(ctx, id)
		if err != nil {
			return payroll.PayrollRecord{}, err
		}
		lastLoaded = record
		if err := fn(&record); err != nil {
			return payroll.PayrollRecord{}, err
		}

		updated, err := s.payrollRepo.Update(ctx, record)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, payroll.ErrConcurrentModification) {
			return payroll.PayrollRecord{}, err
		}
		lastErr = err
		slog.Debug("Payroll record version conflict, retrying", "record_id", id, "attempt", attempt+1)
	}
	return payroll.PayrollRecord{}, payroll.NewError(payroll.KindConflict, lastErr, lastLoaded.EmployeeID, lastLoaded.PeriodStart, lastLoaded.PeriodEnd)
}

func (s *PayrollServiceImpl) notify(ctx context.Context, eventType payroll.EventType, record payroll.PayrollRecord, message string) {
	if s.notifier == nil {
		return
	}
	event := payroll.NewEvent(eventType, record, message, s.now())
	if err := s.notifier.Notify(ctx, event); err != nil {
		slog.Warn("Failed to send payroll notification",
			"event", eventType,
			"record_id", record.ID,
			"employee_id", record.EmployeeID,
			"error", err)
	}
}

// ========== REPORTING ==========

func (s *PayrollServiceImpl) GetStatistics(ctx context.Context, periodStart, periodEnd string) (payroll.PayrollStatisticsResponse, error) {
	start, end, err := payroll.ParsePeriod(periodStart, periodEnd)
	if err != nil {
		return payroll.PayrollStatisticsResponse{}, err
	}

	stats, err := s.payrollRepo.GetStatistics(ctx, start, end)
	if err != nil {
		return payroll.PayrollStatisticsResponse{}, err
	}

	counts := make(map[payroll.PaymentStatus]int, len(payroll.AllPaymentStatuses))
	for _, status := range payroll.AllPaymentStatuses {
		counts[status] = stats.StatusCounts[status]
	}

	average := decimal.Zero
	if stats.TotalRecords > 0 {
		average = stats.TotalNetPay.Div(decimal.NewFromInt(int64(stats.TotalRecords))).Round(payroll.MoneyPlaces)
	}

	return payroll.PayrollStatisticsResponse{
		PeriodStart:             start.Format(time.DateOnly),
		PeriodEnd:               end.Format(time.DateOnly),
		TotalRecords:            stats.TotalRecords,
		TotalGrossPay:           stats.TotalGrossPay,
		TotalDeductions:         stats.TotalDeductions,
		TotalNetPay:             stats.TotalNetPay,
		TotalOvertimePay:        stats.TotalOvertimePay,
		AverageNetPay:           average,
		StatusCounts:            counts,
		OvertimeApprovalPending: stats.OvertimeApprovalPending,
	}, nil
}

func (s *PayrollServiceImpl) GetOvertimePolicy(ctx context.Context) payroll.OvertimePolicyResponse {
	p := s.policy
	return payroll.OvertimePolicyResponse{
		StandardTier: payroll.OvertimeTierResponse{
			MaxHours:       p.Overtime.StandardTierCapHours,
			RateMultiplier: overtime.StandardRateMultiplier,
			Description:    fmt.Sprintf("First %s overtime hours paid at %sx the hourly rate", p.Overtime.StandardTierCapHours, overtime.StandardRateMultiplier),
		},
		PremiumTier: payroll.OvertimeTierResponse{
			MaxHours:       p.Overtime.PremiumTierCapHours,
			RateMultiplier: overtime.PremiumRateMultiplier,
			Description:    fmt.Sprintf("Next %s overtime hours paid at %sx the hourly rate", p.Overtime.PremiumTierCapHours, overtime.PremiumRateMultiplier.StringFixed(1)),
		},
		ApprovalThresholdHours:    p.OvertimeApprovalThresholdHours,
		WeeklyHoursLimit:          p.WeeklyHoursLimit,
		PremiumOvertimeLimitHours: p.PremiumOvertimeLimitHours,
		UnpaidBeyondHours:         p.Overtime.MaxPaidHours(),
	}
}
