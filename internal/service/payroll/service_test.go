package payroll

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	empAchieng = "0192f5a4-1b2c-7d3e-8f40-000000000001"
	empBaraka  = "0192f5a4-1b2c-7d3e-8f40-000000000002"
	empChebet  = "0192f5a4-1b2c-7d3e-8f40-000000000003"
	empDaudi   = "0192f5a4-1b2c-7d3e-8f40-000000000004"
)

var fixedNow = time.Date(2024, time.April, 2, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	svc        *PayrollServiceImpl
	repo       *fakePayrollRepo
	directory  *fakeDirectory
	attendance *fakeAttendance
	leaves     *fakeLeaves
	gateway    *fakeGateway
	notifier   *fakeNotifier
}

func profile(id, basic string) payroll.CompensationProfile {
	return payroll.CompensationProfile{
		EmployeeID:           id,
		EmployeeName:         "Employee " + id[len(id)-1:],
		BasicSalary:          decimal.RequireFromString(basic),
		StandardWorkingHours: decimal.NewFromInt(160),
		PayoutDestination:    "0712345678",
		Status:               payroll.EmployeeStatusActive,
	}
}

func hours(regular, overtimeHours int64) payroll.AttendanceSummary {
	return payroll.AttendanceSummary{
		TotalHours:    decimal.NewFromInt(regular + overtimeHours),
		RegularHours:  decimal.NewFromInt(regular),
		OvertimeHours: decimal.NewFromInt(overtimeHours),
	}
}

func newTestEnv(profiles ...payroll.CompensationProfile) *testEnv {
	env := &testEnv{
		repo:       newFakePayrollRepo(),
		directory:  newFakeDirectory(profiles...),
		attendance: &fakeAttendance{summaries: make(map[string]payroll.AttendanceSummary)},
		leaves:     &fakeLeaves{},
		gateway:    &fakeGateway{},
		notifier:   &fakeNotifier{},
	}
	svc := NewPayrollService(env.repo, env.directory, env.attendance, env.leaves, env.gateway, env.notifier, Config{
		Policy: payroll.DefaultPolicy(),
	}).(*PayrollServiceImpl)
	svc.now = func() time.Time { return fixedNow }
	env.svc = svc
	return env
}

func marchRequest(ids ...string) payroll.GeneratePayrollRequest {
	return payroll.GeneratePayrollRequest{PeriodStart: "2024-03-01", PeriodEnd: "2024-03-31", EmployeeIDs: ids}
}

func (env *testEnv) generateOne(t *testing.T, id string) payroll.PayrollRecordResponse {
	t.Helper()
	resp, err := env.svc.GeneratePayroll(context.Background(), marchRequest(id))
	require.NoError(t, err)
	require.Len(t, resp.Generated, 1, "failures: %+v", resp.Failed)
	return resp.Generated[0]
}

func TestGeneratePayroll_ContinuesPastFailures(t *testing.T) {
	env := newTestEnv(
		profile(empAchieng, "32000"),
		profile(empBaraka, "0"),
		profile(empChebet, "45000"),
	)
	env.attendance.summaries[empAchieng] = hours(160, 0)
	env.attendance.summaries[empBaraka] = hours(160, 0)
	env.attendance.summaries[empChebet] = hours(150, 12)

	resp, err := env.svc.GeneratePayroll(context.Background(), marchRequest())
	require.NoError(t, err)

	assert.Equal(t, 3, resp.TotalEmployees)
	require.Len(t, resp.Generated, 2)
	require.Len(t, resp.Failed, 1)

	failure := resp.Failed[0]
	assert.Equal(t, empBaraka, failure.EmployeeID)
	assert.Equal(t, payroll.KindInput, failure.Kind)
	assert.Contains(t, failure.Error, payroll.ErrInvalidBasicSalary.Error())

	first := resp.Generated[0]
	assert.Equal(t, empAchieng, first.EmployeeID)
	assert.Equal(t, payroll.PaymentStatusPending, first.PaymentStatus)
	assert.True(t, first.NetPay.Equal(decimal.NewFromInt(26700)))
	assert.Equal(t, 21, first.WorkingDays)

	assert.Equal(t, []payroll.EventType{payroll.EventPayrollGenerated, payroll.EventPayrollGenerated}, env.notifier.types())
}

func TestGeneratePayroll_ExplicitRoster(t *testing.T) {
	inactive := profile(empChebet, "40000")
	inactive.Status = "resigned"
	env := newTestEnv(profile(empAchieng, "32000"), profile(empBaraka, "12000"), inactive)
	env.attendance.summaries[empAchieng] = hours(160, 0)

	resp, err := env.svc.GeneratePayroll(context.Background(), marchRequest(empAchieng, empBaraka, empChebet, empDaudi, empAchieng))
	require.NoError(t, err)

	assert.Equal(t, 4, resp.TotalEmployees)
	require.Len(t, resp.Generated, 1)

	kinds := map[string]payroll.ErrorKind{}
	for _, f := range resp.Failed {
		kinds[f.EmployeeID] = f.Kind
	}
	assert.Equal(t, map[string]payroll.ErrorKind{
		empBaraka: payroll.KindInput,
		empChebet: payroll.KindInput,
		empDaudi:  payroll.KindNotFound,
	}, kinds)
}

func TestGeneratePayroll_DuplicatePeriodIsConflict(t *testing.T) {
	env := newTestEnv(profile(empAchieng, "32000"))
	env.attendance.summaries[empAchieng] = hours(160, 0)

	env.generateOne(t, empAchieng)

	resp, err := env.svc.GeneratePayroll(context.Background(), marchRequest(empAchieng))
	require.NoError(t, err)
	assert.Empty(t, resp.Generated)
	require.Len(t, resp.Failed, 1)
	assert.Equal(t, payroll.KindConflict, resp.Failed[0].Kind)
}

func TestGeneratePayroll_InvalidPeriod(t *testing.T) {
	env := newTestEnv(profile(empAchieng, "32000"))

	_, err := env.svc.GeneratePayroll(context.Background(), payroll.GeneratePayrollRequest{PeriodStart: "2024-03-31", PeriodEnd: "2024-03-01"})

	assert.ErrorIs(t, err, payroll.ErrInvalidPeriod)
	assert.Equal(t, payroll.KindInput, payroll.KindOf(err))
}

func TestGeneratePayroll_MalformedAttendance(t *testing.T) {
	env := newTestEnv(profile(empAchieng, "32000"))
	env.attendance.summaries[empAchieng] = payroll.AttendanceSummary{
		TotalHours:    decimal.NewFromInt(10),
		RegularHours:  decimal.NewFromInt(20),
		OvertimeHours: decimal.NewFromInt(-10),
	}

	resp, err := env.svc.GeneratePayroll(context.Background(), marchRequest(empAchieng))
	require.NoError(t, err)
	require.Len(t, resp.Failed, 1)
	assert.Equal(t, payroll.KindInput, resp.Failed[0].Kind)
}

func TestGeneratePayroll_OvertimeWarningsAndLeaveFallback(t *testing.T) {
	env := newTestEnv(profile(empAchieng, "32000"))
	env.attendance.summaries[empAchieng] = hours(160, 50)
	env.leaves.err = errors.New("leave service unavailable")

	req := marchRequest(empAchieng)
	req.Options.ValidateOvertime = true
	resp, err := env.svc.GeneratePayroll(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, resp.Generated, 1)
	rec := resp.Generated[0]
	assert.Equal(t, 0, rec.LeaveDays)
	assert.True(t, rec.OvertimeApproval.Required)
	assert.True(t, rec.Salary.StandardOvertimeHours.Equal(decimal.NewFromInt(40)))
	assert.True(t, rec.Salary.PremiumOvertimeHours.Equal(decimal.NewFromInt(10)))

	require.Len(t, resp.Warnings, 1)
	assert.Equal(t, rec.ID, resp.Warnings[0].RecordID)
	assert.NotEmpty(t, resp.Warnings[0].Violations)
}

func TestGeneratePayroll_NotifierFailureIsIgnored(t *testing.T) {
	env := newTestEnv(profile(empAchieng, "32000"))
	env.attendance.summaries[empAchieng] = hours(160, 0)
	env.notifier.err = errors.New("broker down")

	rec := env.generateOne(t, empAchieng)

	stored, err := env.repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PaymentStatusPending, stored.PaymentStatus)
}

func TestGeneratePayroll_CancelledContextAbortsBatch(t *testing.T) {
	env := newTestEnv(profile(empAchieng, "32000"), profile(empBaraka, "32000"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := env.svc.GeneratePayroll(ctx, marchRequest())
	require.NoError(t, err)
	assert.True(t, resp.Aborted)
	assert.Empty(t, resp.Generated)
}

func TestUpdatePayrollRecord(t *testing.T) {
	env := newTestEnv(profile(empAchieng, "32000"))
	env.attendance.summaries[empAchieng] = hours(160, 0)
	rec := env.generateOne(t, empAchieng)

	other := decimal.NewFromInt(1000)
	resp, err := env.svc.UpdatePayrollRecord(context.Background(), payroll.UpdatePayrollRecordRequest{ID: rec.ID, OtherDeductions: &other})
	require.NoError(t, err)

	assert.True(t, resp.NetPay.Equal(decimal.NewFromInt(25700)))
	assert.Equal(t, rec.Version+1, resp.Version)
}

func TestApproveOvertime(t *testing.T) {
	env := newTestEnv(profile(empAchieng, "32000"))
	env.attendance.summaries[empAchieng] = hours(160, 35)
	rec := env.generateOne(t, empAchieng)

	resp, err := env.svc.ApproveOvertime(context.Background(), payroll.ApproveOvertimeRequest{RecordID: rec.ID, AdminID: "admin-1"})
	require.NoError(t, err)
	require.NotNil(t, resp.OvertimeApproval.ApprovedBy)
	assert.Equal(t, "admin-1", *resp.OvertimeApproval.ApprovedBy)
	assert.Contains(t, env.notifier.types(), payroll.EventOvertimeApproved)

	_, err = env.svc.ApproveOvertime(context.Background(), payroll.ApproveOvertimeRequest{RecordID: rec.ID, AdminID: "admin-2"})
	assert.ErrorIs(t, err, payroll.ErrOvertimeAlreadyApproved)
	assert.Equal(t, payroll.KindConflict, payroll.KindOf(err))

	violations, err := env.svc.ValidateWorkingHours(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestGetRecord_NotFound(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.GetPayrollRecord(context.Background(), "missing")

	assert.ErrorIs(t, err, payroll.ErrRecordNotFound)
	assert.Equal(t, payroll.KindNotFound, payroll.KindOf(err))
}

func TestGetStatistics(t *testing.T) {
	env := newTestEnv(profile(empAchieng, "32000"), profile(empBaraka, "32000"))
	env.attendance.summaries[empAchieng] = hours(160, 0)
	env.attendance.summaries[empBaraka] = hours(160, 0)

	resp, err := env.svc.GeneratePayroll(context.Background(), marchRequest())
	require.NoError(t, err)
	require.Len(t, resp.Generated, 2)

	_, err = env.svc.SubmitPayment(context.Background(), payroll.SubmitPaymentRequest{RecordID: resp.Generated[0].ID})
	require.NoError(t, err)

	stats, err := env.svc.GetStatistics(context.Background(), "2024-03-01", "2024-03-31")
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalRecords)
	assert.True(t, stats.TotalGrossPay.Equal(decimal.NewFromInt(64000)))
	assert.True(t, stats.TotalNetPay.Equal(decimal.NewFromInt(53400)))
	assert.True(t, stats.AverageNetPay.Equal(decimal.NewFromInt(26700)))
	assert.Equal(t, 1, stats.StatusCounts[payroll.PaymentStatusPaid])
	assert.Equal(t, 1, stats.StatusCounts[payroll.PaymentStatusPending])
	assert.Equal(t, 0, stats.StatusCounts[payroll.PaymentStatusFailed])
}

func TestGetOvertimePolicy(t *testing.T) {
	env := newTestEnv()

	policy := env.svc.GetOvertimePolicy(context.Background())

	assert.True(t, policy.StandardTier.MaxHours.Equal(decimal.NewFromInt(40)))
	assert.True(t, policy.PremiumTier.RateMultiplier.Equal(decimal.NewFromInt(2)))
	assert.True(t, policy.ApprovalThresholdHours.Equal(decimal.NewFromInt(30)))
	assert.True(t, policy.UnpaidBeyondHours.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, "Next 20 overtime hours paid at 2.0x the hourly rate", policy.PremiumTier.Description)
}

func TestMutate_RetriesOnVersionConflict(t *testing.T) {
	env := newTestEnv(profile(empAchieng, "32000"))
	env.attendance.summaries[empAchieng] = hours(160, 0)
	rec := env.generateOne(t, empAchieng)

	var once sync.Once
	env.repo.updateHook = func(payroll.PayrollRecord) {
		once.Do(func() {
			stored, _ := env.repo.GetByID(context.Background(), rec.ID)
			notes := "concurrent edit"
			stored.Notes = &notes
			stored.Version++
			env.repo.put(stored)
		})
	}

	resp, err := env.svc.SignOff(context.Background(), payroll.SignOffRequest{RecordID: rec.ID, AdminID: "admin-1"})
	require.NoError(t, err)

	require.NotNil(t, resp.ApprovedBy)
	require.NotNil(t, resp.Notes)
	assert.Equal(t, "concurrent edit", *resp.Notes)
}

func TestMutate_ExhaustedRetriesCarryRecordContext(t *testing.T) {
	env := newTestEnv(profile(empAchieng, "32000"))
	env.attendance.summaries[empAchieng] = hours(160, 0)
	rec := env.generateOne(t, empAchieng)

	env.repo.updateHook = func(payroll.PayrollRecord) {
		stored, _ := env.repo.GetByID(context.Background(), rec.ID)
		stored.Version++
		env.repo.put(stored)
	}

	_, err := env.svc.SignOff(context.Background(), payroll.SignOffRequest{RecordID: rec.ID, AdminID: "admin-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, payroll.ErrConcurrentModification)
	assert.Equal(t, payroll.KindConflict, payroll.KindOf(err))

	var pe *payroll.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, empAchieng, pe.EmployeeID)
	assert.Contains(t, err.Error(), empAchieng)
	assert.Contains(t, err.Error(), rec.PeriodStart)
}
