package payroll

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func processingRecord(t *testing.T) PayrollRecord {
	t.Helper()
	r := newTestRecord("32000", "160", "0")
	r.Recompute(DefaultPolicy())
	require.NoError(t, r.BeginPayment(DefaultPolicy(), false))
	return r
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(PaymentStatusPending, PaymentStatusProcessing))
	assert.True(t, CanTransition(PaymentStatusProcessing, PaymentStatusPaid))
	assert.True(t, CanTransition(PaymentStatusProcessing, PaymentStatusFailed))
	assert.True(t, CanTransition(PaymentStatusFailed, PaymentStatusProcessing))
	assert.True(t, CanTransition(PaymentStatusCancelled, PaymentStatusPending))

	assert.False(t, CanTransition(PaymentStatusPending, PaymentStatusPaid))
	assert.False(t, CanTransition(PaymentStatusProcessing, PaymentStatusCancelled))
	for _, to := range AllPaymentStatuses {
		assert.False(t, CanTransition(PaymentStatusPaid, to), "paid -> %s", to)
	}
}

func TestBeginPayment(t *testing.T) {
	r := processingRecord(t)

	assert.Equal(t, PaymentStatusProcessing, r.PaymentStatus)
	assert.Equal(t, 1, r.Payment.Attempts)
	require.NotNil(t, r.Payment.ReferenceID)
	assert.Equal(t, "PAYROLL-"+r.ID+"-1", *r.Payment.ReferenceID)
}

func TestBeginPayment_Preconditions(t *testing.T) {
	policy := DefaultPolicy()

	t.Run("missing payout destination", func(t *testing.T) {
		r := newTestRecord("32000", "160", "0")
		r.Compensation.PayoutDestination = " "
		r.Recompute(policy)

		err := r.BeginPayment(policy, false)
		assert.ErrorIs(t, err, ErrMissingPayoutDestination)
		assert.Equal(t, KindPrecondition, KindOf(err))
		assert.Equal(t, PaymentStatusPending, r.PaymentStatus)
	})

	t.Run("non-numeric payout destinations", func(t *testing.T) {
		for _, dest := range []string{"+254712345678", "GB29NWBK60161331926819", "KE_EQUITY:0170299344"} {
			r := newTestRecord("32000", "160", "0")
			r.Compensation.PayoutDestination = dest
			r.Recompute(policy)

			require.NoError(t, r.BeginPayment(policy, false), dest)
			assert.Equal(t, PaymentStatusProcessing, r.PaymentStatus, dest)
		}
	})

	t.Run("zero net pay", func(t *testing.T) {
		r := newTestRecord("32000", "160", "0")
		r.Deductions.OtherDeductions = decimal.NewFromInt(50000)
		r.Recompute(policy)

		err := r.BeginPayment(policy, true)
		assert.ErrorIs(t, err, ErrNonPositiveNetPay)
	})

	t.Run("unapproved overtime blocks payment", func(t *testing.T) {
		r := newTestRecord("32000", "160", "40")
		r.Recompute(policy)

		err := r.BeginPayment(policy, false)
		assert.ErrorIs(t, err, ErrPaymentPreconditionFailed)
		assert.Equal(t, KindPrecondition, KindOf(err))
		assert.NotEmpty(t, ViolationsOf(err))
		assert.Equal(t, PaymentStatusPending, r.PaymentStatus)
	})

	t.Run("approval stays required after overtime is corrected down", func(t *testing.T) {
		r := newTestRecord("32000", "160", "40")
		r.Recompute(policy)
		corrected := AttendanceSummary{TotalHours: dec("170"), RegularHours: dec("160"), OvertimeHours: dec("10")}
		require.NoError(t, r.ApplyEdit(RecordEdit{Attendance: &corrected}, policy))

		err := r.BeginPayment(policy, false)
		assert.ErrorIs(t, err, ErrPaymentPreconditionFailed)
		assert.Equal(t, []string{"overtime approval is pending"}, ViolationsOf(err))
	})

	t.Run("force bypasses hour checks", func(t *testing.T) {
		r := newTestRecord("32000", "160", "40")
		r.Recompute(policy)

		require.NoError(t, r.BeginPayment(policy, true))
		assert.Equal(t, PaymentStatusProcessing, r.PaymentStatus)
	})

	t.Run("cannot begin twice", func(t *testing.T) {
		r := processingRecord(t)

		err := r.BeginPayment(policy, false)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, KindConflict, KindOf(err))
	})
}

func TestCompletePayment_Twice(t *testing.T) {
	r := processingRecord(t)
	now := time.Date(2024, time.April, 2, 10, 0, 0, 0, time.UTC)

	require.NoError(t, r.CompletePayment("disb-1", now))
	assert.Equal(t, PaymentStatusPaid, r.PaymentStatus)
	require.NotNil(t, r.Payment.PaymentDate)
	assert.Equal(t, now, *r.Payment.PaymentDate)

	err := r.CompletePayment("disb-1", now)
	assert.ErrorIs(t, err, ErrRecordAlreadyPaid)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestFailPayment_ThenRetry(t *testing.T) {
	policy := DefaultPolicy()
	r := processingRecord(t)

	require.NoError(t, r.FailPayment("disb-1", "account closed"))
	assert.Equal(t, PaymentStatusFailed, r.PaymentStatus)
	require.NotNil(t, r.Payment.FailureReason)
	assert.Equal(t, "account closed", *r.Payment.FailureReason)

	require.NoError(t, r.BeginPayment(policy, false))
	assert.Equal(t, 2, r.Payment.Attempts)
	assert.Equal(t, "PAYROLL-"+r.ID+"-2", *r.Payment.ReferenceID)
	assert.Nil(t, r.Payment.FailureReason)
	assert.Nil(t, r.Payment.GatewayReference)
}

func TestPaidRecordIsImmutable(t *testing.T) {
	policy := DefaultPolicy()
	r := processingRecord(t)
	require.NoError(t, r.CompletePayment("disb-1", time.Now()))

	notes := "late correction"
	assert.ErrorIs(t, r.ApplyEdit(RecordEdit{Notes: &notes}, policy), ErrRecordAlreadyPaid)
	assert.ErrorIs(t, r.SignOff("admin-1", time.Now()), ErrRecordAlreadyPaid)
	assert.ErrorIs(t, r.Cancel(), ErrRecordAlreadyPaid)
	assert.ErrorIs(t, r.FailPayment("", "x"), ErrRecordAlreadyPaid)
}

func TestProcessingRecordRejectsEdits(t *testing.T) {
	r := processingRecord(t)
	other := decimal.NewFromInt(100)

	err := r.ApplyEdit(RecordEdit{OtherDeductions: &other}, DefaultPolicy())
	assert.ErrorIs(t, err, ErrPaymentInProgress)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestApplyEdit(t *testing.T) {
	policy := DefaultPolicy()
	r := newTestRecord("32000", "160", "0")
	r.Recompute(policy)

	other := dec("700")
	notes := "  salary advance  "
	require.NoError(t, r.ApplyEdit(RecordEdit{OtherDeductions: &other, Notes: &notes}, policy))

	assertDecimal(t, "6000", r.Deductions.TotalDeductions, "total deductions")
	assertDecimal(t, "26000", r.NetPay, "net pay")
	require.NotNil(t, r.Notes)
	assert.Equal(t, "salary advance", *r.Notes)

	negative := dec("-1")
	err := r.ApplyEdit(RecordEdit{OtherDeductions: &negative}, policy)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, KindInput, KindOf(err))

	bad := AttendanceSummary{TotalHours: dec("1"), RegularHours: dec("-1"), OvertimeHours: decimal.Zero}
	assert.ErrorIs(t, r.ApplyEdit(RecordEdit{Attendance: &bad}, policy), ErrMalformedAttendance)
}

func TestApplyEdit_AttendanceStoredPrecision(t *testing.T) {
	policy := DefaultPolicy()
	r := newTestRecord("32000", "160", "0")
	r.Recompute(policy)

	override := AttendanceSummary{TotalHours: dec("170.555"), RegularHours: dec("160"), OvertimeHours: dec("10.555")}
	require.NoError(t, r.ApplyEdit(RecordEdit{Attendance: &override}, policy))
	assertDecimal(t, "10.56", r.Attendance.OvertimeHours, "overtime hours")
	assertDecimal(t, "35168", r.Salary.GrossPay, "gross pay")
	gross, net := r.Salary.GrossPay, r.NetPay

	// Reload through 2dp columns, then make an unrelated edit.
	reloaded := r
	reloaded.Attendance = AttendanceSummary{
		TotalHours:    dec(r.Attendance.TotalHours.StringFixed(2)),
		RegularHours:  dec(r.Attendance.RegularHours.StringFixed(2)),
		OvertimeHours: dec(r.Attendance.OvertimeHours.StringFixed(2)),
	}
	notes := "checked"
	require.NoError(t, reloaded.ApplyEdit(RecordEdit{Notes: &notes}, policy))

	assertDecimal(t, gross.String(), reloaded.Salary.GrossPay, "gross pay after reload")
	assertDecimal(t, net.String(), reloaded.NetPay, "net pay after reload")
}

func TestNewPayrollRecord_RoundsInputs(t *testing.T) {
	r := newTestRecord("32000.004", "160.333", "10.555")
	assertDecimal(t, "160.33", r.Attendance.RegularHours, "regular hours")
	assertDecimal(t, "10.56", r.Attendance.OvertimeHours, "overtime hours")
	assertDecimal(t, "170.89", r.Attendance.TotalHours, "total hours")
	assertDecimal(t, "32000", r.Compensation.BasicSalary, "basic salary")
}

func TestApplyEdit_RoundsOtherDeductions(t *testing.T) {
	policy := DefaultPolicy()
	r := newTestRecord("32000", "160", "0")
	r.Recompute(policy)

	other := dec("700.005")
	require.NoError(t, r.ApplyEdit(RecordEdit{OtherDeductions: &other}, policy))
	assertDecimal(t, "700.01", r.Deductions.OtherDeductions, "other deductions")
}

func TestApproveOvertime(t *testing.T) {
	policy := DefaultPolicy()
	now := time.Now()

	r := newTestRecord("32000", "160", "10")
	r.Recompute(policy)
	assert.ErrorIs(t, r.ApproveOvertime("admin-1", nil, now), ErrOvertimeApprovalNotRequired)

	r = newTestRecord("32000", "160", "45")
	r.Recompute(policy)
	reason := "quarter-end stock take"
	require.NoError(t, r.ApproveOvertime("admin-1", &reason, now))
	assert.Equal(t, "admin-1", *r.OvertimeApproval.ApprovedBy)
	assert.Equal(t, reason, *r.OvertimeApproval.Reason)

	err := r.ApproveOvertime("admin-2", nil, now)
	assert.ErrorIs(t, err, ErrOvertimeAlreadyApproved)
	assert.Equal(t, "admin-1", *r.OvertimeApproval.ApprovedBy)
}

func TestSignOff(t *testing.T) {
	r := newTestRecord("32000", "160", "0")

	require.NoError(t, r.SignOff("admin-1", time.Now()))
	assert.ErrorIs(t, r.SignOff("admin-1", time.Now()), ErrAlreadySignedOff)
}

func TestCancelAndReopen(t *testing.T) {
	r := newTestRecord("32000", "160", "0")

	require.NoError(t, r.Cancel())
	assert.Equal(t, PaymentStatusCancelled, r.PaymentStatus)
	assert.ErrorIs(t, r.Cancel(), ErrInvalidTransition)

	require.NoError(t, r.Reopen())
	assert.Equal(t, PaymentStatusPending, r.PaymentStatus)

	p := processingRecord(t)
	assert.ErrorIs(t, p.Cancel(), ErrInvalidTransition)
}

func TestErrorMessageCarriesContext(t *testing.T) {
	r := newTestRecord("32000", "160", "0")
	r.Compensation.PayoutDestination = ""
	r.Recompute(DefaultPolicy())

	err := r.BeginPayment(DefaultPolicy(), false)
	require.Error(t, err)

	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, r.EmployeeID, pe.EmployeeID)
	assert.Contains(t, err.Error(), "period 2024-03-01 to 2024-03-31")
}
