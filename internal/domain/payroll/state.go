package payroll

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

var transitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusProcessing, PaymentStatusCancelled},
	PaymentStatusProcessing: {PaymentStatusPaid, PaymentStatusFailed},
	PaymentStatusFailed:     {PaymentStatusProcessing, PaymentStatusCancelled},
	PaymentStatusCancelled:  {PaymentStatusPending},
	PaymentStatusPaid:       nil,
}

// CanTransition reports whether a record may move from one status to another.
func CanTransition(from, to PaymentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (r *PayrollRecord) transition(to PaymentStatus) error {
	if r.PaymentStatus == PaymentStatusPaid {
		return r.newError(KindConflict, ErrRecordAlreadyPaid)
	}
	if !CanTransition(r.PaymentStatus, to) {
		return r.newError(KindConflict, ErrInvalidTransition)
	}
	r.PaymentStatus = to
	return nil
}

// ensureEditable rejects edits once a payment is under way or complete.
func (r *PayrollRecord) ensureEditable() error {
	switch r.PaymentStatus {
	case PaymentStatusPaid:
		return r.newError(KindConflict, ErrRecordAlreadyPaid)
	case PaymentStatusProcessing:
		return r.newError(KindConflict, ErrPaymentInProgress)
	}
	return nil
}

// RecordEdit is an administrative correction. Nil fields are left unchanged.
type RecordEdit struct {
	Notes           *string
	OtherDeductions *decimal.Decimal
	Attendance      *AttendanceSummary
}

// ApplyEdit applies edit and recomputes the record. Overtime approval stays
// required once set, even if the corrected overtime falls below the threshold.
func (r *PayrollRecord) ApplyEdit(edit RecordEdit, p Policy) error {
	if err := r.ensureEditable(); err != nil {
		return err
	}
	if edit.OtherDeductions != nil && edit.OtherDeductions.IsNegative() {
		return r.newError(KindInput, ErrInvalidAmount)
	}
	if edit.Attendance != nil {
		if err := edit.Attendance.Validate(); err != nil {
			return r.newError(KindInput, err)
		}
	}

	if edit.Notes != nil {
		notes := strings.TrimSpace(*edit.Notes)
		r.Notes = &notes
	}
	if edit.OtherDeductions != nil {
		r.Deductions.OtherDeductions = round(*edit.OtherDeductions)
	}
	if edit.Attendance != nil {
		r.Attendance = edit.Attendance.Rounded()
	}

	r.Recompute(p)
	return nil
}

// ApproveOvertime records the admin sign-off for heavy overtime.
func (r *PayrollRecord) ApproveOvertime(adminID string, reason *string, now time.Time) error {
	if err := r.ensureEditable(); err != nil {
		return err
	}
	if !r.OvertimeApproval.Required {
		return r.newError(KindPrecondition, ErrOvertimeApprovalNotRequired)
	}
	if r.OvertimeApproval.ApprovedBy != nil {
		return r.newError(KindConflict, ErrOvertimeAlreadyApproved)
	}

	r.OvertimeApproval.ApprovedBy = &adminID
	r.OvertimeApproval.ApprovedDate = &now
	r.OvertimeApproval.Reason = reason
	return nil
}

// SignOff records the admin approval of the whole record.
func (r *PayrollRecord) SignOff(adminID string, now time.Time) error {
	if err := r.ensureEditable(); err != nil {
		return err
	}
	if r.ApprovedBy != nil {
		return r.newError(KindConflict, ErrAlreadySignedOff)
	}

	r.ApprovedBy = &adminID
	r.ApprovedDate = &now
	return nil
}

// BeginPayment moves the record to processing and opens a new payment
// attempt. Working-hours violations and a pending overtime approval block
// payment unless force is set.
func (r *PayrollRecord) BeginPayment(p Policy, force bool) error {
	switch r.PaymentStatus {
	case PaymentStatusPaid:
		return r.newError(KindConflict, ErrRecordAlreadyPaid)
	case PaymentStatusPending, PaymentStatusFailed:
	default:
		return r.newError(KindConflict, ErrInvalidTransition)
	}

	if !validator.IsValidPayoutDestination(r.Compensation.PayoutDestination) {
		return r.newError(KindPrecondition, ErrMissingPayoutDestination)
	}
	if !r.NetPay.IsPositive() {
		return r.newError(KindPrecondition, ErrNonPositiveNetPay)
	}

	if !force {
		var blocking []string
		if r.OvertimeApproval.IsPending() && r.Attendance.OvertimeHours.LessThanOrEqual(p.OvertimeApprovalThresholdHours) {
			blocking = append(blocking, "overtime approval is pending")
		}
		blocking = append(blocking, r.ValidateWorkingHours(p)...)
		if len(blocking) > 0 {
			pe := r.newError(KindPrecondition, ErrPaymentPreconditionFailed)
			pe.Violations = blocking
			return pe
		}
	}

	if err := r.transition(PaymentStatusProcessing); err != nil {
		return err
	}
	r.Payment.Attempts++
	ref := r.PaymentReference()
	r.Payment.ReferenceID = &ref
	r.Payment.GatewayReference = nil
	r.Payment.FailureReason = nil
	return nil
}

// TrackGatewayReference stores the gateway's identifier for a payment that
// is still settling.
func (r *PayrollRecord) TrackGatewayReference(gatewayReference string) error {
	if r.PaymentStatus == PaymentStatusPaid {
		return r.newError(KindConflict, ErrRecordAlreadyPaid)
	}
	if r.PaymentStatus != PaymentStatusProcessing {
		return r.newError(KindConflict, ErrInvalidTransition)
	}
	if gatewayReference != "" {
		r.Payment.GatewayReference = &gatewayReference
	}
	return nil
}

// CompletePayment marks a processing record as paid.
func (r *PayrollRecord) CompletePayment(gatewayReference string, now time.Time) error {
	if err := r.transition(PaymentStatusPaid); err != nil {
		return err
	}
	if gatewayReference != "" {
		r.Payment.GatewayReference = &gatewayReference
	}
	r.Payment.PaymentDate = &now
	r.Payment.FailureReason = nil
	return nil
}

// FailPayment marks a processing record as failed so it can be retried.
func (r *PayrollRecord) FailPayment(gatewayReference, reason string) error {
	if err := r.transition(PaymentStatusFailed); err != nil {
		return err
	}
	if gatewayReference != "" {
		r.Payment.GatewayReference = &gatewayReference
	}
	if reason == "" {
		reason = "payment failed"
	}
	r.Payment.FailureReason = &reason
	return nil
}

// Cancel withdraws a pending or failed record.
func (r *PayrollRecord) Cancel() error {
	return r.transition(PaymentStatusCancelled)
}

// Reopen returns a cancelled record to pending.
func (r *PayrollRecord) Reopen() error {
	return r.transition(PaymentStatusPending)
}
