package payroll

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrRecordNotFound              = errors.New("payroll record not found")
	ErrRecordAlreadyExists         = errors.New("payroll record already exists for this employee and period")
	ErrRecordAlreadyPaid           = errors.New("payroll record already paid, cannot modify")
	ErrConcurrentModification      = errors.New("payroll record was modified by another request")
	ErrInvalidTransition           = errors.New("invalid payment status transition")
	ErrPaymentInProgress           = errors.New("payment is processing, record is locked")
	ErrOvertimeAlreadyApproved     = errors.New("overtime already approved")
	ErrOvertimeApprovalNotRequired = errors.New("overtime approval not required for this record")
	ErrAlreadySignedOff            = errors.New("payroll record already approved")
	ErrPaymentPreconditionFailed   = errors.New("payroll record is not ready for payment")
	ErrMissingPayoutDestination    = errors.New("employee has no valid payout destination configured")
	ErrNonPositiveNetPay           = errors.New("net pay must be greater than zero")
	ErrInvalidPeriod               = errors.New("invalid payroll period")
	ErrInvalidBasicSalary          = errors.New("employee has no valid basic salary configured")
	ErrBelowMinimumSalary          = errors.New("basic salary is below the statutory minimum")
	ErrMalformedAttendance         = errors.New("attendance summary contains negative hours")
	ErrInvalidAmount               = errors.New("amount must be non-negative")
	ErrUnknownOption               = errors.New("unknown payroll option")
	ErrEmployeeNotFound            = errors.New("employee not found")
	ErrEmployeeInactive            = errors.New("employee is not active")
	ErrGatewayRejected             = errors.New("payment gateway rejected the payment")
	ErrGatewayUnavailable          = errors.New("payment gateway did not confirm the payment")
	ErrStalePaymentReference       = errors.New("payment reference does not match the current attempt")
)

// ErrorKind classifies failures for callers that must decide how to react.
type ErrorKind string

const (
	KindInput        ErrorKind = "input"
	KindConflict     ErrorKind = "conflict"
	KindPrecondition ErrorKind = "precondition"
	KindGateway      ErrorKind = "gateway"
	KindNotFound     ErrorKind = "not_found"
	KindInternal     ErrorKind = "internal"
)

// Error carries the employee and period a payroll failure belongs to.
type Error struct {
	Kind        ErrorKind
	EmployeeID  string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Violations  []string
	Err         error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if e.EmployeeID != "" {
		fmt.Fprintf(&b, " (employee %s", e.EmployeeID)
		if !e.PeriodStart.IsZero() {
			fmt.Fprintf(&b, ", period %s to %s", e.PeriodStart.Format(time.DateOnly), e.PeriodEnd.Format(time.DateOnly))
		}
		b.WriteString(")")
	}
	if len(e.Violations) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Violations, "; "))
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with its kind and the record's context.
func NewError(kind ErrorKind, err error, employeeID string, periodStart, periodEnd time.Time) *Error {
	return &Error{
		Kind:        kind,
		EmployeeID:  employeeID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Err:         err,
	}
}

func (r PayrollRecord) newError(kind ErrorKind, err error) *Error {
	return NewError(kind, err, r.EmployeeID, r.PeriodStart, r.PeriodEnd)
}

var sentinelKinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrRecordNotFound, KindNotFound},
	{ErrEmployeeNotFound, KindNotFound},
	{ErrRecordAlreadyExists, KindConflict},
	{ErrRecordAlreadyPaid, KindConflict},
	{ErrConcurrentModification, KindConflict},
	{ErrInvalidTransition, KindConflict},
	{ErrPaymentInProgress, KindConflict},
	{ErrOvertimeAlreadyApproved, KindConflict},
	{ErrAlreadySignedOff, KindConflict},
	{ErrStalePaymentReference, KindConflict},
	{ErrOvertimeApprovalNotRequired, KindPrecondition},
	{ErrPaymentPreconditionFailed, KindPrecondition},
	{ErrMissingPayoutDestination, KindPrecondition},
	{ErrNonPositiveNetPay, KindPrecondition},
	{ErrInvalidPeriod, KindInput},
	{ErrInvalidBasicSalary, KindInput},
	{ErrBelowMinimumSalary, KindInput},
	{ErrMalformedAttendance, KindInput},
	{ErrInvalidAmount, KindInput},
	{ErrUnknownOption, KindInput},
	{ErrEmployeeInactive, KindInput},
	{ErrGatewayRejected, KindGateway},
	{ErrGatewayUnavailable, KindGateway},
}

// KindOf returns the kind of err, falling back to the kind of a wrapped
// sentinel and then to KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	for _, sk := range sentinelKinds {
		if errors.Is(err, sk.err) {
			return sk.kind
		}
	}
	return KindInternal
}

// ViolationsOf returns the policy violations attached to err, if any.
func ViolationsOf(err error) []string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Violations
	}
	return nil
}
