package payroll

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// EmployeeDirectory supplies compensation profiles. GetCompensationProfile
// returns ErrEmployeeNotFound for unknown IDs.
type EmployeeDirectory interface {
	ListActiveEmployees(ctx context.Context) ([]CompensationProfile, error)
	GetCompensationProfile(ctx context.Context, employeeID string) (CompensationProfile, error)
}

// AttendanceSource aggregates attendance hours for a period.
type AttendanceSource interface {
	GetAttendanceSummary(ctx context.Context, employeeID string, periodStart, periodEnd time.Time) (AttendanceSummary, error)
}

// LeaveSource counts approved leave working days overlapping a period.
type LeaveSource interface {
	CountApprovedLeaveDays(ctx context.Context, employeeID string, periodStart, periodEnd time.Time) (int, error)
}

// GatewayStatus is the gateway's verdict on a payment.
type GatewayStatus string

const (
	GatewayStatusSucceeded GatewayStatus = "succeeded"
	GatewayStatusPending   GatewayStatus = "pending"
	GatewayStatusFailed    GatewayStatus = "failed"
)

// PaymentRequest is sent once per payment attempt. ReferenceID is unique per
// attempt so a retried call is deduplicated by the gateway.
type PaymentRequest struct {
	ReferenceID       string
	EmployeeID        string
	AmountMinor       int64
	Currency          string
	PayoutDestination string
	PayeeName         string
	Description       string
	Metadata          map[string]string
}

// PaymentResult is the gateway's answer for one reference.
type PaymentResult struct {
	ReferenceID      string
	GatewayReference string
	Status           GatewayStatus
	FailureReason    string
}

// PaymentGateway disburses net pay. An error means the outcome is unknown.
type PaymentGateway interface {
	CreatePayment(ctx context.Context, req PaymentRequest) (PaymentResult, error)
	GetPayment(ctx context.Context, gatewayReference string) (PaymentResult, error)
}

// EventType enum
type EventType string

const (
	EventPayrollGenerated  EventType = "payroll_generated"
	EventOvertimeApproved  EventType = "overtime_approved"
	EventPaymentProcessing EventType = "payment_processing"
	EventPaymentSucceeded  EventType = "payment_succeeded"
	EventPaymentFailed     EventType = "payment_failed"
)

// Event is a fire-and-forget payroll notification.
type Event struct {
	Type          EventType       `json:"type"`
	RecordID      string          `json:"record_id"`
	EmployeeID    string          `json:"employee_id"`
	PeriodStart   string          `json:"period_start"`
	PeriodEnd     string          `json:"period_end"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	NetPay        decimal.Decimal `json:"net_pay"`
	Message       string          `json:"message"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// Notifier delivers events. Delivery failures never affect payroll state.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// NewEvent describes record for eventType.
func NewEvent(eventType EventType, record PayrollRecord, message string, now time.Time) Event {
	return Event{
		Type:          eventType,
		RecordID:      record.ID,
		EmployeeID:    record.EmployeeID,
		PeriodStart:   record.PeriodStart.Format(time.DateOnly),
		PeriodEnd:     record.PeriodEnd.Format(time.DateOnly),
		PaymentStatus: record.PaymentStatus,
		NetPay:        record.NetPay,
		Message:       message,
		OccurredAt:    now,
	}
}
