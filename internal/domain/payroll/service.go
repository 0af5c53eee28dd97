package payroll

import (
	"context"
)

type PayrollService interface {
	// Generation
	GeneratePayroll(ctx context.Context, req GeneratePayrollRequest) (GeneratePayrollResponse, error)

	// Records
	GetPayrollRecord(ctx context.Context, id string) (PayrollRecordResponse, error)
	GetPayslip(ctx context.Context, id string) (PayslipResponse, error)
	ListPayrollRecords(ctx context.Context, filter PayrollFilter) (ListPayrollRecordResponse, error)
	UpdatePayrollRecord(ctx context.Context, req UpdatePayrollRecordRequest) (PayrollRecordResponse, error)
	ValidateWorkingHours(ctx context.Context, id string) ([]string, error)

	// Approvals
	ApproveOvertime(ctx context.Context, req ApproveOvertimeRequest) (PayrollRecordResponse, error)
	SignOff(ctx context.Context, req SignOffRequest) (PayrollRecordResponse, error)

	// Payments
	SubmitPayment(ctx context.Context, req SubmitPaymentRequest) (PayrollRecordResponse, error)
	ProcessPayments(ctx context.Context, req ProcessPaymentsRequest) (ProcessPaymentsResponse, error)
	UpdatePaymentStatus(ctx context.Context, req UpdatePaymentStatusRequest) (PayrollRecordResponse, error)
	HandleGatewayCallback(ctx context.Context, callback GatewayCallback) (PayrollRecordResponse, error)
	ReconcileProcessing(ctx context.Context, limit int) (int, error)

	// Reporting
	GetStatistics(ctx context.Context, periodStart, periodEnd string) (PayrollStatisticsResponse, error)
	GetOvertimePolicy(ctx context.Context) OvertimePolicyResponse
}
