package payroll

import (
	"context"
	"time"
)

// PayrollRepository persists payroll records.
type PayrollRepository interface {
	// Create inserts the record unless one already exists for the same
	// employee and period, in which case it returns ErrRecordAlreadyExists.
	Create(ctx context.Context, record PayrollRecord) (PayrollRecord, error)
	GetByID(ctx context.Context, id string) (PayrollRecord, error)
	GetByEmployeePeriod(ctx context.Context, employeeID string, periodStart, periodEnd time.Time) (PayrollRecord, error)
	GetByPaymentReference(ctx context.Context, referenceID string) (PayrollRecord, error)
	List(ctx context.Context, filter PayrollFilter) ([]PayrollRecord, int64, error)
	ListByStatus(ctx context.Context, status PaymentStatus, limit int) ([]PayrollRecord, error)

	// Update writes the record if its Version still matches the stored one
	// and returns it with the incremented version. A stale version yields
	// ErrConcurrentModification.
	Update(ctx context.Context, record PayrollRecord) (PayrollRecord, error)

	GetStatistics(ctx context.Context, periodStart, periodEnd time.Time) (PayrollStatistics, error)
}
