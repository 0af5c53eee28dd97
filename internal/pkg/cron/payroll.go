package cron

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/lock"
)

const reconcileLockName = "payroll:reconcile"

// PayrollJobs contains payroll-related cron jobs
type PayrollJobs struct {
	payrollService payroll.PayrollService
	locker         *lock.RedisLocker
	interval       time.Duration
	batchSize      int
}

// NewPayrollJobs creates payroll cron jobs. A nil locker runs the jobs
// without cross-instance coordination.
func NewPayrollJobs(payrollService payroll.PayrollService, locker *lock.RedisLocker, interval time.Duration, batchSize int) *PayrollJobs {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &PayrollJobs{
		payrollService: payrollService,
		locker:         locker,
		interval:       interval,
		batchSize:      batchSize,
	}
}

// RegisterJobs registers all payroll-related cron jobs
func (j *PayrollJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("reconcile_processing_payments", j.interval, 0, j.ReconcilePayments)
}

// ReconcilePayments resolves payments stuck in processing by polling the
// gateway. Only one instance runs it per interval.
func (j *PayrollJobs) ReconcilePayments(ctx context.Context) error {
	if j.locker != nil {
		lk, err := j.locker.Acquire(ctx, reconcileLockName, j.interval)
		if errors.Is(err, lock.ErrNotAcquired) {
			slog.Debug("Payment reconciliation running elsewhere, skipping")
			return nil
		}
		if err != nil {
			return err
		}
		defer func() {
			if err := lk.Release(context.WithoutCancel(ctx)); err != nil {
				slog.Warn("Failed to release reconcile lock", "error", err)
			}
		}()
	}

	_, err := j.payrollService.ReconcileProcessing(ctx, j.batchSize)
	return err
}
