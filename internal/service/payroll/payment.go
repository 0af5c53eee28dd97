package payroll

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

// SubmitPayment commits the record to processing before calling the gateway,
// so two concurrent submissions can never both reach it. A gateway error
// leaves the record processing with its reference for later reconciliation.
func (s *PayrollServiceImpl) SubmitPayment(ctx context.Context, req payroll.SubmitPaymentRequest) (payroll.PayrollRecordResponse, error) {
	record, err := s.mutate(ctx, req.RecordID, func(r *payroll.PayrollRecord) error {
		return r.BeginPayment(s.policy, req.Options.ForcePayment)
	})
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	slog.Info("Payroll payment submitted",
		"record_id", record.ID,
		"employee_id", record.EmployeeID,
		"reference_id", *record.Payment.ReferenceID,
		"net_pay", record.NetPay.StringFixed(payroll.MoneyPlaces),
		"forced", req.Options.ForcePayment)

	result, err := s.gateway.CreatePayment(ctx, s.paymentRequest(record))
	if err != nil {
		slog.Error("Payment gateway call failed, record left processing",
			"record_id", record.ID,
			"reference_id", *record.Payment.ReferenceID,
			"error", err)
		return payroll.ToResponse(record), payroll.NewError(
			payroll.KindGateway,
			fmt.Errorf("%w: %w", payroll.ErrGatewayUnavailable, err),
			record.EmployeeID, record.PeriodStart, record.PeriodEnd,
		)
	}

	updated, err := s.applyGatewayResult(ctx, record.ID, *record.Payment.ReferenceID, result)
	if err != nil {
		return payroll.ToResponse(record), err
	}

	if result.Status == payroll.GatewayStatusFailed {
		return payroll.ToResponse(updated), payroll.NewError(
			payroll.KindGateway,
			fmt.Errorf("%w: %s", payroll.ErrGatewayRejected, result.FailureReason),
			updated.EmployeeID, updated.PeriodStart, updated.PeriodEnd,
		)
	}
	return payroll.ToResponse(updated), nil
}

func (s *PayrollServiceImpl) ProcessPayments(ctx context.Context, req payroll.ProcessPaymentsRequest) (payroll.ProcessPaymentsResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.ProcessPaymentsResponse{}, err
	}

	resp := payroll.ProcessPaymentsResponse{
		Successful: []payroll.PayrollRecordResponse{},
		Failed:     []payroll.RecordFailure{},
	}
	for _, id := range req.RecordIDs {
		if ctx.Err() != nil {
			resp.Failed = append(resp.Failed, payroll.RecordFailure{RecordID: id, Kind: payroll.KindInternal, Error: ctx.Err().Error()})
			continue
		}

		record, err := s.SubmitPayment(ctx, payroll.SubmitPaymentRequest{RecordID: id, Options: req.Options})
		if err != nil {
			resp.Failed = append(resp.Failed, payroll.RecordFailure{
				RecordID:   id,
				Kind:       payroll.KindOf(err),
				Error:      err.Error(),
				Violations: payroll.ViolationsOf(err),
			})
			continue
		}
		resp.Successful = append(resp.Successful, record)
	}

	slog.Info("Payroll payment batch processed", "successful", len(resp.Successful), "failed", len(resp.Failed))
	return resp, nil
}

// UpdatePaymentStatus is the manual override used to settle records the
// gateway cannot resolve. Only legal transitions are accepted and processing
// can only be entered through SubmitPayment.
func (s *PayrollServiceImpl) UpdatePaymentStatus(ctx context.Context, req payroll.UpdatePaymentStatusRequest) (payroll.PayrollRecordResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayrollRecordResponse{}, err
	}
	target := payroll.PaymentStatus(req.Status)

	updated, err := s.mutate(ctx, req.RecordID, func(r *payroll.PayrollRecord) error {
		gatewayRef := ""
		if req.GatewayReference != nil {
			gatewayRef = strings.TrimSpace(*req.GatewayReference)
		}

		var err error
		switch target {
		case payroll.PaymentStatusPaid:
			err = r.CompletePayment(gatewayRef, s.now())
		case payroll.PaymentStatusFailed:
			reason := fmt.Sprintf("marked failed by %s", req.AdminID)
			if req.FailureReason != nil {
				reason = *req.FailureReason
			}
			err = r.FailPayment(gatewayRef, reason)
		case payroll.PaymentStatusCancelled:
			err = r.Cancel()
		case payroll.PaymentStatusPending:
			err = r.Reopen()
		default:
			err = payroll.NewError(payroll.KindConflict, payroll.ErrInvalidTransition, r.EmployeeID, r.PeriodStart, r.PeriodEnd)
		}
		if err != nil {
			return err
		}

		if req.Notes != nil {
			notes := strings.TrimSpace(*req.Notes)
			r.Notes = &notes
		}
		return nil
	})
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	slog.Info("Payroll payment status updated manually",
		"record_id", updated.ID,
		"status", updated.PaymentStatus,
		"admin_id", req.AdminID)

	switch updated.PaymentStatus {
	case payroll.PaymentStatusPaid:
		s.notify(ctx, payroll.EventPaymentSucceeded, updated, "Your salary payment has been completed")
	case payroll.PaymentStatusFailed:
		s.notify(ctx, payroll.EventPaymentFailed, updated, "Your salary payment could not be completed")
	}
	return payroll.ToResponse(updated), nil
}

// HandleGatewayCallback applies an asynchronous gateway outcome. Callbacks
// for superseded attempts are rejected as stale.
func (s *PayrollServiceImpl) HandleGatewayCallback(ctx context.Context, callback payroll.GatewayCallback) (payroll.PayrollRecordResponse, error) {
	record, err := s.payrollRepo.GetByPaymentReference(ctx, callback.ReferenceID)
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}

	updated, err := s.applyGatewayResult(ctx, record.ID, callback.ReferenceID, payroll.PaymentResult{
		ReferenceID:      callback.ReferenceID,
		GatewayReference: callback.GatewayReference,
		Status:           callback.Status,
		FailureReason:    callback.FailureReason,
	})
	if err != nil {
		return payroll.PayrollRecordResponse{}, err
	}
	return payroll.ToResponse(updated), nil
}

// ReconcileProcessing polls the gateway for records stuck in processing and
// returns how many reached a final status. Records whose submission was
// never acknowledged carry no gateway reference and are left for manual
// resolution.
func (s *PayrollServiceImpl) ReconcileProcessing(ctx context.Context, limit int) (int, error) {
	records, err := s.payrollRepo.ListByStatus(ctx, payroll.PaymentStatusProcessing, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list processing payroll records: %w", err)
	}

	resolved := 0
	for _, r := range records {
		if ctx.Err() != nil {
			break
		}
		if r.Payment.GatewayReference == nil || r.Payment.ReferenceID == nil {
			slog.Warn("Processing payroll record has no gateway reference, needs manual resolution",
				"record_id", r.ID,
				"employee_id", r.EmployeeID)
			continue
		}

		result, err := s.gateway.GetPayment(ctx, *r.Payment.GatewayReference)
		if err != nil {
			slog.Warn("Failed to query payment status", "record_id", r.ID, "gateway_reference", *r.Payment.GatewayReference, "error", err)
			continue
		}
		if result.Status == payroll.GatewayStatusPending {
			continue
		}

		if _, err := s.applyGatewayResult(ctx, r.ID, *r.Payment.ReferenceID, result); err != nil {
			slog.Warn("Failed to apply reconciled payment status", "record_id", r.ID, "error", err)
			continue
		}
		resolved++
	}

	if len(records) > 0 {
		slog.Info("Payroll payments reconciled", "checked", len(records), "resolved", resolved)
	}
	return resolved, nil
}

// applyGatewayResult moves a processing record according to result. The
// result must belong to the record's current attempt.
func (s *PayrollServiceImpl) applyGatewayResult(ctx context.Context, recordID, referenceID string, result payroll.PaymentResult) (payroll.PayrollRecord, error) {
	updated, err := s.mutate(ctx, recordID, func(r *payroll.PayrollRecord) error {
		if r.Payment.ReferenceID == nil || *r.Payment.ReferenceID != referenceID {
			return payroll.NewError(payroll.KindConflict, payroll.ErrStalePaymentReference, r.EmployeeID, r.PeriodStart, r.PeriodEnd)
		}

		switch result.Status {
		case payroll.GatewayStatusSucceeded:
			return r.CompletePayment(result.GatewayReference, s.now())
		case payroll.GatewayStatusFailed:
			return r.FailPayment(result.GatewayReference, result.FailureReason)
		default:
			return r.TrackGatewayReference(result.GatewayReference)
		}
	})
	if err != nil {
		return payroll.PayrollRecord{}, err
	}

	switch updated.PaymentStatus {
	case payroll.PaymentStatusPaid:
		slog.Info("Payroll payment succeeded", "record_id", updated.ID, "gateway_reference", result.GatewayReference)
		s.notify(ctx, payroll.EventPaymentSucceeded, updated, "Your salary payment has been completed")
	case payroll.PaymentStatusFailed:
		slog.Warn("Payroll payment failed", "record_id", updated.ID, "reason", result.FailureReason)
		s.notify(ctx, payroll.EventPaymentFailed, updated, "Your salary payment could not be completed")
	case payroll.PaymentStatusProcessing:
		s.notify(ctx, payroll.EventPaymentProcessing, updated, "Your salary payment is being processed")
	}
	return updated, nil
}

func (s *PayrollServiceImpl) paymentRequest(r payroll.PayrollRecord) payroll.PaymentRequest {
	var payee string
	if r.EmployeeName != nil {
		payee = *r.EmployeeName
	}

	return payroll.PaymentRequest{
		ReferenceID:       *r.Payment.ReferenceID,
		EmployeeID:        r.EmployeeID,
		AmountMinor:       ToMinorUnits(r.NetPay),
		Currency:          s.currency,
		PayoutDestination: r.Compensation.PayoutDestination,
		PayeeName:         payee,
		Description:       fmt.Sprintf("Salary %s to %s", r.PeriodStart.Format("2006-01-02"), r.PeriodEnd.Format("2006-01-02")),
		Metadata: map[string]string{
			"payroll_record_id": r.ID,
			"employee_id":       r.EmployeeID,
			"period_start":      r.PeriodStart.Format("2006-01-02"),
			"period_end":        r.PeriodEnd.Format("2006-01-02"),
		},
	}
}

// ToMinorUnits converts a 2dp amount to cents.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(payroll.MoneyPlaces).Round(0).IntPart()
}
