package xendit

import (
	"context"
	"errors"
	"strings"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/shopspring/decimal"
)

// PayoutAPI is the subset of Client used by Gateway.
type PayoutAPI interface {
	CreatePayout(ctx context.Context, req CreatePayoutRequest) (*PayoutResponse, error)
	GetPayout(ctx context.Context, payoutID string) (*PayoutResponse, error)
}

// Gateway disburses net pay through Xendit payouts. The payroll payment
// reference is the payout reference and idempotency key, so a retried create
// for the same attempt is deduplicated by Xendit.
type Gateway struct {
	payouts            PayoutAPI
	defaultChannelCode string
}

func NewGateway(payouts PayoutAPI, defaultChannelCode string) payroll.PaymentGateway {
	return &Gateway{payouts: payouts, defaultChannelCode: strings.TrimSpace(defaultChannelCode)}
}

var errEmptyPayout = errors.New("xendit returned an empty payout")

// ParseDestination splits a payout destination of the form CHANNEL:account.
// A destination without a channel prefix uses defaultChannel.
func ParseDestination(destination, defaultChannel string) (channelCode, accountNumber string) {
	destination = strings.TrimSpace(destination)
	if channel, account, ok := strings.Cut(destination, ":"); ok {
		return strings.ToUpper(strings.TrimSpace(channel)), strings.TrimSpace(account)
	}
	return defaultChannel, destination
}

// CreatePayment implements payroll.PaymentGateway. Requests Xendit would
// reject outright come back as failed results so the record can be fixed and
// resubmitted.
func (g *Gateway) CreatePayment(ctx context.Context, req payroll.PaymentRequest) (payroll.PaymentResult, error) {
	channelCode, accountNumber := ParseDestination(req.PayoutDestination, g.defaultChannelCode)
	if channelCode == "" || accountNumber == "" {
		return rejected(req.ReferenceID, "no payout channel for destination"), nil
	}

	amount := decimal.New(req.AmountMinor, -payroll.MoneyPlaces)
	f, _ := amount.Float64()
	if !decimal.NewFromFloat32(float32(f)).Equal(amount) {
		return rejected(req.ReferenceID, "amount "+amount.StringFixed(payroll.MoneyPlaces)+" cannot be sent exactly"), nil
	}

	p, err := g.payouts.CreatePayout(ctx, CreatePayoutRequest{
		ReferenceID:       req.ReferenceID,
		ChannelCode:       channelCode,
		AccountNumber:     accountNumber,
		AccountHolderName: req.PayeeName,
		Amount:            amount,
		Currency:          req.Currency,
		Description:       req.Description,
		Metadata:          req.Metadata,
	})
	if err != nil {
		return payroll.PaymentResult{}, err
	}
	if p == nil {
		return payroll.PaymentResult{}, errEmptyPayout
	}

	return toPaymentResult(req.ReferenceID, p.ID, p.Status, p.FailureCode), nil
}

// GetPayment implements payroll.PaymentGateway.
func (g *Gateway) GetPayment(ctx context.Context, gatewayReference string) (payroll.PaymentResult, error) {
	p, err := g.payouts.GetPayout(ctx, gatewayReference)
	if err != nil {
		return payroll.PaymentResult{}, err
	}
	if p == nil {
		return payroll.PaymentResult{}, errEmptyPayout
	}

	return toPaymentResult(p.ReferenceID, p.ID, p.Status, p.FailureCode), nil
}

func rejected(referenceID, reason string) payroll.PaymentResult {
	return payroll.PaymentResult{
		ReferenceID:   referenceID,
		Status:        payroll.GatewayStatusFailed,
		FailureReason: reason,
	}
}

func toPaymentResult(referenceID, payoutID, status, failureCode string) payroll.PaymentResult {
	result := payroll.PaymentResult{
		ReferenceID:      referenceID,
		GatewayReference: payoutID,
		Status:           StatusFromPayout(status),
	}
	if result.Status == payroll.GatewayStatusFailed {
		result.FailureReason = "payout " + status
		if failureCode != "" {
			result.FailureReason += ": " + failureCode
		}
	}
	return result
}

// StatusFromPayout maps a Xendit payout status to a payroll gateway status.
// Unknown statuses are treated as pending so reconciliation keeps polling.
func StatusFromPayout(status string) payroll.GatewayStatus {
	switch strings.ToUpper(status) {
	case PayoutStatusSucceeded:
		return payroll.GatewayStatusSucceeded
	case PayoutStatusFailed, PayoutStatusCancelled, PayoutStatusReversed:
		return payroll.GatewayStatusFailed
	default:
		return payroll.GatewayStatusPending
	}
}
