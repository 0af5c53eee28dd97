package xendit

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xendit/xendit-go/v7/payout"
)

// CreatePayoutRequest is one disbursement to a bank or e-wallet account.
// ReferenceID doubles as the idempotency key.
type CreatePayoutRequest struct {
	ReferenceID       string            `json:"reference_id"`
	ChannelCode       string            `json:"channel_code"`
	AccountNumber     string            `json:"account_number"`
	AccountHolderName string            `json:"account_holder_name,omitempty"`
	Amount            decimal.Decimal   `json:"amount"`
	Currency          string            `json:"currency"`
	Description       string            `json:"description,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// PayoutResponse represents a payout as returned by create and get
type PayoutResponse struct {
	ID          string    `json:"id"`
	ReferenceID string    `json:"reference_id"`
	Status      string    `json:"status"`
	FailureCode string    `json:"failure_code,omitempty"`
	ChannelCode string    `json:"channel_code"`
	Amount      float32   `json:"amount"`
	Currency    string    `json:"currency"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
}

// PayoutStatus constants
const (
	PayoutStatusAccepted  = "ACCEPTED"
	PayoutStatusRequested = "REQUESTED"
	PayoutStatusLocked    = "LOCKED"
	PayoutStatusSucceeded = "SUCCEEDED"
	PayoutStatusFailed    = "FAILED"
	PayoutStatusCancelled = "CANCELLED"
	PayoutStatusReversed  = "REVERSED"
)

// CreatePayout sends a payout using the official Xendit SDK
func (c *Client) CreatePayout(ctx context.Context, req CreatePayoutRequest) (*PayoutResponse, error) {
	amount, _ := req.Amount.Float64()

	properties := payout.NewDigitalPayoutChannelProperties(req.AccountNumber)
	if req.AccountHolderName != "" {
		properties.SetAccountHolderName(req.AccountHolderName)
	}

	sdkReq := *payout.NewCreatePayoutRequest(req.ReferenceID, req.ChannelCode, *properties, float32(amount), req.Currency)
	if req.Description != "" {
		sdkReq.SetDescription(req.Description)
	}
	if len(req.Metadata) > 0 {
		metadata := make(map[string]interface{}, len(req.Metadata))
		for k, v := range req.Metadata {
			metadata[k] = v
		}
		sdkReq.SetMetadata(metadata)
	}

	resp, _, err := c.payoutAPI.CreatePayout(ctx).
		IdempotencyKey(req.ReferenceID).
		CreatePayoutRequest(sdkReq).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to create payout: %w", err)
	}

	return toPayoutResponse(resp), nil
}

// GetPayout retrieves a payout by ID using the official Xendit SDK
func (c *Client) GetPayout(ctx context.Context, payoutID string) (*PayoutResponse, error) {
	resp, _, err := c.payoutAPI.GetPayoutById(ctx, payoutID).Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get payout: %w", err)
	}

	return toPayoutResponse(resp), nil
}

func toPayoutResponse(resp *payout.GetPayouts200ResponseDataInner) *PayoutResponse {
	if resp == nil || resp.Payout == nil {
		return nil
	}
	p := resp.Payout

	return &PayoutResponse{
		ID:          p.GetId(),
		ReferenceID: p.GetReferenceId(),
		Status:      p.GetStatus(),
		FailureCode: p.GetFailureCode(),
		ChannelCode: p.GetChannelCode(),
		Amount:      p.GetAmount(),
		Currency:    p.GetCurrency(),
		Created:     p.GetCreated(),
		Updated:     p.GetUpdated(),
	}
}
