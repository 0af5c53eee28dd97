package xendit

import (
	"crypto/subtle"
	"strings"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
)

// WebhookVerifier handles webhook signature verification
type WebhookVerifier struct {
	webhookToken string
}

// NewWebhookVerifier creates a new webhook verifier
func NewWebhookVerifier(webhookToken string) *WebhookVerifier {
	return &WebhookVerifier{
		webhookToken: webhookToken,
	}
}

// VerifySignature compares the x-callback-token header with the configured
// verification token. An unconfigured token rejects every callback.
func (v *WebhookVerifier) VerifySignature(callbackToken string) bool {
	expected := strings.TrimSpace(v.webhookToken)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(callbackToken)), []byte(expected)) == 1
}

// PayoutWebhookPayload is the body of payout.succeeded / payout.failed
// callbacks.
type PayoutWebhookPayload struct {
	Event      string            `json:"event"`
	BusinessID string            `json:"business_id"`
	Created    string            `json:"created"`
	Data       PayoutWebhookData `json:"data"`
}

type PayoutWebhookData struct {
	ID          string  `json:"id"`
	ReferenceID string  `json:"reference_id"`
	Status      string  `json:"status"`
	FailureCode string  `json:"failure_code,omitempty"`
	ChannelCode string  `json:"channel_code"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Updated     string  `json:"updated"`
}

// ToCallback converts the payload into a payroll gateway callback.
func (p PayoutWebhookPayload) ToCallback() payroll.GatewayCallback {
	result := toPaymentResult(p.Data.ReferenceID, p.Data.ID, p.Data.Status, p.Data.FailureCode)
	return payroll.GatewayCallback{
		ReferenceID:      result.ReferenceID,
		GatewayReference: result.GatewayReference,
		Status:           result.Status,
		FailureReason:    result.FailureReason,
	}
}
