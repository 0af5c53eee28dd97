package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/auth"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/xendit"
)

type WebhookHandler interface {
	HandleXenditPayout(w http.ResponseWriter, r *http.Request)
}

type webhookHandlerImpl struct {
	payrollService  payroll.PayrollService
	webhookVerifier *xendit.WebhookVerifier
}

func NewWebhookHandler(payrollService payroll.PayrollService, webhookVerifier *xendit.WebhookVerifier) WebhookHandler {
	return &webhookHandlerImpl{
		payrollService:  payrollService,
		webhookVerifier: webhookVerifier,
	}
}

// HandleXenditPayout applies a Xendit payout callback to its payroll record.
// POST /api/v1/webhooks/xendit/payout - Public (callback token verified)
//
// Callbacks that no longer apply to a record are acknowledged so Xendit
// stops retrying them.
func (h *webhookHandlerImpl) HandleXenditPayout(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		response.BadRequest(w, "failed to read request body", nil)
		return
	}

	if !h.webhookVerifier.VerifySignature(r.Header.Get("X-Callback-Token")) {
		response.HandleError(w, auth.ErrInvalidCallbackToken)
		return
	}

	var payload xendit.PayoutWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.Data.ReferenceID == "" {
		response.BadRequest(w, "invalid webhook payload", nil)
		return
	}

	callback := payload.ToCallback()
	if callback.Status == payroll.GatewayStatusPending {
		response.Success(w, map[string]string{"status": "received"})
		return
	}

	_, err = h.payrollService.HandleGatewayCallback(r.Context(), callback)
	switch {
	case err == nil:
		response.Success(w, map[string]string{"status": "received"})
	case errors.Is(err, payroll.ErrRecordNotFound),
		errors.Is(err, payroll.ErrStalePaymentReference),
		errors.Is(err, payroll.ErrRecordAlreadyPaid),
		errors.Is(err, payroll.ErrInvalidTransition):
		slog.Warn("Ignoring payment callback", "reference_id", callback.ReferenceID, "gateway_reference", callback.GatewayReference, "error", err)
		response.Success(w, map[string]string{"status": "ignored"})
	default:
		response.HandleError(w, err)
	}
}
