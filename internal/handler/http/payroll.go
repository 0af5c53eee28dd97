package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/auth"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-payroll-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type PayrollHandler interface {
	// Generation
	GeneratePayroll(w http.ResponseWriter, r *http.Request)

	// Records
	ListPayrollRecords(w http.ResponseWriter, r *http.Request)
	GetPayrollRecord(w http.ResponseWriter, r *http.Request)
	GetPayslip(w http.ResponseWriter, r *http.Request)
	UpdatePayrollRecord(w http.ResponseWriter, r *http.Request)
	ValidateWorkingHours(w http.ResponseWriter, r *http.Request)

	// Approvals
	ApproveOvertime(w http.ResponseWriter, r *http.Request)
	SignOff(w http.ResponseWriter, r *http.Request)

	// Payments
	SubmitPayment(w http.ResponseWriter, r *http.Request)
	ProcessPayments(w http.ResponseWriter, r *http.Request)
	UpdatePaymentStatus(w http.ResponseWriter, r *http.Request)
	ReconcilePayments(w http.ResponseWriter, r *http.Request)

	// Reporting
	GetStatistics(w http.ResponseWriter, r *http.Request)
	GetOvertimePolicy(w http.ResponseWriter, r *http.Request)

	// Self service
	ListMyPayrollRecords(w http.ResponseWriter, r *http.Request)
	GetMyPayslip(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollService
}

func NewPayrollHandler(payrollService payroll.PayrollService) PayrollHandler {
	return &payrollHandlerImpl{payrollService: payrollService}
}

// decodeBody decodes an optional JSON body into dst. An empty body leaves dst
// untouched.
func decodeBody(r *http.Request, dst interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(dst)
}

// writeDecodeError reports unknown payroll options as input errors and
// anything else as a malformed body.
func writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, payroll.ErrUnknownOption) {
		response.HandleError(w, err)
		return
	}
	response.BadRequest(w, "Invalid request body", nil)
}

func principal(r *http.Request) auth.Principal {
	p, _ := middleware.PrincipalFromContext(r.Context())
	return p
}

func filterFromQuery(r *http.Request) payroll.PayrollFilter {
	q := r.URL.Query()
	filter := payroll.PayrollFilter{
		Page:  validator.ParsePositiveInt(q.Get("page"), 1),
		Limit: validator.ParsePositiveInt(q.Get("limit"), 20),
	}
	if v := q.Get("employee_id"); v != "" {
		filter.EmployeeID = &v
	}
	if v := q.Get("status"); v != "" {
		filter.Status = &v
	}
	if v := q.Get("period_start"); v != "" {
		filter.PeriodStart = &v
	}
	if v := q.Get("period_end"); v != "" {
		filter.PeriodEnd = &v
	}
	return filter
}

func writeRecordList(w http.ResponseWriter, result payroll.ListPayrollRecordResponse) {
	response.SuccessWithMeta(w, result.Data, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalCount,
		TotalPages: result.TotalPages,
	})
}

// ========== GENERATION ==========

func (h *payrollHandlerImpl) GeneratePayroll(w http.ResponseWriter, r *http.Request) {
	var req payroll.GeneratePayrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, err)
		return
	}

	result, err := h.payrollService.GeneratePayroll(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payroll generated", result)
}

// ========== RECORDS ==========

func (h *payrollHandlerImpl) ListPayrollRecords(w http.ResponseWriter, r *http.Request) {
	result, err := h.payrollService.ListPayrollRecords(r.Context(), filterFromQuery(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	writeRecordList(w, result)
}

func (h *payrollHandlerImpl) GetPayrollRecord(w http.ResponseWriter, r *http.Request) {
	result, err := h.payrollService.GetPayrollRecord(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) GetPayslip(w http.ResponseWriter, r *http.Request) {
	result, err := h.payrollService.GetPayslip(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) UpdatePayrollRecord(w http.ResponseWriter, r *http.Request) {
	var req payroll.UpdatePayrollRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.ID = chi.URLParam(r, "id")

	result, err := h.payrollService.UpdatePayrollRecord(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) ValidateWorkingHours(w http.ResponseWriter, r *http.Request) {
	violations, err := h.payrollService.ValidateWorkingHours(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	if violations == nil {
		violations = []string{}
	}

	response.Success(w, map[string]interface{}{
		"compliant":  len(violations) == 0,
		"violations": violations,
	})
}

// ========== APPROVALS ==========

func (h *payrollHandlerImpl) ApproveOvertime(w http.ResponseWriter, r *http.Request) {
	var req payroll.ApproveOvertimeRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.RecordID = chi.URLParam(r, "id")
	req.AdminID = principal(r).ActorID()

	result, err := h.payrollService.ApproveOvertime(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Overtime approved", result)
}

func (h *payrollHandlerImpl) SignOff(w http.ResponseWriter, r *http.Request) {
	req := payroll.SignOffRequest{
		RecordID: chi.URLParam(r, "id"),
		AdminID:  principal(r).ActorID(),
	}

	result, err := h.payrollService.SignOff(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll record approved", result)
}

// ========== PAYMENTS ==========

func (h *payrollHandlerImpl) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	var req payroll.SubmitPaymentRequest
	if err := decodeBody(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	req.RecordID = chi.URLParam(r, "id")

	result, err := h.payrollService.SubmitPayment(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) ProcessPayments(w http.ResponseWriter, r *http.Request) {
	var req payroll.ProcessPaymentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, err)
		return
	}

	result, err := h.payrollService.ProcessPayments(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req payroll.UpdatePaymentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.RecordID = chi.URLParam(r, "id")
	req.AdminID = principal(r).ActorID()

	result, err := h.payrollService.UpdatePaymentStatus(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) ReconcilePayments(w http.ResponseWriter, r *http.Request) {
	limit := validator.ParsePositiveInt(r.URL.Query().Get("limit"), 100)

	resolved, err := h.payrollService.ReconcileProcessing(r.Context(), limit)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, map[string]int{"resolved": resolved})
}

// ========== REPORTING ==========

func (h *payrollHandlerImpl) GetStatistics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	result, err := h.payrollService.GetStatistics(r.Context(), q.Get("period_start"), q.Get("period_end"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) GetOvertimePolicy(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.payrollService.GetOvertimePolicy(r.Context()))
}

// ========== SELF SERVICE ==========

func (h *payrollHandlerImpl) ListMyPayrollRecords(w http.ResponseWriter, r *http.Request) {
	filter := filterFromQuery(r)
	filter.EmployeeID = principal(r).EmployeeID

	result, err := h.payrollService.ListPayrollRecords(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	writeRecordList(w, result)
}

// GetMyPayslip returns a payslip owned by the caller. Records of other
// employees are reported as not found.
func (h *payrollHandlerImpl) GetMyPayslip(w http.ResponseWriter, r *http.Request) {
	employeeID := principal(r).EmployeeID

	result, err := h.payrollService.GetPayslip(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	if employeeID == nil || result.EmployeeID != *employeeID {
		response.HandleError(w, payroll.ErrRecordNotFound)
		return
	}

	response.Success(w, result)
}
