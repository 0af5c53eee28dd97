package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/auth"
	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	// Auth domain errors
	switch {
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidCallbackToken):
		Unauthorized(w, err.Error())
		return
	case errors.Is(err, auth.ErrTokenExpired):
		Unauthorized(w, "Token expired")
		return
	case errors.Is(err, auth.ErrAdminPrivilegeRequired), errors.Is(err, auth.ErrEmployeeAccessRequired):
		Forbidden(w, err.Error())
		return
	}

	// Payroll domain errors
	switch payroll.KindOf(err) {
	case payroll.KindInput:
		BadRequest(w, err.Error(), nil)
	case payroll.KindNotFound:
		NotFound(w, err.Error())
	case payroll.KindConflict:
		Conflict(w, err.Error())
	case payroll.KindPrecondition:
		PreconditionFailed(w, err.Error(), payroll.ViolationsOf(err))
	case payroll.KindGateway:
		BadGateway(w, err.Error())
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
