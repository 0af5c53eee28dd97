package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/auth"
	"github.com/cmlabs-hris/hris-payroll-go/internal/handler/http/response"
)

// RequireEmployee requires a token linked to an employee record. It must run
// after AuthRequired.
func RequireEmployee(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}

		if principal.EmployeeID == nil {
			response.HandleError(w, auth.ErrEmployeeAccessRequired)
			return
		}

		next.ServeHTTP(w, r)
	})
}
