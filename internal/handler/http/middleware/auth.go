package middleware

import (
	"context"
	"net/http"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/auth"
	"github.com/cmlabs-hris/hris-payroll-go/internal/handler/http/response"
	"github.com/go-chi/jwtauth/v5"
)

type principalKey struct{}

// AuthRequired rejects requests without a valid access token and stores the
// caller's Principal in the request context.
func AuthRequired(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}

			if token == nil {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			tokenType, ok := claims["type"].(string)
			if tokenType != "access" || !ok {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			userID, _ := claims["user_id"].(string)
			if userID == "" {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			principal := auth.Principal{UserID: userID}
			if employeeID, ok := claims["employee_id"].(string); ok && employeeID != "" {
				principal.EmployeeID = &employeeID
			}
			if role, ok := claims["role"].(string); ok {
				principal.Role = auth.Role(role)
			}
			if isAdmin, ok := claims["is_admin"].(bool); ok {
				principal.IsAdmin = isAdmin
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, principal)))
		}
		return http.HandlerFunc(hfn)
	}
}

// PrincipalFromContext returns the caller stored by AuthRequired.
func PrincipalFromContext(ctx context.Context) (auth.Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(auth.Principal)
	return principal, ok
}
