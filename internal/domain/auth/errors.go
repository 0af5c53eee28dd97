package auth

import "errors"

var (
	ErrInvalidToken           = errors.New("invalid or expired token")
	ErrTokenExpired           = errors.New("token has expired")
	ErrAdminPrivilegeRequired = errors.New("payroll admin privilege required")
	ErrEmployeeAccessRequired = errors.New("token is not linked to an employee")
	ErrInvalidCallbackToken   = errors.New("invalid callback token")
)
