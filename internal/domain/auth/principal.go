package auth

// Role mirrors the role claim issued by the HR core.
type Role string

const (
	RoleOwner    Role = "owner"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// Principal is the authenticated caller extracted from an access token.
type Principal struct {
	UserID     string
	EmployeeID *string
	Role       Role
	IsAdmin    bool
}

// CanAdministerPayroll reports whether the caller may run payroll
// operations for other employees.
func (p Principal) CanAdministerPayroll() bool {
	return p.IsAdmin || p.Role == RoleOwner || p.Role == RoleManager
}

// ActorID identifies the caller in audit fields.
func (p Principal) ActorID() string {
	if p.EmployeeID != nil && *p.EmployeeID != "" {
		return *p.EmployeeID
	}
	return p.UserID
}
