package types

import "time"

// Session is the server-side record behind a session cookie.
type Session struct {
	ID        string    `json:"id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id"`
	Remember  bool      `json:"remember" db:"remember"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Identity is the logical user derived from a valid session. It is passed
// explicitly to every handler through the request context.
type Identity struct {
	SessionID  string `json:"-"`
	UserID     int    `json:"user_id"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	EmployeeID *int   `json:"employee_id,omitempty"`
}

// IsAdmin reports whether the identity holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// OwnsEmployee reports whether the identity is linked to the given employee.
func (i Identity) OwnsEmployee(employeeID int) bool {
	return i.EmployeeID != nil && *i.EmployeeID == employeeID
}
