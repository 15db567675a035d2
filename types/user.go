package types

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents a login account.
// It may be linked to at most one Employee.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name.
	Username string `json:"username" db:"username"`

	// Email is the account's contact address. Optional.
	Email string `json:"email" db:"email"`

	// Role is either "admin" or "user".
	Role string `json:"role" db:"role"`

	// EmployeeID links the account to an employee record, if any.
	EmployeeID *int `json:"employee_id,omitempty" db:"employee_id"`

	// IsActive is false for deactivated accounts, which cannot log in.
	IsActive bool `json:"is_active" db:"is_active"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// LastLogin is the time of the most recent successful login.
	LastLogin *time.Time `json:"last_login,omitempty" db:"last_login"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`

	// Joined from the linked employee for listings.
	EmployeeName     string `json:"employee_name,omitempty" db:"-"`
	EmployeePosition string `json:"employee_position,omitempty" db:"-"`
	DepartmentName   string `json:"department_name,omitempty" db:"-"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
