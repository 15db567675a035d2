package types

import "time"

// Department groups employees and optionally names one of them as manager.
type Department struct {
	ID          int    `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`

	// ManagerID references an Employee. Nil when no manager is assigned.
	ManagerID   *int   `json:"manager_id,omitempty" db:"manager_id"`
	ManagerName string `json:"manager_name,omitempty" db:"-"`

	// EmployeeCount is the live number of employees assigned to the department.
	EmployeeCount int `json:"employee_count" db:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
