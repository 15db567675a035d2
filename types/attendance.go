package types

import "time"

const (
	AttendanceStatusPresent = "present"
	AttendanceStatusLate    = "late"
	AttendanceStatusAbsent  = "absent"
)

const (
	AttendanceActionCheckIn  = "check_in"
	AttendanceActionCheckOut = "check_out"
)

// Attendance is the single record of one employee on one calendar date.
// A record with CheckOut == nil is an open check-in.
type Attendance struct {
	ID         int        `json:"id" db:"id"`
	EmployeeID int        `json:"employee_id" db:"employee_id"`
	Date       time.Time  `json:"attendance_date" db:"attendance_date"`
	CheckIn    *time.Time `json:"check_in,omitempty" db:"check_in"`
	CheckOut   *time.Time `json:"check_out,omitempty" db:"check_out"`
	Status     string     `json:"status" db:"status"`
	Notes      string     `json:"notes" db:"notes"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty" db:"updated_at"`

	// Joined from the employee for listings.
	EmployeeCode   string `json:"employee_code,omitempty" db:"-"`
	EmployeeName   string `json:"employee_name,omitempty" db:"-"`
	Position       string `json:"position,omitempty" db:"-"`
	DepartmentName string `json:"department_name,omitempty" db:"-"`
}

// Completed reports whether both halves of the record are set.
func (a Attendance) Completed() bool {
	return a.CheckIn != nil && a.CheckOut != nil
}

// MarkAttendanceRequest is the JSON body of the mark attendance endpoint.
type MarkAttendanceRequest struct {
	EmployeeID int    `json:"employee_id"`
	Action     string `json:"action"`
}

// MarkAttendanceResponse is the JSON reply of the mark attendance endpoint.
type MarkAttendanceResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
