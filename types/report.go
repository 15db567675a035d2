package types

import "time"

// AttendanceReportRow aggregates one employee's attendance over a month.
type AttendanceReportRow struct {
	EmployeeID     int    `json:"id"`
	EmployeeCode   string `json:"employee_id"`
	EmployeeName   string `json:"employee_name"`
	Position       string `json:"position"`
	DepartmentName string `json:"department_name"`
	DaysPresent    int    `json:"days_present"`
	DaysLate       int    `json:"days_late"`
	DaysAbsent     int    `json:"days_absent"`
}

// DailyAttendanceStat counts present and late records on one date.
type DailyAttendanceStat struct {
	Date    time.Time `json:"date"`
	Present int       `json:"present"`
	Late    int       `json:"late"`
}

// AttendanceStats is the chart payload of the attendance stats API.
type AttendanceStats struct {
	Dates   []string `json:"dates"`
	Present []int    `json:"present"`
	Late    []int    `json:"late"`
}

// Dashboard holds the headline numbers of the landing page.
type Dashboard struct {
	TotalEmployees   int `json:"total_employees"`
	TotalDepartments int `json:"total_departments"`
	ActiveEmployees  int `json:"active_employees"`
	TodayAttendance  int `json:"today_attendance"`

	// DailyAttendanceRate is employees with a present/late record today
	// over active employees, as a percentage.
	DailyAttendanceRate float64 `json:"daily_attendance_rate"`

	// ActiveHeadcountRatio is active over total employees, as a percentage.
	ActiveHeadcountRatio float64 `json:"active_headcount_ratio"`

	RecentEmployees []Employee `json:"recent_employees"`
}

// AttendanceOverview backs the attendance landing page.
type AttendanceOverview struct {
	Today           time.Time    `json:"today"`
	ActiveEmployees int          `json:"active_employees"`
	TodayAttendance int          `json:"today_attendance"`
	DailyRate       float64      `json:"daily_rate"`
	MonthlyRate     float64      `json:"monthly_rate"`
	TodayRecords    []Attendance `json:"today_records"`
	AbsentToday     []Employee   `json:"absent_today"`
}

// MonthlyAttendanceRates exposes both monthly formulas under distinct names.
type MonthlyAttendanceRates struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`

	// CoverageRate is distinct employees with a present/late record in the
	// month over active employees.
	CoverageRate float64 `json:"coverage_rate"`

	// WorkingDayRate is present/late record count over active employees
	// multiplied by working days in the month.
	WorkingDayRate float64 `json:"working_day_rate"`
	WorkingDays    int     `json:"working_days"`
}

// ReportsOverview backs the reports page.
type ReportsOverview struct {
	TotalEmployees   int                    `json:"total_employees"`
	ActiveEmployees  int                    `json:"active_employees"`
	TotalDepartments int                    `json:"total_departments"`
	Employees        []Employee             `json:"employees"`
	Departments      []Department           `json:"departments"`
	Monthly          MonthlyAttendanceRates `json:"monthly"`
}
