package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EmployeeStatusActive     = "active"
	EmployeeStatusInactive   = "inactive"
	EmployeeStatusOnLeave    = "on_leave"
	EmployeeStatusTerminated = "terminated"
)

// EmployeeStatuses lists the accepted status values in display order. Only
// active employees count towards attendance rates.
var EmployeeStatuses = []string{
	EmployeeStatusActive,
	EmployeeStatusInactive,
	EmployeeStatusOnLeave,
	EmployeeStatusTerminated,
}

// License type classes. Each has a fixed validity period used to derive
// the expiry date.
const (
	LicenseTypePrivate      = "private"
	LicenseTypeProfessional = "professional"
)

// Employee is a person record managed by HR.
type Employee struct {
	// ID is the numeric primary key.
	ID int `json:"id" db:"id"`

	// Code is the human-readable sequential code, e.g. "EMP007".
	Code string `json:"employee_id" db:"employee_code"`

	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`
	Email     string `json:"email" db:"email"`
	Phone     string `json:"phone" db:"phone"`
	Address   string `json:"address" db:"address"`

	// DepartmentID is nil when the employee is not assigned to a department.
	DepartmentID   *int   `json:"department_id,omitempty" db:"department_id"`
	DepartmentName string `json:"department_name,omitempty" db:"-"`

	Position string          `json:"position" db:"position"`
	Salary   decimal.Decimal `json:"salary" db:"salary"`

	HireDate  *time.Time `json:"hire_date,omitempty" db:"hire_date"`
	BirthDate *time.Time `json:"birth_date,omitempty" db:"birth_date"`
	Gender    string     `json:"gender" db:"gender"`
	Status    string     `json:"status" db:"status"`

	// NationalNumber is unique across employees when present.
	NationalNumber string     `json:"national_number" db:"national_number"`
	ReleaseDate    *time.Time `json:"release_date,omitempty" db:"release_date"`

	LicenseIssuanceDate *time.Time `json:"license_issuance_date,omitempty" db:"license_issuance_date"`
	LicenseType         string     `json:"license_type" db:"license_type"`

	// LicenseExpiryDate is derived from LicenseIssuanceDate and LicenseType
	// on every create and update. It is never set from user input.
	LicenseExpiryDate *time.Time `json:"license_expiry_date,omitempty" db:"license_expiry_date"`

	AcademicQualification    string     `json:"academic_qualification" db:"academic_qualification"`
	GraduationDate           *time.Time `json:"graduation_date,omitempty" db:"graduation_date"`
	Appreciation             string     `json:"appreciation" db:"appreciation"`
	InsuranceNumber          string     `json:"insurance_number" db:"insurance_number"`
	BankAccountNumber        string     `json:"bank_account_number" db:"bank_account_number"`
	SalaryDisbursementMethod string     `json:"salary_disbursement_method" db:"salary_disbursement_method"`
	ContractType             string     `json:"contract_type" db:"contract_type"`
	ContractStart            *time.Time `json:"contract_start,omitempty" db:"contract_start"`
	ContractEnd              *time.Time `json:"contract_end,omitempty" db:"contract_end"`

	// ProfilePictureURL is the storage key of the current profile photo.
	ProfilePictureURL string `json:"profile_picture_url" db:"profile_picture_url"`

	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// FullName joins first and last name.
func (e Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// IsActive reports whether the employee counts towards active headcount.
func (e Employee) IsActive() bool {
	return e.Status == EmployeeStatusActive
}

// EmployeeFilter narrows employee listings. Zero values mean no filter.
type EmployeeFilter struct {
	DepartmentID int
	Status       string
	Search       string
	Limit        int
}

// EmployeeSummary is the JSON shape served by the employees API.
type EmployeeSummary struct {
	ID         int     `json:"id"`
	Code       string  `json:"employee_id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Position   string  `json:"position"`
	Department string  `json:"department"`
	Salary     float64 `json:"salary"`
	Status     string  `json:"status"`
}

// Summary converts the employee into its API summary.
func (e Employee) Summary() EmployeeSummary {
	return EmployeeSummary{
		ID:         e.ID,
		Code:       e.Code,
		Name:       e.FullName(),
		Email:      e.Email,
		Position:   e.Position,
		Department: e.DepartmentName,
		Salary:     e.Salary.InexactFloat64(),
		Status:     e.Status,
	}
}
