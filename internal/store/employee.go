package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hrdesk/apiserver/internal/db"
	"github.com/hrdesk/apiserver/types"
)

const employeeCodePrefix = "EMP"

// employeeCodeLock is the advisory lock key that serialises code assignment.
const employeeCodeLock = 0x454d50

// EmployeeRepository handles persistence for employees.
type EmployeeRepository struct {
	db *sql.DB
}

func NewEmployeeRepository(db *sql.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

const employeeColumns = `
	e.id, e.employee_code, e.first_name, e.last_name, COALESCE(e.email, ''), e.phone, e.address,
	e.department_id, COALESCE(d.name, ''), e.position, e.salary, e.hire_date, e.birth_date,
	e.gender, e.status, COALESCE(e.national_number, ''), e.release_date,
	e.license_issuance_date, e.license_type, e.license_expiry_date,
	e.academic_qualification, e.graduation_date, e.appreciation, e.insurance_number,
	e.bank_account_number, e.salary_disbursement_method, e.contract_type,
	e.contract_start, e.contract_end, e.profile_picture_url, e.created_at, e.updated_at`

const employeeJoins = `
	FROM employees e
	LEFT JOIN departments d ON e.department_id = d.id`

func scanEmployee(row rowScanner) (types.Employee, error) {
	var e types.Employee
	err := row.Scan(
		&e.ID,
		&e.Code,
		&e.FirstName,
		&e.LastName,
		&e.Email,
		&e.Phone,
		&e.Address,
		&e.DepartmentID,
		&e.DepartmentName,
		&e.Position,
		&e.Salary,
		&e.HireDate,
		&e.BirthDate,
		&e.Gender,
		&e.Status,
		&e.NationalNumber,
		&e.ReleaseDate,
		&e.LicenseIssuanceDate,
		&e.LicenseType,
		&e.LicenseExpiryDate,
		&e.AcademicQualification,
		&e.GraduationDate,
		&e.Appreciation,
		&e.InsuranceNumber,
		&e.BankAccountNumber,
		&e.SalaryDisbursementMethod,
		&e.ContractType,
		&e.ContractStart,
		&e.ContractEnd,
		&e.ProfilePictureURL,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	return e, err
}

func (r *EmployeeRepository) query(ctx context.Context, query string, args ...any) ([]types.Employee, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []types.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func (r *EmployeeRepository) GetByID(ctx context.Context, id int) (types.Employee, error) {
	query := `SELECT ` + employeeColumns + employeeJoins + ` WHERE e.id = $1`
	e, err := scanEmployee(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Employee{}, ErrNotFound
		}
		return types.Employee{}, err
	}
	return e, nil
}

// List returns employees matching filter, newest first.
func (r *EmployeeRepository) List(ctx context.Context, filter types.EmployeeFilter) ([]types.Employee, error) {
	var (
		where []string
		args  []any
	)
	if filter.DepartmentID > 0 {
		args = append(args, filter.DepartmentID)
		where = append(where, fmt.Sprintf("e.department_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("e.status = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(e.first_name ILIKE $%d OR e.last_name ILIKE $%d OR e.employee_code ILIKE $%d OR e.position ILIKE $%d)",
			n, n, n, n,
		))
	}

	query := `SELECT ` + employeeColumns + employeeJoins
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY e.created_at DESC, e.id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return r.query(ctx, query, args...)
}

// ListActive returns active employees ordered by name.
func (r *EmployeeRepository) ListActive(ctx context.Context) ([]types.Employee, error) {
	query := `SELECT ` + employeeColumns + employeeJoins + `
		WHERE e.status = 'active'
		ORDER BY e.first_name, e.last_name`
	return r.query(ctx, query)
}

// ListUnlinked returns active employees that no user account points at.
func (r *EmployeeRepository) ListUnlinked(ctx context.Context) ([]types.Employee, error) {
	query := `SELECT ` + employeeColumns + employeeJoins + `
		WHERE e.status = 'active'
		AND NOT EXISTS (SELECT 1 FROM users u WHERE u.employee_id = e.id)
		ORDER BY e.first_name, e.last_name`
	return r.query(ctx, query)
}

// ListActiveWithoutAttendance returns active employees with no attendance record on date.
func (r *EmployeeRepository) ListActiveWithoutAttendance(ctx context.Context, date time.Time) ([]types.Employee, error) {
	query := `SELECT ` + employeeColumns + employeeJoins + `
		WHERE e.status = 'active'
		AND NOT EXISTS (
			SELECT 1 FROM attendance a
			WHERE a.employee_id = e.id AND a.attendance_date = $1
		)
		ORDER BY e.first_name, e.last_name`
	return r.query(ctx, query, date)
}

// Counts returns the total and active number of employees.
func (r *EmployeeRepository) Counts(ctx context.Context) (total int, active int, err error) {
	const query = `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'active')
		FROM employees`
	err = r.db.QueryRowContext(ctx, query).Scan(&total, &active)
	return total, active, err
}

// Create inserts an employee and assigns the next sequential code inside the
// same transaction.
func (r *EmployeeRepository) Create(ctx context.Context, e types.Employee) (types.Employee, error) {
	e.CreatedAt = time.Now()
	if e.Status == "" {
		e.Status = types.EmployeeStatusActive
	}

	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		// Held until commit, so the next insert sees this row in MAX().
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, employeeCodeLock); err != nil {
			return err
		}

		const nextQuery = `
			SELECT COALESCE(MAX(CAST(SUBSTRING(employee_code FROM 4) AS INTEGER)), 0) + 1
			FROM employees
			WHERE employee_code ~ '^EMP[0-9]+$'`
		var next int
		if err := tx.QueryRowContext(ctx, nextQuery).Scan(&next); err != nil {
			return err
		}
		e.Code = FormatEmployeeCode(next)

		const insert = `
			INSERT INTO employees (
				employee_code, first_name, last_name, email, phone, address, department_id,
				position, salary, hire_date, birth_date, gender, status, national_number,
				release_date, license_issuance_date, license_type, license_expiry_date,
				academic_qualification, graduation_date, appreciation, insurance_number,
				bank_account_number, salary_disbursement_method, contract_type,
				contract_start, contract_end, profile_picture_url, created_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
				$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)
			RETURNING id`
		return tx.QueryRowContext(
			ctx,
			insert,
			e.Code,
			e.FirstName,
			e.LastName,
			nullString(e.Email),
			e.Phone,
			e.Address,
			e.DepartmentID,
			e.Position,
			e.Salary,
			e.HireDate,
			e.BirthDate,
			e.Gender,
			e.Status,
			nullString(e.NationalNumber),
			e.ReleaseDate,
			e.LicenseIssuanceDate,
			e.LicenseType,
			e.LicenseExpiryDate,
			e.AcademicQualification,
			e.GraduationDate,
			e.Appreciation,
			e.InsuranceNumber,
			e.BankAccountNumber,
			e.SalaryDisbursementMethod,
			e.ContractType,
			e.ContractStart,
			e.ContractEnd,
			e.ProfilePictureURL,
			e.CreatedAt,
		).Scan(&e.ID)
	})
	if err != nil {
		return types.Employee{}, mapError(err)
	}
	return e, nil
}

// Update writes every editable column. The employee code and profile picture
// are left untouched.
func (r *EmployeeRepository) Update(ctx context.Context, e types.Employee) (types.Employee, error) {
	now := time.Now()
	e.UpdatedAt = &now

	const query = `
		UPDATE employees
		SET first_name = $1,
			last_name = $2,
			email = $3,
			phone = $4,
			address = $5,
			department_id = $6,
			position = $7,
			salary = $8,
			hire_date = $9,
			birth_date = $10,
			gender = $11,
			status = $12,
			national_number = $13,
			release_date = $14,
			license_issuance_date = $15,
			license_type = $16,
			license_expiry_date = $17,
			academic_qualification = $18,
			graduation_date = $19,
			appreciation = $20,
			insurance_number = $21,
			bank_account_number = $22,
			salary_disbursement_method = $23,
			contract_type = $24,
			contract_start = $25,
			contract_end = $26,
			updated_at = $27
		WHERE id = $28`
	err := execAffectingOne(
		ctx,
		r.db,
		query,
		e.FirstName,
		e.LastName,
		nullString(e.Email),
		e.Phone,
		e.Address,
		e.DepartmentID,
		e.Position,
		e.Salary,
		e.HireDate,
		e.BirthDate,
		e.Gender,
		e.Status,
		nullString(e.NationalNumber),
		e.ReleaseDate,
		e.LicenseIssuanceDate,
		e.LicenseType,
		e.LicenseExpiryDate,
		e.AcademicQualification,
		e.GraduationDate,
		e.Appreciation,
		e.InsuranceNumber,
		e.BankAccountNumber,
		e.SalaryDisbursementMethod,
		e.ContractType,
		e.ContractStart,
		e.ContractEnd,
		now,
		e.ID,
	)
	if err != nil {
		return types.Employee{}, err
	}
	return e, nil
}

// Delete removes the employee. Attendance, files and photos cascade.
func (r *EmployeeRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM employees WHERE id = $1`
	return execAffectingOne(ctx, r.db, query, id)
}

// FormatEmployeeCode renders n as an employee code, e.g. 7 -> "EMP007".
func FormatEmployeeCode(n int) string {
	return fmt.Sprintf("%s%03d", employeeCodePrefix, n)
}
