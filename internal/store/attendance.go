package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hrdesk/apiserver/types"
)

// AttendanceRepository handles persistence for attendance records.
type AttendanceRepository struct {
	db *sql.DB
}

func NewAttendanceRepository(db *sql.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const attendanceColumns = `
	a.id, a.employee_id, a.attendance_date, a.check_in, a.check_out, a.status, a.notes,
	a.created_at, a.updated_at`

func scanAttendance(row rowScanner, extra ...any) (types.Attendance, error) {
	var a types.Attendance
	dest := []any{
		&a.ID,
		&a.EmployeeID,
		&a.Date,
		&a.CheckIn,
		&a.CheckOut,
		&a.Status,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	return a, err
}

// CheckIn opens the record of employeeID on date. It returns ErrConflict when
// a record for that pair already exists and ErrInvalidReference when the
// employee does not exist. The unique (employee_id, attendance_date)
// constraint decides races between concurrent check-ins.
func (r *AttendanceRepository) CheckIn(ctx context.Context, employeeID int, date, at time.Time, status string) (types.Attendance, error) {
	query := `
		INSERT INTO attendance AS a (employee_id, attendance_date, check_in, status, created_at)
		VALUES ($1, $2, $3, $4, $3)
		ON CONFLICT (employee_id, attendance_date) DO NOTHING
		RETURNING ` + attendanceColumns
	a, err := scanAttendance(r.db.QueryRowContext(ctx, query, employeeID, date, at, status))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Attendance{}, ErrConflict
		}
		return types.Attendance{}, mapError(err)
	}
	return a, nil
}

// CheckOut closes the open record of employeeID on date. It returns
// ErrNotFound when there is no record or it is already closed.
func (r *AttendanceRepository) CheckOut(ctx context.Context, employeeID int, date, at time.Time) (types.Attendance, error) {
	query := `
		UPDATE attendance AS a
		SET check_out = $1, updated_at = $1
		WHERE a.employee_id = $2 AND a.attendance_date = $3 AND a.check_out IS NULL
		RETURNING ` + attendanceColumns
	a, err := scanAttendance(r.db.QueryRowContext(ctx, query, at, employeeID, date))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Attendance{}, ErrNotFound
		}
		return types.Attendance{}, err
	}
	return a, nil
}

// Get returns the record of employeeID on date.
func (r *AttendanceRepository) Get(ctx context.Context, employeeID int, date time.Time) (types.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance a WHERE a.employee_id = $1 AND a.attendance_date = $2`
	a, err := scanAttendance(r.db.QueryRowContext(ctx, query, employeeID, date))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Attendance{}, ErrNotFound
		}
		return types.Attendance{}, err
	}
	return a, nil
}

// ListByDate returns the records of one day joined with employee details,
// latest check-in first.
func (r *AttendanceRepository) ListByDate(ctx context.Context, date time.Time) ([]types.Attendance, error) {
	query := `
		SELECT ` + attendanceColumns + `,
			e.employee_code, e.first_name || ' ' || e.last_name, e.position, COALESCE(d.name, '')
		FROM attendance a
		JOIN employees e ON a.employee_id = e.id
		LEFT JOIN departments d ON e.department_id = d.id
		WHERE a.attendance_date = $1
		ORDER BY a.check_in DESC NULLS LAST`
	rows, err := r.db.QueryContext(ctx, query, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []types.Attendance
	for rows.Next() {
		var code, name, position, department string
		a, err := scanAttendance(rows, &code, &name, &position, &department)
		if err != nil {
			return nil, err
		}
		a.EmployeeCode = code
		a.EmployeeName = name
		a.Position = position
		a.DepartmentName = department
		records = append(records, a)
	}
	return records, rows.Err()
}

// History returns the most recent records of one employee.
func (r *AttendanceRepository) History(ctx context.Context, employeeID, limit int) ([]types.Attendance, error) {
	query := `SELECT ` + attendanceColumns + `
		FROM attendance a
		WHERE a.employee_id = $1
		ORDER BY a.attendance_date DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, employeeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []types.Attendance
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, a)
	}
	return records, rows.Err()
}

// CountAttendedEmployees counts distinct employees with a present or late
// record in [from, to).
func (r *AttendanceRepository) CountAttendedEmployees(ctx context.Context, from, to time.Time) (int, error) {
	const query = `
		SELECT COUNT(DISTINCT employee_id)
		FROM attendance
		WHERE attendance_date >= $1 AND attendance_date < $2
		AND status IN ('present', 'late')`
	var count int
	err := r.db.QueryRowContext(ctx, query, from, to).Scan(&count)
	return count, err
}

// CountAttendanceRecords counts present or late records in [from, to).
func (r *AttendanceRepository) CountAttendanceRecords(ctx context.Context, from, to time.Time) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM attendance
		WHERE attendance_date >= $1 AND attendance_date < $2
		AND status IN ('present', 'late')`
	var count int
	err := r.db.QueryRowContext(ctx, query, from, to).Scan(&count)
	return count, err
}

// Report aggregates attendance per employee in [from, to), optionally
// restricted to one department.
func (r *AttendanceRepository) Report(ctx context.Context, from, to time.Time, departmentID int) ([]types.AttendanceReportRow, error) {
	query := `
		SELECT e.id, e.employee_code, e.first_name || ' ' || e.last_name AS employee_name,
			e.position, COALESCE(d.name, ''),
			COUNT(a.id) FILTER (WHERE a.status IN ('present', 'late')),
			COUNT(a.id) FILTER (WHERE a.status = 'late'),
			COUNT(a.id) FILTER (WHERE a.status = 'absent')
		FROM employees e
		LEFT JOIN departments d ON e.department_id = d.id
		LEFT JOIN attendance a ON a.employee_id = e.id
			AND a.attendance_date >= $1 AND a.attendance_date < $2`
	args := []any{from, to}
	if departmentID > 0 {
		args = append(args, departmentID)
		query += fmt.Sprintf(" WHERE e.department_id = $%d", len(args))
	}
	query += `
		GROUP BY e.id, e.employee_code, e.first_name, e.last_name, e.position, d.name
		ORDER BY employee_name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var report []types.AttendanceReportRow
	for rows.Next() {
		var row types.AttendanceReportRow
		if err := rows.Scan(
			&row.EmployeeID,
			&row.EmployeeCode,
			&row.EmployeeName,
			&row.Position,
			&row.DepartmentName,
			&row.DaysPresent,
			&row.DaysLate,
			&row.DaysAbsent,
		); err != nil {
			return nil, err
		}
		report = append(report, row)
	}
	return report, rows.Err()
}

// DailyStats returns present and late counts for every day in [from, to)
// that has at least one record.
func (r *AttendanceRepository) DailyStats(ctx context.Context, from, to time.Time) ([]types.DailyAttendanceStat, error) {
	const query = `
		SELECT attendance_date,
			COUNT(*) FILTER (WHERE status = 'present'),
			COUNT(*) FILTER (WHERE status = 'late')
		FROM attendance
		WHERE attendance_date >= $1 AND attendance_date < $2
		GROUP BY attendance_date
		ORDER BY attendance_date`
	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []types.DailyAttendanceStat
	for rows.Next() {
		var stat types.DailyAttendanceStat
		if err := rows.Scan(&stat.Date, &stat.Present, &stat.Late); err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}
