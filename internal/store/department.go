package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hrdesk/apiserver/internal/db"
	"github.com/hrdesk/apiserver/types"
)

// DepartmentRepository handles persistence for departments.
type DepartmentRepository struct {
	db *sql.DB
}

func NewDepartmentRepository(db *sql.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

const departmentSelect = `
	SELECT d.id, d.name, d.description, d.manager_id,
		COALESCE(m.first_name || ' ' || m.last_name, ''),
		(SELECT COUNT(*) FROM employees e WHERE e.department_id = d.id),
		d.created_at
	FROM departments d
	LEFT JOIN employees m ON d.manager_id = m.id`

func scanDepartment(row rowScanner) (types.Department, error) {
	var d types.Department
	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Description,
		&d.ManagerID,
		&d.ManagerName,
		&d.EmployeeCount,
		&d.CreatedAt,
	)
	return d, err
}

func (r *DepartmentRepository) GetByID(ctx context.Context, id int) (types.Department, error) {
	d, err := scanDepartment(r.db.QueryRowContext(ctx, departmentSelect+` WHERE d.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Department{}, ErrNotFound
		}
		return types.Department{}, err
	}
	return d, nil
}

func (r *DepartmentRepository) GetByName(ctx context.Context, name string) (types.Department, error) {
	d, err := scanDepartment(r.db.QueryRowContext(ctx, departmentSelect+` WHERE d.name = $1`, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Department{}, ErrNotFound
		}
		return types.Department{}, err
	}
	return d, nil
}

// List returns all departments with their live employee counts, ordered by name.
func (r *DepartmentRepository) List(ctx context.Context) ([]types.Department, error) {
	rows, err := r.db.QueryContext(ctx, departmentSelect+` ORDER BY d.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var departments []types.Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		departments = append(departments, d)
	}
	return departments, rows.Err()
}

func (r *DepartmentRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM departments`).Scan(&count)
	return count, err
}

func (r *DepartmentRepository) Create(ctx context.Context, d types.Department) (types.Department, error) {
	d.CreatedAt = time.Now()

	const query = `
		INSERT INTO departments (name, description, manager_id, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		d.Name,
		d.Description,
		d.ManagerID,
		d.CreatedAt,
	).Scan(&d.ID); err != nil {
		return types.Department{}, mapError(err)
	}
	return d, nil
}

func (r *DepartmentRepository) Update(ctx context.Context, d types.Department) (types.Department, error) {
	const query = `
		UPDATE departments
		SET name = $1,
			description = $2,
			manager_id = $3
		WHERE id = $4`
	if err := execAffectingOne(ctx, r.db, query, d.Name, d.Description, d.ManagerID, d.ID); err != nil {
		return types.Department{}, err
	}
	return d, nil
}

// DeleteIfEmpty removes the department only when no employee is assigned to
// it. The department row is locked for the duration of the check so a
// concurrent assignment cannot slip in between count and delete.
func (r *DepartmentRepository) DeleteIfEmpty(ctx context.Context, id int) error {
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var locked int
		err := tx.QueryRowContext(ctx, `SELECT id FROM departments WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM employees WHERE department_id = $1`, id).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return ErrInUse
		}

		return execAffectingOne(ctx, tx, `DELETE FROM departments WHERE id = $1`, id)
	})
	return mapError(err)
}
