package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hrdesk/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
	u.id, u.username, u.email, u.role, u.employee_id, u.is_active,
	u.password_hash, u.last_login, u.created_at, u.updated_at,
	COALESCE(e.first_name || ' ' || e.last_name, ''),
	COALESCE(e.position, ''),
	COALESCE(d.name, '')`

const userJoins = `
	FROM users u
	LEFT JOIN employees e ON u.employee_id = e.id
	LEFT JOIN departments d ON e.department_id = d.id`

func scanUser(row rowScanner) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Role,
		&user.EmployeeID,
		&user.IsActive,
		&user.PasswordHash,
		&user.LastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.EmployeeName,
		&user.EmployeePosition,
		&user.DepartmentName,
	)
	return user, err
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	query := `SELECT ` + userColumns + userJoins + ` WHERE u.id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	query := `SELECT ` + userColumns + userJoins + ` WHERE u.username = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

// List returns every user with its linked employee details, newest first.
func (r *UserRepository) List(ctx context.Context) ([]types.User, error) {
	query := `SELECT ` + userColumns + userJoins + ` ORDER BY u.created_at DESC, u.id DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	user.CreatedAt = time.Now()

	const query = `
		INSERT INTO users (username, email, role, employee_id, is_active, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.Role,
		user.EmployeeID,
		user.IsActive,
		user.PasswordHash,
		user.CreatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, mapError(err)
	}
	return user, nil
}

// Update writes the profile fields of a user. The password hash is only
// replaced when user.PasswordHash is non-empty.
func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.UpdatedAt = &now

	const query = `
		UPDATE users
		SET username = $1,
			email = $2,
			role = $3,
			employee_id = $4,
			is_active = $5,
			password_hash = COALESCE(NULLIF($6, ''), password_hash),
			updated_at = $7
		WHERE id = $8`
	result, err := r.db.ExecContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.Role,
		user.EmployeeID,
		user.IsActive,
		user.PasswordHash,
		now,
		user.ID,
	)
	if err != nil {
		return types.User{}, mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.User{}, err
	}
	if affected == 0 {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	const query = `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`
	return execAffectingOne(ctx, r.db, query, passwordHash, id)
}

func (r *UserRepository) SetActive(ctx context.Context, id int, active bool) error {
	const query = `UPDATE users SET is_active = $1, updated_at = NOW() WHERE id = $2`
	return execAffectingOne(ctx, r.db, query, active, id)
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id int, at time.Time) error {
	const query = `UPDATE users SET last_login = $1 WHERE id = $2`
	return execAffectingOne(ctx, r.db, query, at, id)
}

func (r *UserRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM users WHERE id = $1`
	return execAffectingOne(ctx, r.db, query, id)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func execAffectingOne(ctx context.Context, db execer, query string, args ...any) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
