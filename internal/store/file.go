package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hrdesk/apiserver/internal/db"
	"github.com/hrdesk/apiserver/types"
)

// FileRepository handles persistence for employee documents and photos.
type FileRepository struct {
	db *sql.DB
}

func NewFileRepository(db *sql.DB) *FileRepository {
	return &FileRepository{db: db}
}

const fileColumns = `
	id, employee_id, file_url, file_name, file_type, file_size, file_category,
	description, uploaded_by, created_at`

func scanFile(row rowScanner) (types.EmployeeFile, error) {
	var f types.EmployeeFile
	err := row.Scan(
		&f.ID,
		&f.EmployeeID,
		&f.URL,
		&f.Name,
		&f.Type,
		&f.Size,
		&f.Category,
		&f.Description,
		&f.UploadedBy,
		&f.CreatedAt,
	)
	return f, err
}

const photoColumns = `id, employee_id, photo_url, photo_name, file_size, uploaded_by, created_at`

func scanPhoto(row rowScanner) (types.EmployeePhoto, error) {
	var p types.EmployeePhoto
	err := row.Scan(
		&p.ID,
		&p.EmployeeID,
		&p.URL,
		&p.Name,
		&p.Size,
		&p.UploadedBy,
		&p.CreatedAt,
	)
	return p, err
}

func (r *FileRepository) CreateFile(ctx context.Context, f types.EmployeeFile) (types.EmployeeFile, error) {
	f.CreatedAt = time.Now()

	const query = `
		INSERT INTO employee_files (
			employee_id, file_url, file_name, file_type, file_size, file_category,
			description, uploaded_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		f.EmployeeID,
		f.URL,
		f.Name,
		f.Type,
		f.Size,
		f.Category,
		f.Description,
		f.UploadedBy,
		f.CreatedAt,
	).Scan(&f.ID); err != nil {
		return types.EmployeeFile{}, mapError(err)
	}
	return f, nil
}

func (r *FileRepository) GetFile(ctx context.Context, id int) (types.EmployeeFile, error) {
	query := `SELECT ` + fileColumns + ` FROM employee_files WHERE id = $1`
	f, err := scanFile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.EmployeeFile{}, ErrNotFound
		}
		return types.EmployeeFile{}, err
	}
	return f, nil
}

func (r *FileRepository) ListFiles(ctx context.Context, employeeID int) ([]types.EmployeeFile, error) {
	query := `SELECT ` + fileColumns + ` FROM employee_files WHERE employee_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []types.EmployeeFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (r *FileRepository) DeleteFile(ctx context.Context, id int) error {
	return execAffectingOne(ctx, r.db, `DELETE FROM employee_files WHERE id = $1`, id)
}

// AddPhoto records a photo and makes it the employee's profile picture in
// one transaction.
func (r *FileRepository) AddPhoto(ctx context.Context, p types.EmployeePhoto) (types.EmployeePhoto, error) {
	p.CreatedAt = time.Now()

	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		const insert = `
			INSERT INTO employee_photos (employee_id, photo_url, photo_name, file_size, uploaded_by, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`
		if err := tx.QueryRowContext(
			ctx,
			insert,
			p.EmployeeID,
			p.URL,
			p.Name,
			p.Size,
			p.UploadedBy,
			p.CreatedAt,
		).Scan(&p.ID); err != nil {
			return err
		}

		const profile = `UPDATE employees SET profile_picture_url = $1, updated_at = $2 WHERE id = $3`
		return execAffectingOne(ctx, tx, profile, p.URL, p.CreatedAt, p.EmployeeID)
	})
	if err != nil {
		return types.EmployeePhoto{}, mapError(err)
	}
	return p, nil
}

func (r *FileRepository) GetPhoto(ctx context.Context, id int) (types.EmployeePhoto, error) {
	query := `SELECT ` + photoColumns + ` FROM employee_photos WHERE id = $1`
	p, err := scanPhoto(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.EmployeePhoto{}, ErrNotFound
		}
		return types.EmployeePhoto{}, err
	}
	return p, nil
}

func (r *FileRepository) ListPhotos(ctx context.Context, employeeID int) ([]types.EmployeePhoto, error) {
	query := `SELECT ` + photoColumns + ` FROM employee_photos WHERE employee_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []types.EmployeePhoto
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

// DeletePhoto removes a photo and clears the employee's profile picture when
// it pointed at that photo.
func (r *FileRepository) DeletePhoto(ctx context.Context, id int) error {
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var (
			employeeID int
			url        string
		)
		const del = `DELETE FROM employee_photos WHERE id = $1 RETURNING employee_id, photo_url`
		if err := tx.QueryRowContext(ctx, del, id).Scan(&employeeID, &url); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		const clearProfile = `
			UPDATE employees SET profile_picture_url = '', updated_at = NOW()
			WHERE id = $1 AND profile_picture_url = $2`
		_, err := tx.ExecContext(ctx, clearProfile, employeeID, url)
		return err
	})
	return mapError(err)
}

// ObjectKeys returns the storage keys of every file and photo of an employee.
func (r *FileRepository) ObjectKeys(ctx context.Context, employeeID int) ([]string, error) {
	const query = `
		SELECT file_url FROM employee_files WHERE employee_id = $1
		UNION ALL
		SELECT photo_url FROM employee_photos WHERE employee_id = $1`
	rows, err := r.db.QueryContext(ctx, query, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
