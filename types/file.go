package types

import "time"

// EmployeeFile is a document attached to an employee.
type EmployeeFile struct {
	ID          int       `json:"id" db:"id"`
	EmployeeID  int       `json:"employee_id" db:"employee_id"`
	URL         string    `json:"file_url" db:"file_url"`
	Name        string    `json:"file_name" db:"file_name"`
	Type        string    `json:"file_type" db:"file_type"`
	Size        int64     `json:"file_size" db:"file_size"`
	Category    string    `json:"file_category" db:"file_category"`
	Description string    `json:"description" db:"description"`
	UploadedBy  *int      `json:"uploaded_by,omitempty" db:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// EmployeePhoto is an image attached to an employee. The most recently
// uploaded photo becomes the employee's profile picture.
type EmployeePhoto struct {
	ID         int       `json:"id" db:"id"`
	EmployeeID int       `json:"employee_id" db:"employee_id"`
	URL        string    `json:"photo_url" db:"photo_url"`
	Name       string    `json:"photo_name" db:"photo_name"`
	Size       int64     `json:"file_size" db:"file_size"`
	UploadedBy *int      `json:"uploaded_by,omitempty" db:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
