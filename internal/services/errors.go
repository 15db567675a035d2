package services

import (
	"errors"
	"sort"

	"github.com/hrdesk/apiserver/internal/store"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = store.ErrNotFound

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrSessionExpired     = errors.New("session expired")
	ErrForbidden          = errors.New("forbidden")

	ErrAlreadyCheckedIn = errors.New("attendance already recorded for today")
	ErrNoOpenCheckIn    = errors.New("no open check-in for today")

	ErrDepartmentNotEmpty = errors.New("department has employees")

	ErrSelfDelete     = errors.New("cannot delete own account")
	ErrSelfDeactivate = errors.New("cannot deactivate own account")
	ErrPrimaryAdmin   = errors.New("cannot delete primary admin account")
	// ErrPrimaryAdminLocked rejects renaming, demoting or deactivating the primary admin.
	ErrPrimaryAdminLocked = errors.New("primary admin must keep its username, role and active status")

	ErrUnsupportedFileType = errors.New("file type not allowed")
	ErrFileTooLarge        = errors.New("file too large")
	ErrEmptyFile           = errors.New("no file selected")

	ErrDuplicate = errors.New("duplicate record")
	// ErrEmployeeCodeTaken means a concurrent insert claimed the same employee code.
	ErrEmployeeCodeTaken = errors.New("employee code already assigned")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// Add records a field level validation error. The first message for a field wins.
func (v *ValidationError) Add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// First returns one message in a stable order, for single-line notices.
func (v *ValidationError) First() string {
	if !v.HasErrors() {
		return ""
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return v.FieldErrors[fields[0]]
}

func (v *ValidationError) orNil() error {
	if v.HasErrors() {
		return v
	}
	return nil
}

func fieldError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

// AsValidation unwraps a ValidationError from err.
func AsValidation(err error) (*ValidationError, bool) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrAccountDisabled):
		return "account_disabled"
	case errors.Is(err, ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrAlreadyCheckedIn), errors.Is(err, ErrNoOpenCheckIn):
		return "attendance_state"
	case errors.Is(err, ErrDepartmentNotEmpty),
		errors.Is(err, ErrSelfDelete),
		errors.Is(err, ErrSelfDeactivate),
		errors.Is(err, ErrPrimaryAdmin),
		errors.Is(err, ErrPrimaryAdminLocked):
		return "rule"
	case errors.Is(err, ErrUnsupportedFileType), errors.Is(err, ErrFileTooLarge), errors.Is(err, ErrEmptyFile):
		return "upload"
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrEmployeeCodeTaken):
		return "duplicate"
	}
	if _, ok := AsValidation(err); ok {
		return "validation"
	}
	return "unexpected"
}
