package store

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a unique constraint.
var ErrConflict = errors.New("conflict")

// ErrInvalidReference is returned when a write points at a missing parent row.
var ErrInvalidReference = errors.New("invalid reference")

// ErrInUse is returned when a record cannot be removed while others depend on it.
var ErrInUse = errors.New("in use")

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// ConstraintError carries the name of the violated constraint alongside one
// of the sentinel errors above.
type ConstraintError struct {
	Err        error
	Constraint string
}

func (e *ConstraintError) Error() string {
	if e.Constraint == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Constraint)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// ConstraintName returns the violated constraint carried by err, if any.
func ConstraintName(err error) string {
	var cerr *ConstraintError
	if errors.As(err, &cerr) {
		return cerr.Constraint
	}
	return ""
}

// mapError translates driver errors into store sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			return &ConstraintError{Err: ErrConflict, Constraint: pqErr.Constraint}
		case pqForeignKeyViolation:
			return &ConstraintError{Err: ErrInvalidReference, Constraint: pqErr.Constraint}
		}
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
