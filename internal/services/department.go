package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/hrdesk/apiserver/internal/store"
	"github.com/hrdesk/apiserver/types"
)

// DefaultDepartmentName is created by the seed command when missing.
const DefaultDepartmentName = "Unassigned"

// DepartmentRepository defines persistence operations for departments.
type DepartmentRepository interface {
	GetByID(ctx context.Context, id int) (types.Department, error)
	GetByName(ctx context.Context, name string) (types.Department, error)
	List(ctx context.Context) ([]types.Department, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, d types.Department) (types.Department, error)
	Update(ctx context.Context, d types.Department) (types.Department, error)
	DeleteIfEmpty(ctx context.Context, id int) error
}

type employeeLister interface {
	List(ctx context.Context, filter types.EmployeeFilter) ([]types.Employee, error)
}

// DepartmentInput is the submitted add/edit department form.
type DepartmentInput struct {
	Name        string
	Description string
	ManagerID   string
}

// DepartmentService encapsulates department use-cases.
type DepartmentService struct {
	repo      DepartmentRepository
	employees employeeLister
	audit     *Auditor
	logger    *slog.Logger
}

func NewDepartmentService(repo DepartmentRepository, employees employeeLister, audit *Auditor, logger *slog.Logger) *DepartmentService {
	return &DepartmentService{
		repo:      repo,
		employees: employees,
		audit:     audit,
		logger:    logger,
	}
}

func (s *DepartmentService) List(ctx context.Context) ([]types.Department, error) {
	return s.repo.List(ctx)
}

func (s *DepartmentService) GetByID(ctx context.Context, id int) (types.Department, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *DepartmentService) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// Employees returns the department and the employees assigned to it.
func (s *DepartmentService) Employees(ctx context.Context, id int) (types.Department, []types.Employee, error) {
	department, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.Department{}, nil, err
	}
	employees, err := s.employees.List(ctx, types.EmployeeFilter{DepartmentID: id})
	if err != nil {
		return types.Department{}, nil, err
	}
	return department, employees, nil
}

func (s *DepartmentService) Create(ctx context.Context, in DepartmentInput) (types.Department, error) {
	department, err := in.parse()
	if err != nil {
		return types.Department{}, err
	}

	created, err := s.repo.Create(ctx, department)
	if err != nil {
		return types.Department{}, s.mapWriteError(ctx, "create", err)
	}

	s.audit.Record(ctx, EventDepartmentCreated, created.ID, map[string]any{"name": created.Name})
	return created, nil
}

func (s *DepartmentService) Update(ctx context.Context, id int, in DepartmentInput) (types.Department, error) {
	department, err := in.parse()
	if err != nil {
		return types.Department{}, err
	}
	department.ID = id

	updated, err := s.repo.Update(ctx, department)
	if err != nil {
		return types.Department{}, s.mapWriteError(ctx, "update", err)
	}

	s.audit.Record(ctx, EventDepartmentUpdated, updated.ID, map[string]any{"name": updated.Name})
	return updated, nil
}

// Delete removes an empty department. A department that still has
// employees is refused with ErrDepartmentNotEmpty.
func (s *DepartmentService) Delete(ctx context.Context, id int) error {
	err := s.repo.DeleteIfEmpty(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrInUse):
		return ErrDepartmentNotEmpty
	case errors.Is(err, ErrNotFound):
		return err
	default:
		serviceLogger(ctx, s.logger, "departments", "delete", "department_id", id).
			ErrorContext(ctx, "delete department failed", "error", err)
		return err
	}

	s.audit.Record(ctx, EventDepartmentDeleted, id, nil)
	return nil
}

// EnsureDefault creates the named department when it does not exist yet.
func (s *DepartmentService) EnsureDefault(ctx context.Context, name string) (types.Department, bool, error) {
	existing, err := s.repo.GetByName(ctx, name)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return types.Department{}, false, err
	}
	created, err := s.repo.Create(ctx, types.Department{Name: name})
	if err != nil {
		return types.Department{}, false, err
	}
	return created, true, nil
}

func (s *DepartmentService) mapWriteError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, store.ErrConflict):
		return fieldError("name", "Department name already exists")
	case errors.Is(err, store.ErrInvalidReference):
		return fieldError("manager_id", "Manager not found")
	case errors.Is(err, ErrNotFound):
		return err
	}
	serviceLogger(ctx, s.logger, "departments", op).ErrorContext(ctx, "write department failed", "error", err)
	return err
}

func (in DepartmentInput) parse() (types.Department, error) {
	v := &ValidationError{}
	d := types.Department{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
	}
	if d.Name == "" {
		v.Add("name", "Department name is required")
	}
	if raw := strings.TrimSpace(in.ManagerID); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			v.Add("manager_id", "Invalid manager")
		} else {
			d.ManagerID = &id
		}
	}
	if err := v.orNil(); err != nil {
		return types.Department{}, err
	}
	return d, nil
}
