package services

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/hrdesk/apiserver/internal/store"
	"github.com/hrdesk/apiserver/types"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

var employeeStatuses = func() map[string]bool {
	set := make(map[string]bool, len(types.EmployeeStatuses))
	for _, status := range types.EmployeeStatuses {
		set[status] = true
	}
	return set
}()

// EmployeeRepository defines persistence operations for employees.
type EmployeeRepository interface {
	GetByID(ctx context.Context, id int) (types.Employee, error)
	List(ctx context.Context, filter types.EmployeeFilter) ([]types.Employee, error)
	ListActive(ctx context.Context) ([]types.Employee, error)
	ListUnlinked(ctx context.Context) ([]types.Employee, error)
	ListActiveWithoutAttendance(ctx context.Context, date time.Time) ([]types.Employee, error)
	Counts(ctx context.Context) (total int, active int, err error)
	Create(ctx context.Context, e types.Employee) (types.Employee, error)
	Update(ctx context.Context, e types.Employee) (types.Employee, error)
	Delete(ctx context.Context, id int) error
}

// EmployeeInput is the submitted add/edit employee form. Values are kept as
// strings so that parse failures surface as field errors.
type EmployeeInput struct {
	FirstName                string
	LastName                 string
	Email                    string
	Phone                    string
	Address                  string
	DepartmentID             string
	Position                 string
	Salary                   string
	HireDate                 string
	BirthDate                string
	Gender                   string
	Status                   string
	NationalNumber           string
	ReleaseDate              string
	LicenseIssuanceDate      string
	LicenseType              string
	AcademicQualification    string
	GraduationDate           string
	Appreciation             string
	InsuranceNumber          string
	BankAccountNumber        string
	SalaryDisbursementMethod string
	ContractType             string
	ContractStart            string
	ContractEnd              string
}

// Attachments are the optional uploads submitted with a new employee.
type Attachments struct {
	Photo     *Upload
	Documents []Upload
}

// EmployeeService encapsulates employee use-cases.
type EmployeeService struct {
	repo   EmployeeRepository
	files  *FileService
	audit  *Auditor
	logger *slog.Logger
}

func NewEmployeeService(repo EmployeeRepository, files *FileService, audit *Auditor, logger *slog.Logger) *EmployeeService {
	return &EmployeeService{
		repo:   repo,
		files:  files,
		audit:  audit,
		logger: logger,
	}
}

func (s *EmployeeService) GetByID(ctx context.Context, id int) (types.Employee, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *EmployeeService) List(ctx context.Context, filter types.EmployeeFilter) ([]types.Employee, error) {
	return s.repo.List(ctx, filter)
}

// Recent returns the newest employees.
func (s *EmployeeService) Recent(ctx context.Context, limit int) ([]types.Employee, error) {
	return s.repo.List(ctx, types.EmployeeFilter{Limit: limit})
}

func (s *EmployeeService) ListActive(ctx context.Context) ([]types.Employee, error) {
	return s.repo.ListActive(ctx)
}

// ListUnlinked returns active employees not yet linked to a user account.
func (s *EmployeeService) ListUnlinked(ctx context.Context) ([]types.Employee, error) {
	return s.repo.ListUnlinked(ctx)
}

// Summaries returns every employee in its API shape.
func (s *EmployeeService) Summaries(ctx context.Context) ([]types.EmployeeSummary, error) {
	employees, err := s.repo.List(ctx, types.EmployeeFilter{})
	if err != nil {
		return nil, err
	}
	summaries := make([]types.EmployeeSummary, 0, len(employees))
	for _, e := range employees {
		summaries = append(summaries, e.Summary())
	}
	return summaries, nil
}

// Create validates the form, derives the license expiry and inserts the employee.
func (s *EmployeeService) Create(ctx context.Context, in EmployeeInput) (types.Employee, error) {
	return s.CreateWithAttachments(ctx, in, Attachments{})
}

// CreateWithAttachments creates the employee and stores its uploads. When an
// upload fails the employee and every object already stored are removed
// again, so the request leaves nothing behind.
func (s *EmployeeService) CreateWithAttachments(ctx context.Context, in EmployeeInput, attachments Attachments) (types.Employee, error) {
	employee, err := in.parse()
	if err != nil {
		return types.Employee{}, err
	}
	if err := s.files.precheck(attachments); err != nil {
		return types.Employee{}, err
	}

	created, err := s.repo.Create(ctx, employee)
	if err != nil {
		return types.Employee{}, s.mapWriteError(ctx, "create", err)
	}

	var stored []string
	rollback := func(cause error) error {
		logger := serviceLogger(ctx, s.logger, "employees", "create", "employee_id", created.ID)
		if err := s.repo.Delete(ctx, created.ID); err != nil {
			logger.ErrorContext(ctx, "remove employee after failed upload", "error", err)
		}
		s.files.deleteObjects(ctx, stored)
		return cause
	}

	if attachments.Photo != nil {
		photo, err := s.files.UploadPhoto(ctx, created.ID, *attachments.Photo)
		if err != nil {
			return types.Employee{}, rollback(err)
		}
		stored = append(stored, photo.URL)
		created.ProfilePictureURL = photo.URL
	}
	for _, doc := range attachments.Documents {
		file, err := s.files.UploadDocument(ctx, created.ID, doc)
		if err != nil {
			return types.Employee{}, rollback(err)
		}
		stored = append(stored, file.URL)
	}

	s.audit.Record(ctx, EventEmployeeCreated, created.ID, map[string]any{
		"employee_code": created.Code,
		"attachments":   len(stored),
	})
	return created, nil
}

// Update validates the form and rewrites the employee. The license expiry is
// derived again from the submitted issuance date and type.
func (s *EmployeeService) Update(ctx context.Context, id int, in EmployeeInput) (types.Employee, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.Employee{}, err
	}
	employee, err := in.parse()
	if err != nil {
		return types.Employee{}, err
	}
	employee.ID = existing.ID
	employee.Code = existing.Code
	employee.ProfilePictureURL = existing.ProfilePictureURL
	employee.CreatedAt = existing.CreatedAt

	updated, err := s.repo.Update(ctx, employee)
	if err != nil {
		return types.Employee{}, s.mapWriteError(ctx, "update", err)
	}

	s.audit.Record(ctx, EventEmployeeUpdated, updated.ID, map[string]any{"employee_code": updated.Code})
	return updated, nil
}

// Delete removes the employee with its attendance, files and photos. Stored
// objects are removed after the row is gone.
func (s *EmployeeService) Delete(ctx context.Context, id int) error {
	employee, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	keys, err := s.files.objectKeys(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.files.deleteObjects(ctx, keys)

	s.audit.Record(ctx, EventEmployeeDeleted, id, map[string]any{"employee_code": employee.Code})
	return nil
}

func (s *EmployeeService) mapWriteError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, store.ErrConflict):
		constraint := store.ConstraintName(err)
		switch {
		case strings.Contains(constraint, "national_number"):
			return fieldError("national_number", "National number is already registered")
		case strings.Contains(constraint, "email"):
			return fieldError("email", "Email is already registered")
		case strings.Contains(constraint, "employee_code"):
			return ErrEmployeeCodeTaken
		default:
			return ErrDuplicate
		}
	case errors.Is(err, store.ErrInvalidReference):
		return fieldError("department_id", "Department not found")
	case errors.Is(err, ErrNotFound):
		return err
	}
	serviceLogger(ctx, s.logger, "employees", op).ErrorContext(ctx, "write employee failed", "error", err)
	return err
}

func (in EmployeeInput) parse() (types.Employee, error) {
	v := &ValidationError{}
	e := types.Employee{
		FirstName:                strings.TrimSpace(in.FirstName),
		LastName:                 strings.TrimSpace(in.LastName),
		Email:                    strings.TrimSpace(in.Email),
		Phone:                    strings.TrimSpace(in.Phone),
		Address:                  strings.TrimSpace(in.Address),
		Position:                 strings.TrimSpace(in.Position),
		Gender:                   strings.TrimSpace(in.Gender),
		Status:                   strings.ToLower(strings.TrimSpace(in.Status)),
		NationalNumber:           strings.TrimSpace(in.NationalNumber),
		LicenseType:              NormalizeLicenseType(in.LicenseType),
		AcademicQualification:    strings.TrimSpace(in.AcademicQualification),
		Appreciation:             strings.TrimSpace(in.Appreciation),
		InsuranceNumber:          strings.TrimSpace(in.InsuranceNumber),
		BankAccountNumber:        strings.TrimSpace(in.BankAccountNumber),
		SalaryDisbursementMethod: strings.TrimSpace(in.SalaryDisbursementMethod),
		ContractType:             strings.TrimSpace(in.ContractType),
	}

	if e.FirstName == "" {
		v.Add("first_name", "First name is required")
	}
	if e.LastName == "" {
		v.Add("last_name", "Last name is required")
	}
	if e.Email != "" {
		if _, err := mail.ParseAddress(e.Email); err != nil {
			v.Add("email", "Invalid email address")
		}
	}
	if e.Status == "" {
		e.Status = types.EmployeeStatusActive
	} else if !employeeStatuses[e.Status] {
		v.Add("status", "Unknown status")
	}

	if raw := strings.TrimSpace(in.DepartmentID); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id < 0 {
			v.Add("department_id", "Invalid department")
		} else if id > 0 {
			e.DepartmentID = &id
		}
	}

	if raw := strings.TrimSpace(in.Salary); raw != "" {
		salary, err := decimal.NewFromString(raw)
		switch {
		case err != nil:
			v.Add("salary", "Salary must be a number")
		case salary.IsNegative():
			v.Add("salary", "Salary cannot be negative")
		default:
			e.Salary = salary.Round(2)
		}
	}

	e.HireDate = parseDateField(v, "hire_date", in.HireDate)
	e.BirthDate = parseDateField(v, "birth_date", in.BirthDate)
	e.ReleaseDate = parseDateField(v, "release_date", in.ReleaseDate)
	e.LicenseIssuanceDate = parseDateField(v, "license_issuance_date", in.LicenseIssuanceDate)
	e.GraduationDate = parseDateField(v, "graduation_date", in.GraduationDate)
	e.ContractStart = parseDateField(v, "contract_start", in.ContractStart)
	e.ContractEnd = parseDateField(v, "contract_end", in.ContractEnd)

	if e.ContractStart != nil && e.ContractEnd != nil && e.ContractEnd.Before(*e.ContractStart) {
		v.Add("contract_end", "Contract end must not be before contract start")
	}

	e.LicenseExpiryDate = LicenseExpiry(e.LicenseIssuanceDate, e.LicenseType)

	if err := v.orNil(); err != nil {
		return types.Employee{}, err
	}
	return e, nil
}

func parseDateField(v *ValidationError, field, raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		v.Add(field, "Invalid date, expected YYYY-MM-DD")
		return nil
	}
	return &parsed
}
