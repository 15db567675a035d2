package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hrdesk/apiserver/internal/access"
	"github.com/hrdesk/apiserver/internal/export"
	"github.com/hrdesk/apiserver/internal/services"
	"github.com/hrdesk/apiserver/types"
)

const employeesPath = "/employees"

// attachmentFields maps the optional document inputs of the add form to
// their file category.
var attachmentFields = []struct {
	field    string
	category string
}{
	{"cv_file", "cv"},
	{"contract_file", "contract"},
	{"id_file", "id"},
	{"certificate_file", "certificate"},
}

// EmployeeHandler provides HTTP handlers for employees.
type EmployeeHandler struct {
	employees   *services.EmployeeService
	departments *services.DepartmentService
	files       *services.FileService
	render      *Renderer
}

func NewEmployeeHandler(
	employees *services.EmployeeService,
	departments *services.DepartmentService,
	files *services.FileService,
	render *Renderer,
) *EmployeeHandler {
	return &EmployeeHandler{
		employees:   employees,
		departments: departments,
		files:       files,
		render:      render,
	}
}

// EmployeeRouter registers employee routes on the given router.
func EmployeeRouter(r chi.Router, handler *EmployeeHandler, guard *Guard) {
	view := guard.Require(access.ResourceEmployees, access.ActionView)
	create := guard.Require(access.ResourceEmployees, access.ActionCreate)
	edit := guard.Require(access.ResourceEmployees, access.ActionEdit)
	del := guard.Require(access.ResourceEmployees, access.ActionDelete)

	r.With(view).Get("/employees", handler.List)
	r.With(view).Get("/employees/{employeeID}", handler.View)
	r.With(view).Get("/employees/{employeeID}/badge.png", handler.Badge)
	r.With(view).Get("/api/employees", handler.APIList)
	r.With(create).Get("/add_employee", handler.AddForm)
	r.With(create).Post("/add_employee", handler.Create)
	r.With(edit).Get("/edit_employee/{employeeID}", handler.EditForm)
	r.With(edit).Post("/edit_employee/{employeeID}", handler.Update)
	r.With(del).Get("/delete_employee/{employeeID}", handler.Delete)
	r.With(del).Post("/delete_employee/{employeeID}", handler.Delete)
}

type employeeListData struct {
	Employees   []types.Employee
	Departments []types.Department
	Filter      types.EmployeeFilter
}

type employeeFormData struct {
	Employee    *types.Employee
	Departments []types.Department
}

type employeeViewData struct {
	Employee types.Employee
	Photos   []types.EmployeePhoto
	Files    []types.EmployeeFile
}

func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := types.EmployeeFilter{
		Status: strings.TrimSpace(query.Get("status")),
		Search: strings.TrimSpace(query.Get("q")),
	}
	if departmentID, err := parseOptionalInt(query.Get("department_id")); err == nil {
		filter.DepartmentID = departmentID
	}

	employees, err := h.employees.List(r.Context(), filter)
	if err != nil {
		redirectServiceError(w, r, "/", err)
		return
	}
	departments, err := h.departments.List(r.Context())
	if err != nil {
		redirectServiceError(w, r, "/", err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "employees", Page{
		Title: "Employees",
		Data:  employeeListData{Employees: employees, Departments: departments, Filter: filter},
	})
}

func (h *EmployeeHandler) View(w http.ResponseWriter, r *http.Request) {
	employee, ok := h.load(w, r)
	if !ok {
		return
	}
	photos, files, err := h.files.List(r.Context(), employee.ID)
	if err != nil {
		redirectServiceError(w, r, employeesPath, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "employee_view", Page{
		Title: employee.FullName(),
		Data:  employeeViewData{Employee: employee, Photos: photos, Files: files},
	})
}

// Badge renders a QR code of the employee code for check-in kiosks.
func (h *EmployeeHandler) Badge(w http.ResponseWriter, r *http.Request) {
	employee, ok := h.load(w, r)
	if !ok {
		return
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	png, err := export.BadgePNG(employee.Code, size)
	if err != nil {
		redirectServiceError(w, r, employeesPath, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// APIList returns every employee as JSON.
func (h *EmployeeHandler) APIList(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.employees.Summaries(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *EmployeeHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, Page{Title: "Add employee"}, nil)
}

func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := parseRequestForm(r, maxMultipartMemory); err != nil {
		h.renderForm(w, r, http.StatusBadRequest, Page{Title: "Add employee", Error: "Invalid request"}, nil)
		return
	}

	attachments, closeAll, err := employeeAttachments(r)
	defer closeAll()
	if err != nil {
		h.renderForm(w, r, http.StatusBadRequest, Page{Title: "Add employee", Error: "Could not read the uploaded files", Form: formValues(r)}, nil)
		return
	}

	employee, err := h.employees.CreateWithAttachments(r.Context(), employeeInput(r), attachments)
	if err != nil {
		h.formError(w, r, Page{Title: "Add employee"}, nil, err)
		return
	}
	redirectSuccess(w, r, employeesPath, "Employee "+employee.FullName()+" added successfully")
}

func (h *EmployeeHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	employee, ok := h.load(w, r)
	if !ok {
		return
	}
	h.renderForm(w, r, http.StatusOK, Page{Title: "Edit employee", Form: employeeFormValues(employee)}, &employee)
}

func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	employee, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := parseRequestForm(r, maxMultipartMemory); err != nil {
		h.renderForm(w, r, http.StatusBadRequest, Page{Title: "Edit employee", Error: "Invalid request"}, &employee)
		return
	}

	updated, err := h.employees.Update(r.Context(), employee.ID, employeeInput(r))
	if err != nil {
		h.formError(w, r, Page{Title: "Edit employee"}, &employee, err)
		return
	}
	redirectSuccess(w, r, employeesPath, "Employee "+updated.FullName()+" updated successfully")
}

func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "employeeID")
	if err != nil {
		redirectError(w, r, employeesPath, "Invalid employee id")
		return
	}
	if err := h.employees.Delete(r.Context(), id); err != nil {
		redirectServiceError(w, r, employeesPath, err)
		return
	}
	redirectSuccess(w, r, employeesPath, "Employee deleted successfully")
}

// load resolves the employee named by the URL, redirecting to the listing
// when it does not exist.
func (h *EmployeeHandler) load(w http.ResponseWriter, r *http.Request) (types.Employee, bool) {
	id, err := parseID(r, "employeeID")
	if err != nil {
		redirectError(w, r, employeesPath, "Invalid employee id")
		return types.Employee{}, false
	}
	employee, err := h.employees.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			redirectError(w, r, employeesPath, "Employee not found")
			return types.Employee{}, false
		}
		redirectServiceError(w, r, employeesPath, err)
		return types.Employee{}, false
	}
	return employee, true
}

func (h *EmployeeHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, page Page, employee *types.Employee) {
	departments, err := h.departments.List(r.Context())
	if err != nil {
		redirectServiceError(w, r, employeesPath, err)
		return
	}
	page.Data = employeeFormData{Employee: employee, Departments: departments}
	h.render.Render(w, r, status, "employee_form", page)
}

// formError re-renders the form with the submitted values and the error.
func (h *EmployeeHandler) formError(w http.ResponseWriter, r *http.Request, page Page, employee *types.Employee, err error) {
	if errors.Is(err, services.ErrNotFound) {
		redirectError(w, r, employeesPath, "Employee not found")
		return
	}
	status, message := userError(r, err)
	page.Error = message
	page.Form = formValues(r)
	if vErr, ok := services.AsValidation(err); ok {
		page.Errors = vErr.FieldErrors
	}
	h.renderForm(w, r, status, page, employee)
}

func employeeInput(r *http.Request) services.EmployeeInput {
	return services.EmployeeInput{
		FirstName:                r.FormValue("first_name"),
		LastName:                 r.FormValue("last_name"),
		Email:                    r.FormValue("email"),
		Phone:                    r.FormValue("phone"),
		Address:                  r.FormValue("address"),
		DepartmentID:             r.FormValue("department_id"),
		Position:                 r.FormValue("position"),
		Salary:                   r.FormValue("salary"),
		HireDate:                 r.FormValue("hire_date"),
		BirthDate:                r.FormValue("birth_date"),
		Gender:                   r.FormValue("gender"),
		Status:                   r.FormValue("status"),
		NationalNumber:           r.FormValue("national_number"),
		ReleaseDate:              r.FormValue("release_date"),
		LicenseIssuanceDate:      r.FormValue("license_issuance_date"),
		LicenseType:              r.FormValue("license_type"),
		AcademicQualification:    r.FormValue("academic_qualification"),
		GraduationDate:           r.FormValue("graduation_date"),
		Appreciation:             r.FormValue("appreciation"),
		InsuranceNumber:          r.FormValue("insurance_number"),
		BankAccountNumber:        r.FormValue("bank_account_number"),
		SalaryDisbursementMethod: r.FormValue("salary_disbursement_method"),
		ContractType:             r.FormValue("contract_type"),
		ContractStart:            r.FormValue("contract_start"),
		ContractEnd:              r.FormValue("contract_end"),
	}
}

func employeeFormValues(e types.Employee) map[string]string {
	values := map[string]string{
		"first_name":                 e.FirstName,
		"last_name":                  e.LastName,
		"email":                      e.Email,
		"phone":                      e.Phone,
		"address":                    e.Address,
		"position":                   e.Position,
		"salary":                     e.Salary.StringFixed(2),
		"hire_date":                  formatDate(e.HireDate),
		"birth_date":                 formatDate(e.BirthDate),
		"gender":                     e.Gender,
		"status":                     e.Status,
		"national_number":            e.NationalNumber,
		"release_date":               formatDate(e.ReleaseDate),
		"license_issuance_date":      formatDate(e.LicenseIssuanceDate),
		"license_type":               e.LicenseType,
		"academic_qualification":     e.AcademicQualification,
		"graduation_date":            formatDate(e.GraduationDate),
		"appreciation":               e.Appreciation,
		"insurance_number":           e.InsuranceNumber,
		"bank_account_number":        e.BankAccountNumber,
		"salary_disbursement_method": e.SalaryDisbursementMethod,
		"contract_type":              e.ContractType,
		"contract_start":             formatDate(e.ContractStart),
		"contract_end":               formatDate(e.ContractEnd),
	}
	if e.DepartmentID != nil {
		values["department_id"] = strconv.Itoa(*e.DepartmentID)
	}
	return values
}

// employeeAttachments collects the optional uploads of the add form. The
// returned func closes every opened part.
func employeeAttachments(r *http.Request) (services.Attachments, func(), error) {
	var (
		attachments services.Attachments
		closers     []func()
	)
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	photo, closePhoto, err := formUpload(r, "profile_photo")
	if err != nil {
		return attachments, closeAll, err
	}
	if photo != nil {
		closers = append(closers, closePhoto)
		attachments.Photo = photo
	}

	for _, f := range attachmentFields {
		up, closeUp, err := formUpload(r, f.field)
		if err != nil {
			return attachments, closeAll, err
		}
		if up == nil {
			continue
		}
		closers = append(closers, closeUp)
		up.Category = f.category
		attachments.Documents = append(attachments.Documents, *up)
	}
	return attachments, closeAll, nil
}
