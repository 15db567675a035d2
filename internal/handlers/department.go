package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hrdesk/apiserver/internal/access"
	"github.com/hrdesk/apiserver/internal/services"
	"github.com/hrdesk/apiserver/types"
)

const departmentsPath = "/departments"

// DepartmentHandler provides HTTP handlers for departments.
type DepartmentHandler struct {
	departments *services.DepartmentService
	employees   *services.EmployeeService
	render      *Renderer
}

func NewDepartmentHandler(departments *services.DepartmentService, employees *services.EmployeeService, render *Renderer) *DepartmentHandler {
	return &DepartmentHandler{
		departments: departments,
		employees:   employees,
		render:      render,
	}
}

// DepartmentRouter registers department routes on the given router.
func DepartmentRouter(r chi.Router, handler *DepartmentHandler, guard *Guard) {
	view := guard.Require(access.ResourceDepartments, access.ActionView)
	create := guard.Require(access.ResourceDepartments, access.ActionCreate)
	edit := guard.Require(access.ResourceDepartments, access.ActionEdit)
	del := guard.Require(access.ResourceDepartments, access.ActionDelete)

	r.With(view).Get("/departments", handler.List)
	r.With(view).Get("/department_employees/{departmentID}", handler.Employees)
	r.With(create).Get("/add_department", handler.AddForm)
	r.With(create).Post("/add_department", handler.Create)
	r.With(edit).Get("/edit_department/{departmentID}", handler.EditForm)
	r.With(edit).Post("/edit_department/{departmentID}", handler.Update)
	r.With(del).Get("/delete_department/{departmentID}", handler.Delete)
	r.With(del).Post("/delete_department/{departmentID}", handler.Delete)
}

type departmentFormData struct {
	Department *types.Department
	Managers   []types.Employee
}

type departmentEmployeesData struct {
	Department types.Department
	Employees  []types.Employee
}

func (h *DepartmentHandler) List(w http.ResponseWriter, r *http.Request) {
	departments, err := h.departments.List(r.Context())
	if err != nil {
		redirectServiceError(w, r, "/", err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "departments", Page{Title: "Departments", Data: departments})
}

func (h *DepartmentHandler) Employees(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "departmentID")
	if err != nil {
		redirectError(w, r, departmentsPath, "Invalid department id")
		return
	}
	department, employees, err := h.departments.Employees(r.Context(), id)
	if err != nil {
		h.notFoundOr(w, r, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "department_employees", Page{
		Title: department.Name,
		Data:  departmentEmployeesData{Department: department, Employees: employees},
	})
}

func (h *DepartmentHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, Page{Title: "Add department"}, nil)
}

func (h *DepartmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderForm(w, r, http.StatusBadRequest, Page{Title: "Add department", Error: "Invalid request"}, nil)
		return
	}
	department, err := h.departments.Create(r.Context(), departmentInput(r))
	if err != nil {
		h.formError(w, r, Page{Title: "Add department"}, nil, err)
		return
	}
	redirectSuccess(w, r, departmentsPath, "Department "+department.Name+" added successfully")
}

func (h *DepartmentHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	department, ok := h.load(w, r)
	if !ok {
		return
	}
	form := map[string]string{
		"name":        department.Name,
		"description": department.Description,
	}
	if department.ManagerID != nil {
		form["manager_id"] = strconv.Itoa(*department.ManagerID)
	}
	h.renderForm(w, r, http.StatusOK, Page{Title: "Edit department", Form: form}, &department)
}

func (h *DepartmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	department, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderForm(w, r, http.StatusBadRequest, Page{Title: "Edit department", Error: "Invalid request"}, &department)
		return
	}
	updated, err := h.departments.Update(r.Context(), department.ID, departmentInput(r))
	if err != nil {
		h.formError(w, r, Page{Title: "Edit department"}, &department, err)
		return
	}
	redirectSuccess(w, r, departmentsPath, "Department "+updated.Name+" updated successfully")
}

func (h *DepartmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "departmentID")
	if err != nil {
		redirectError(w, r, departmentsPath, "Invalid department id")
		return
	}
	if err := h.departments.Delete(r.Context(), id); err != nil {
		h.notFoundOr(w, r, err)
		return
	}
	redirectSuccess(w, r, departmentsPath, "Department deleted successfully")
}

func (h *DepartmentHandler) load(w http.ResponseWriter, r *http.Request) (types.Department, bool) {
	id, err := parseID(r, "departmentID")
	if err != nil {
		redirectError(w, r, departmentsPath, "Invalid department id")
		return types.Department{}, false
	}
	department, err := h.departments.GetByID(r.Context(), id)
	if err != nil {
		h.notFoundOr(w, r, err)
		return types.Department{}, false
	}
	return department, true
}

func (h *DepartmentHandler) notFoundOr(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, services.ErrNotFound) {
		redirectError(w, r, departmentsPath, "Department not found")
		return
	}
	redirectServiceError(w, r, departmentsPath, err)
}

func (h *DepartmentHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, page Page, department *types.Department) {
	managers, err := h.employees.ListActive(r.Context())
	if err != nil {
		redirectServiceError(w, r, departmentsPath, err)
		return
	}
	page.Data = departmentFormData{Department: department, Managers: managers}
	h.render.Render(w, r, status, "department_form", page)
}

func (h *DepartmentHandler) formError(w http.ResponseWriter, r *http.Request, page Page, department *types.Department, err error) {
	if errors.Is(err, services.ErrNotFound) {
		redirectError(w, r, departmentsPath, "Department not found")
		return
	}
	status, message := userError(r, err)
	page.Error = message
	page.Form = formValues(r)
	if vErr, ok := services.AsValidation(err); ok {
		page.Errors = vErr.FieldErrors
	}
	h.renderForm(w, r, status, page, department)
}

func departmentInput(r *http.Request) services.DepartmentInput {
	return services.DepartmentInput{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		ManagerID:   r.FormValue("manager_id"),
	}
}
