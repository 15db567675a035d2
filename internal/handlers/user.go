package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hrdesk/apiserver/internal/access"
	"github.com/hrdesk/apiserver/internal/services"
	"github.com/hrdesk/apiserver/types"
)

const usersPath = "/users"

// UserHandler provides the user administration pages.
type UserHandler struct {
	users     *services.UserService
	employees *services.EmployeeService
	render    *Renderer
}

func NewUserHandler(users *services.UserService, employees *services.EmployeeService, render *Renderer) *UserHandler {
	return &UserHandler{users: users, employees: employees, render: render}
}

// UserRouter registers user administration routes on the given router.
func UserRouter(r chi.Router, handler *UserHandler, guard *Guard) {
	view := guard.Require(access.ResourceUsers, access.ActionView)
	create := guard.Require(access.ResourceUsers, access.ActionCreate)
	edit := guard.Require(access.ResourceUsers, access.ActionEdit)
	del := guard.Require(access.ResourceUsers, access.ActionDelete)

	r.With(view).Get("/users", handler.List)
	r.With(create).Get("/add_user", handler.AddForm)
	r.With(create).Post("/add_user", handler.Create)
	r.With(edit).Get("/edit_user/{userID}", handler.EditForm)
	r.With(edit).Post("/edit_user/{userID}", handler.Update)
	r.With(edit).Get("/toggle_user_status/{userID}", handler.Toggle)
	r.With(edit).Post("/toggle_user_status/{userID}", handler.Toggle)
	r.With(del).Get("/delete_user/{userID}", handler.Delete)
	r.With(del).Post("/delete_user/{userID}", handler.Delete)
}

type userFormData struct {
	User      *types.User
	Employees []types.Employee
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		redirectServiceError(w, r, "/", err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "users", Page{Title: "Users", Data: users})
}

func (h *UserHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, Page{
		Title: "Add user",
		Form:  map[string]string{"role": types.RoleUser, "is_active": "on"},
	}, nil)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderForm(w, r, http.StatusBadRequest, Page{Title: "Add user", Error: "Invalid request"}, nil)
		return
	}
	in := userInput(r)
	in.Password = r.PostFormValue("password")
	in.ConfirmPassword = r.PostFormValue("confirm_password")

	user, err := h.users.Create(r.Context(), in)
	if err != nil {
		h.formError(w, r, Page{Title: "Add user"}, nil, err)
		return
	}
	redirectSuccess(w, r, usersPath, "User "+user.Username+" added successfully")
}

func (h *UserHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	user, ok := h.load(w, r)
	if !ok {
		return
	}
	form := map[string]string{
		"username": user.Username,
		"email":    user.Email,
		"role":     user.Role,
	}
	if user.IsActive {
		form["is_active"] = "on"
	}
	if user.EmployeeID != nil {
		form["employee_id"] = strconv.Itoa(*user.EmployeeID)
	}
	h.renderForm(w, r, http.StatusOK, Page{Title: "Edit user", Form: form}, &user)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderForm(w, r, http.StatusBadRequest, Page{Title: "Edit user", Error: "Invalid request"}, &user)
		return
	}
	identity, _ := identityFromRequest(r)

	in := userInput(r)
	if password := r.PostFormValue("new_password"); password != "" || checkbox(r, "change_password") {
		in.ChangePassword = true
		in.Password = password
		in.ConfirmPassword = r.PostFormValue("confirm_password")
	}

	updated, err := h.users.Update(r.Context(), identity, user.ID, in)
	if err != nil {
		h.formError(w, r, Page{Title: "Edit user"}, &user, err)
		return
	}
	redirectSuccess(w, r, usersPath, "User "+updated.Username+" updated successfully")
}

func (h *UserHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "userID")
	if err != nil {
		redirectError(w, r, usersPath, "Invalid user id")
		return
	}
	identity, _ := identityFromRequest(r)
	user, err := h.users.ToggleActive(r.Context(), identity, id)
	if err != nil {
		h.notFoundOr(w, r, err)
		return
	}
	state := "deactivated"
	if user.IsActive {
		state = "activated"
	}
	redirectSuccess(w, r, usersPath, "User "+user.Username+" "+state)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "userID")
	if err != nil {
		redirectError(w, r, usersPath, "Invalid user id")
		return
	}
	identity, _ := identityFromRequest(r)
	if err := h.users.Delete(r.Context(), identity, id); err != nil {
		h.notFoundOr(w, r, err)
		return
	}
	redirectSuccess(w, r, usersPath, "User deleted successfully")
}

func (h *UserHandler) load(w http.ResponseWriter, r *http.Request) (types.User, bool) {
	id, err := parseID(r, "userID")
	if err != nil {
		redirectError(w, r, usersPath, "Invalid user id")
		return types.User{}, false
	}
	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		h.notFoundOr(w, r, err)
		return types.User{}, false
	}
	return user, true
}

func (h *UserHandler) notFoundOr(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, services.ErrNotFound) {
		redirectError(w, r, usersPath, "User not found")
		return
	}
	redirectServiceError(w, r, usersPath, err)
}

// renderForm lists the employees that may still be linked. On edit the
// currently linked employee stays selectable.
func (h *UserHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, page Page, user *types.User) {
	employees, err := h.employees.ListUnlinked(r.Context())
	if err != nil {
		redirectServiceError(w, r, usersPath, err)
		return
	}
	if user != nil && user.EmployeeID != nil {
		linked, err := h.employees.GetByID(r.Context(), *user.EmployeeID)
		if err == nil {
			employees = append([]types.Employee{linked}, employees...)
		}
	}
	page.Data = userFormData{User: user, Employees: employees}
	h.render.Render(w, r, status, "user_form", page)
}

func (h *UserHandler) formError(w http.ResponseWriter, r *http.Request, page Page, user *types.User, err error) {
	if errors.Is(err, services.ErrNotFound) {
		redirectError(w, r, usersPath, "User not found")
		return
	}
	status, message := userError(r, err)
	page.Error = message
	page.Form = formValues(r)
	delete(page.Form, "password")
	delete(page.Form, "new_password")
	delete(page.Form, "confirm_password")
	if vErr, ok := services.AsValidation(err); ok {
		page.Errors = vErr.FieldErrors
	}
	h.renderForm(w, r, status, page, user)
}

func userInput(r *http.Request) services.UserInput {
	in := services.UserInput{
		Username: r.PostFormValue("username"),
		Email:    r.PostFormValue("email"),
		Role:     r.PostFormValue("role"),
		IsActive: checkbox(r, "is_active"),
	}
	if raw := strings.TrimSpace(r.PostFormValue("employee_id")); raw != "" {
		if id, err := strconv.Atoi(raw); err == nil && id > 0 {
			in.EmployeeID = &id
		}
	}
	return in
}
