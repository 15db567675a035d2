package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hrdesk/apiserver/internal/logging"
	"github.com/hrdesk/apiserver/internal/services"
	"github.com/hrdesk/apiserver/types"
)

const profilePath = "/profile"

// AuthHandler serves login, logout and the caller's own profile.
type AuthHandler struct {
	auth      *services.AuthService
	users     *services.UserService
	employees *services.EmployeeService
	cookies   *SessionCookies
	render    *Renderer
}

func NewAuthHandler(
	auth *services.AuthService,
	users *services.UserService,
	employees *services.EmployeeService,
	cookies *SessionCookies,
	render *Renderer,
) *AuthHandler {
	return &AuthHandler{
		auth:      auth,
		users:     users,
		employees: employees,
		cookies:   cookies,
		render:    render,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Get("/login", handler.LoginPage)
	r.Post("/login", handler.Login)
	r.Get("/logout", handler.Logout)
	r.Group(func(r chi.Router) {
		r.Use(RequireLogin)
		r.Get("/profile", handler.Profile)
		r.Post("/change_password", handler.ChangePassword)
	})
}

type profileData struct {
	User     types.User
	Employee *types.Employee
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := identityFromRequest(r); ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	h.render.Render(w, r, http.StatusOK, "login", Page{Title: "Login"})
}

// Login verifies the submitted credentials and opens a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render.Render(w, r, http.StatusBadRequest, "login", Page{Title: "Login", Error: "Invalid request"})
		return
	}
	username := r.PostFormValue("username")
	page := Page{Title: "Login", Form: map[string]string{"username": username}}

	session, identity, err := h.auth.Login(r.Context(), username, r.PostFormValue("password"), checkbox(r, "remember"))
	if err != nil {
		status, message := userError(r, err)
		page.Error = message
		h.render.Render(w, r, status, "login", page)
		return
	}

	if err := h.cookies.Issue(w, session, identity); err != nil {
		logging.Logger(r.Context(), nil).ErrorContext(r.Context(), "issue session cookie failed", "error", err)
		_ = h.auth.Logout(r.Context(), session.ID)
		page.Error = genericErrorMessage
		h.render.Render(w, r, http.StatusInternalServerError, "login", page)
		return
	}
	redirectSuccess(w, r, "/", "Welcome back, "+identity.Username)
}

// Logout drops the server-side session and the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if identity, ok := identityFromRequest(r); ok {
		if err := h.auth.Logout(r.Context(), identity.SessionID); err != nil {
			logging.Logger(r.Context(), nil).WarnContext(r.Context(), "logout failed", "error", err)
		}
	}
	h.cookies.Clear(w)
	redirectSuccess(w, r, loginPath, "You have been logged out")
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromRequest(r)
	user, err := h.users.GetByID(r.Context(), identity.UserID)
	if err != nil {
		redirectServiceError(w, r, "/", err)
		return
	}

	data := profileData{User: user}
	if user.EmployeeID != nil {
		employee, err := h.employees.GetByID(r.Context(), *user.EmployeeID)
		switch {
		case err == nil:
			data.Employee = &employee
		case !errors.Is(err, services.ErrNotFound):
			redirectServiceError(w, r, "/", err)
			return
		}
	}
	h.render.Render(w, r, http.StatusOK, "profile", Page{Title: "Profile", Data: data})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromRequest(r)
	if err := r.ParseForm(); err != nil {
		redirectError(w, r, profilePath, "Invalid request")
		return
	}
	err := h.users.ChangePassword(r.Context(), identity,
		r.PostFormValue("current_password"),
		r.PostFormValue("new_password"),
		r.PostFormValue("confirm_password"),
	)
	if err != nil {
		redirectServiceError(w, r, profilePath, err)
		return
	}
	redirectSuccess(w, r, profilePath, "Password changed successfully")
}
