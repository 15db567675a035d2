package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hrdesk/apiserver/internal/services"
	"github.com/hrdesk/apiserver/types"
)

// ErrorResponse is the JSON failure payload.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// MessageResponse is the JSON success payload of mutating endpoints.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func identityFromRequest(r *http.Request) (types.Identity, bool) {
	return services.IdentityFromContext(r.Context())
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Success: false, Message: message})
}

// wantsJSON reports whether the caller expects a JSON reply rather than a page.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") || r.Method == http.MethodDelete {
		return true
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// redirectWithNotice redirects to path carrying a one-shot notice in the
// query string. kind is "error" or "success".
func redirectWithNotice(w http.ResponseWriter, r *http.Request, path, kind, message string) {
	target := path
	if message != "" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		target = path + sep + kind + "=" + url.QueryEscape(message)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func redirectError(w http.ResponseWriter, r *http.Request, path, message string) {
	redirectWithNotice(w, r, path, "error", message)
}

func redirectSuccess(w http.ResponseWriter, r *http.Request, path, message string) {
	redirectWithNotice(w, r, path, "success", message)
}

func parseID(r *http.Request, param string) (int, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func parseOptionalInt(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

// formValues flattens the submitted form for re-rendering.
func formValues(r *http.Request) map[string]string {
	values := make(map[string]string, len(r.Form))
	for key, v := range r.Form {
		if len(v) > 0 {
			values[key] = v[0]
		}
	}
	return values
}

func checkbox(r *http.Request, name string) bool {
	switch strings.ToLower(strings.TrimSpace(r.FormValue(name))) {
	case "on", "1", "true", "yes":
		return true
	}
	return false
}
