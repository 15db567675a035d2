package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hrdesk/apiserver/internal/access"
	"github.com/hrdesk/apiserver/internal/services"
)

// DashboardHandler serves the landing page and the reports page.
type DashboardHandler struct {
	reports *services.ReportService
	render  *Renderer
}

func NewDashboardHandler(reports *services.ReportService, render *Renderer) *DashboardHandler {
	return &DashboardHandler{reports: reports, render: render}
}

// DashboardRouter registers the dashboard and reports routes.
func DashboardRouter(r chi.Router, handler *DashboardHandler, guard *Guard) {
	r.With(RequireLogin).Get("/", handler.Dashboard)
	r.With(guard.Require(access.ResourceReports, access.ActionView)).Get("/reports", handler.Reports)
}

func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.reports.Dashboard(r.Context())
	if err != nil {
		_, message := userError(r, err)
		h.render.Render(w, r, http.StatusInternalServerError, "dashboard", Page{Title: "Dashboard", Error: message})
		return
	}
	h.render.Render(w, r, http.StatusOK, "dashboard", Page{Title: "Dashboard", Data: dashboard})
}

func (h *DashboardHandler) Reports(w http.ResponseWriter, r *http.Request) {
	overview, err := h.reports.Overview(r.Context())
	if err != nil {
		redirectServiceError(w, r, "/", err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "reports", Page{Title: "Reports", Data: overview})
}
