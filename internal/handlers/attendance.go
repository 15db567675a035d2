package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hrdesk/apiserver/internal/access"
	"github.com/hrdesk/apiserver/internal/export"
	"github.com/hrdesk/apiserver/internal/logging"
	"github.com/hrdesk/apiserver/internal/services"
	"github.com/hrdesk/apiserver/types"
)

const (
	attendancePath   = "/attendance"
	reportPath       = "/attendance_report"
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxMarkBodyBytes = 4 << 10
)

// AttendanceHandler provides HTTP handlers for attendance.
type AttendanceHandler struct {
	attendance  *services.AttendanceService
	departments *services.DepartmentService
	render      *Renderer
}

func NewAttendanceHandler(attendance *services.AttendanceService, departments *services.DepartmentService, render *Renderer) *AttendanceHandler {
	return &AttendanceHandler{
		attendance:  attendance,
		departments: departments,
		render:      render,
	}
}

// AttendanceRouter registers attendance routes on the given router.
func AttendanceRouter(r chi.Router, handler *AttendanceHandler, guard *Guard) {
	view := guard.Require(access.ResourceAttendance, access.ActionView)
	create := guard.Require(access.ResourceAttendance, access.ActionCreate)

	r.With(view).Get("/attendance", handler.Overview)
	r.With(create).Get("/mark_attendance", handler.MarkPage)
	r.With(create).Post("/mark_attendance", handler.Mark)
	r.With(view).Get("/attendance_history/{employeeID}", handler.History)
	r.With(view).Get("/attendance_report", handler.Report)
	r.With(view).Get("/attendance_report/export", handler.Export)
	r.With(view).Get("/api/attendance/stats", handler.Stats)
}

type markPageData struct {
	Employees []types.Employee
	Records   []types.Attendance
}

type historyData struct {
	Employee types.Employee
	Records  []types.Attendance
}

type reportData struct {
	Year         int
	Month        time.Month
	DepartmentID int
	Departments  []types.Department
	Rows         []types.AttendanceReportRow
	Months       []time.Month
}

type reportQuery struct {
	year         int
	month        int
	departmentID int
}

func (h *AttendanceHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.attendance.Overview(r.Context())
	if err != nil {
		redirectServiceError(w, r, "/", err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "attendance", Page{Title: "Attendance", Data: overview})
}

func (h *AttendanceHandler) MarkPage(w http.ResponseWriter, r *http.Request) {
	employees, records, err := h.attendance.MarkPage(r.Context())
	if err != nil {
		redirectServiceError(w, r, attendancePath, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "mark_attendance", Page{
		Title: "Mark attendance",
		Data:  markPageData{Employees: employees, Records: records},
	})
}

// Mark records a check-in or check-out. It accepts a JSON body or a form.
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromRequest(r)

	var req types.MarkAttendanceRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMarkBodyBytes)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request")
			return
		}
		req.EmployeeID, _ = strconv.Atoi(strings.TrimSpace(r.PostFormValue("employee_id")))
		req.Action = r.PostFormValue("action")
	}

	action := strings.ToLower(strings.TrimSpace(req.Action))
	if _, err := h.attendance.Mark(r.Context(), identity, req.EmployeeID, action); err != nil {
		writeServiceError(w, r, err)
		return
	}

	message := "Check-in recorded successfully"
	if action == types.AttendanceActionCheckOut {
		message = "Check-out recorded successfully"
	}
	writeJSON(w, http.StatusOK, types.MarkAttendanceResponse{Success: true, Message: message})
}

func (h *AttendanceHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "employeeID")
	if err != nil {
		redirectError(w, r, attendancePath, "Invalid employee id")
		return
	}
	employee, records, err := h.attendance.History(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			redirectError(w, r, attendancePath, "Employee not found")
			return
		}
		redirectServiceError(w, r, attendancePath, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "attendance_history", Page{
		Title: "Attendance history",
		Data:  historyData{Employee: employee, Records: records},
	})
}

func (h *AttendanceHandler) Report(w http.ResponseWriter, r *http.Request) {
	q := h.reportQuery(r)
	data := reportData{
		Year:         q.year,
		Month:        time.Month(q.month),
		DepartmentID: q.departmentID,
		Months:       months(),
	}
	page := Page{Title: "Attendance report"}

	departments, err := h.departments.List(r.Context())
	if err != nil {
		redirectServiceError(w, r, attendancePath, err)
		return
	}
	data.Departments = departments

	rows, err := h.attendance.Report(r.Context(), q.year, q.month, q.departmentID)
	status := http.StatusOK
	if err != nil {
		status, page.Error = userError(r, err)
	}
	data.Rows = rows
	page.Data = data
	h.render.Render(w, r, status, "attendance_report", page)
}

// Export writes the monthly report as an xlsx workbook.
func (h *AttendanceHandler) Export(w http.ResponseWriter, r *http.Request) {
	q := h.reportQuery(r)
	rows, err := h.attendance.Report(r.Context(), q.year, q.month, q.departmentID)
	if err != nil {
		redirectServiceError(w, r, reportPath, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteAttendanceReport(&buf, q.year, time.Month(q.month), rows); err != nil {
		logging.Logger(r.Context(), nil).ErrorContext(r.Context(), "write attendance workbook failed", "error", err)
		redirectError(w, r, reportPath, genericErrorMessage)
		return
	}

	filename := export.AttendanceReportFilename(q.year, time.Month(q.month))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// Stats returns per-day present and late counts for charts.
func (h *AttendanceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	days, err := parseOptionalInt(r.URL.Query().Get("days"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "days must be a number")
		return
	}
	stats, err := h.attendance.Stats(r.Context(), days)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// reportQuery reads month, year and department_id, defaulting to the
// current month. Unparseable values are passed on as zero so that the
// service reports them.
func (h *AttendanceHandler) reportQuery(r *http.Request) reportQuery {
	today := h.attendance.Today()
	query := r.URL.Query()
	q := reportQuery{year: today.Year(), month: int(today.Month())}

	if raw := strings.TrimSpace(query.Get("year")); raw != "" {
		q.year, _ = strconv.Atoi(raw)
	}
	if raw := strings.TrimSpace(query.Get("month")); raw != "" {
		q.month, _ = strconv.Atoi(raw)
	}
	if raw := strings.TrimSpace(query.Get("department_id")); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			id = -1
		}
		q.departmentID = id
	}
	return q
}

func months() []time.Month {
	list := make([]time.Month, 0, 12)
	for m := time.January; m <= time.December; m++ {
		list = append(list, m)
	}
	return list
}
