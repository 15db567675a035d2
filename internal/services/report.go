package services

import (
	"context"
	"log/slog"

	"github.com/hrdesk/apiserver/types"
)

const recentEmployees = 5

type reportEmployees interface {
	Counts(ctx context.Context) (total int, active int, err error)
	List(ctx context.Context, filter types.EmployeeFilter) ([]types.Employee, error)
}

type reportDepartments interface {
	Count(ctx context.Context) (int, error)
	List(ctx context.Context) ([]types.Department, error)
}

// ReportService builds the dashboard and the reports page.
type ReportService struct {
	employees   reportEmployees
	departments reportDepartments
	attendance  *AttendanceService
	logger      *slog.Logger
}

func NewReportService(employees reportEmployees, departments reportDepartments, attendance *AttendanceService, logger *slog.Logger) *ReportService {
	return &ReportService{
		employees:   employees,
		departments: departments,
		attendance:  attendance,
		logger:      logger,
	}
}

// Dashboard collects the headline numbers. The daily attendance rate and
// the active headcount ratio are reported separately.
func (s *ReportService) Dashboard(ctx context.Context) (types.Dashboard, error) {
	var dashboard types.Dashboard

	total, active, err := s.employees.Counts(ctx)
	if err != nil {
		return dashboard, err
	}
	departments, err := s.departments.Count(ctx)
	if err != nil {
		return dashboard, err
	}
	attended, _, rate, err := s.attendance.DailyRate(ctx)
	if err != nil {
		return dashboard, err
	}
	recent, err := s.employees.List(ctx, types.EmployeeFilter{Limit: recentEmployees})
	if err != nil {
		return dashboard, err
	}

	dashboard.TotalEmployees = total
	dashboard.ActiveEmployees = active
	dashboard.TotalDepartments = departments
	dashboard.TodayAttendance = attended
	dashboard.DailyAttendanceRate = rate
	dashboard.ActiveHeadcountRatio = Percentage(active, total)
	dashboard.RecentEmployees = recent
	return dashboard, nil
}

// Overview gathers the reports page for the current month.
func (s *ReportService) Overview(ctx context.Context) (types.ReportsOverview, error) {
	var overview types.ReportsOverview

	total, active, err := s.employees.Counts(ctx)
	if err != nil {
		return overview, err
	}
	employees, err := s.employees.List(ctx, types.EmployeeFilter{})
	if err != nil {
		return overview, err
	}
	departments, err := s.departments.List(ctx)
	if err != nil {
		return overview, err
	}
	today := s.attendance.Today()
	monthly, err := s.attendance.MonthlyRates(ctx, today.Year(), today.Month())
	if err != nil {
		serviceLogger(ctx, s.logger, "reports", "overview").ErrorContext(ctx, "monthly rates failed", "error", err)
		return overview, err
	}

	overview.TotalEmployees = total
	overview.ActiveEmployees = active
	overview.TotalDepartments = len(departments)
	overview.Employees = employees
	overview.Departments = departments
	overview.Monthly = monthly
	return overview, nil
}
