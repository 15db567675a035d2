package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/hrdesk/apiserver/config"
	"github.com/hrdesk/apiserver/internal/store"
	"github.com/hrdesk/apiserver/types"
)

const (
	historyLimit     = 30
	defaultStatsDays = 7
	maxStatsDays     = 90
	fallbackWorkDays = 22
	minReportYear    = 2000
	maxReportYear    = 2100
	statsDateLayout  = "01-02"
	lateAfterLayout  = "15:04"
	secondsPerMinute = 60
	secondsPerHour   = 3600
)

// AttendanceRepository defines persistence operations for attendance.
type AttendanceRepository interface {
	CheckIn(ctx context.Context, employeeID int, date, at time.Time, status string) (types.Attendance, error)
	CheckOut(ctx context.Context, employeeID int, date, at time.Time) (types.Attendance, error)
	Get(ctx context.Context, employeeID int, date time.Time) (types.Attendance, error)
	ListByDate(ctx context.Context, date time.Time) ([]types.Attendance, error)
	History(ctx context.Context, employeeID, limit int) ([]types.Attendance, error)
	CountAttendedEmployees(ctx context.Context, from, to time.Time) (int, error)
	CountAttendanceRecords(ctx context.Context, from, to time.Time) (int, error)
	Report(ctx context.Context, from, to time.Time, departmentID int) ([]types.AttendanceReportRow, error)
	DailyStats(ctx context.Context, from, to time.Time) ([]types.DailyAttendanceStat, error)
}

type attendanceEmployees interface {
	GetByID(ctx context.Context, id int) (types.Employee, error)
	Counts(ctx context.Context) (total int, active int, err error)
	ListActive(ctx context.Context) ([]types.Employee, error)
	ListActiveWithoutAttendance(ctx context.Context, date time.Time) ([]types.Employee, error)
}

// AttendanceService runs the check-in/check-out state machine and the
// attendance aggregates.
type AttendanceService struct {
	repo      AttendanceRepository
	employees attendanceEmployees
	location  *time.Location
	weekend   []time.Weekday
	lateAfter int // seconds after midnight, -1 when disabled
	now       func() time.Time
	audit     *Auditor
	logger    *slog.Logger
}

func NewAttendanceService(repo AttendanceRepository, employees attendanceEmployees, cfg config.AttendanceConfig, audit *Auditor, logger *slog.Logger) (*AttendanceService, error) {
	lateAfter, err := parseLateAfter(cfg.LateAfter)
	if err != nil {
		return nil, err
	}
	location := cfg.Location
	if location == nil {
		location = time.Local
	}
	return &AttendanceService{
		repo:      repo,
		employees: employees,
		location:  location,
		weekend:   cfg.Weekend,
		lateAfter: lateAfter,
		now:       time.Now,
		audit:     audit,
		logger:    logger,
	}, nil
}

func parseLateAfter(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return -1, nil
	}
	t, err := time.Parse(lateAfterLayout, raw)
	if err != nil {
		return 0, fmt.Errorf("invalid late-after time %q: %w", raw, err)
	}
	return t.Hour()*secondsPerHour + t.Minute()*secondsPerMinute, nil
}

// Today returns the current calendar date in the configured location, as
// midnight UTC.
func (s *AttendanceService) Today() time.Time {
	return calendarDate(s.now().In(s.location))
}

func calendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Mark applies a check_in or check_out action for employeeID today. Users
// without the admin role may only mark the employee linked to their account.
func (s *AttendanceService) Mark(ctx context.Context, actor types.Identity, employeeID int, action string) (types.Attendance, error) {
	if !actor.IsAdmin() && !actor.OwnsEmployee(employeeID) {
		return types.Attendance{}, ErrForbidden
	}
	if employeeID <= 0 {
		return types.Attendance{}, fieldError("employee_id", "Employee is required")
	}

	now := s.now()
	local := now.In(s.location)
	date := calendarDate(local)
	logger := serviceLogger(ctx, s.logger, "attendance", action, "employee_id", employeeID)

	switch action {
	case types.AttendanceActionCheckIn:
		record, err := s.repo.CheckIn(ctx, employeeID, date, now, s.statusAt(local))
		switch {
		case err == nil:
		case errors.Is(err, store.ErrConflict):
			return types.Attendance{}, ErrAlreadyCheckedIn
		case errors.Is(err, store.ErrInvalidReference):
			return types.Attendance{}, ErrNotFound
		default:
			logger.ErrorContext(ctx, "check in failed", "error", err)
			return types.Attendance{}, err
		}
		s.audit.Record(ctx, EventCheckIn, record.ID, map[string]any{
			"employee_id": employeeID,
			"status":      record.Status,
		})
		return record, nil

	case types.AttendanceActionCheckOut:
		record, err := s.repo.CheckOut(ctx, employeeID, date, now)
		switch {
		case err == nil:
		case errors.Is(err, ErrNotFound):
			return types.Attendance{}, ErrNoOpenCheckIn
		default:
			logger.ErrorContext(ctx, "check out failed", "error", err)
			return types.Attendance{}, err
		}
		s.audit.Record(ctx, EventCheckOut, record.ID, map[string]any{"employee_id": employeeID})
		return record, nil
	}

	return types.Attendance{}, fieldError("action", "Unknown attendance action")
}

// statusAt labels a check-in at local wall-clock time t.
func (s *AttendanceService) statusAt(t time.Time) string {
	if s.lateAfter < 0 {
		return types.AttendanceStatusPresent
	}
	seconds := t.Hour()*secondsPerHour + t.Minute()*secondsPerMinute + t.Second()
	if seconds > s.lateAfter {
		return types.AttendanceStatusLate
	}
	return types.AttendanceStatusPresent
}

// Percentage returns n/d as a percentage rounded to one decimal, or 0 when d
// is not positive.
func Percentage(n, d int) float64 {
	if d <= 0 {
		return 0
	}
	return math.Round(float64(n)/float64(d)*1000) / 10
}

// WorkingDays counts the days of month that are not weekend days. An invalid
// month or a month without working days yields 22.
func WorkingDays(year int, month time.Month, weekend []time.Weekday) int {
	if month < time.January || month > time.December {
		return fallbackWorkDays
	}
	skip := make(map[time.Weekday]bool, len(weekend))
	for _, day := range weekend {
		skip[day] = true
	}

	count := 0
	for day := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC); day.Month() == month; day = day.AddDate(0, 0, 1) {
		if !skip[day.Weekday()] {
			count++
		}
	}
	if count == 0 {
		return fallbackWorkDays
	}
	return count
}

func monthRange(year int, month time.Month) (time.Time, time.Time) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

// DailyRate returns the employees with a present or late record today, the
// active employee count, and their percentage.
func (s *AttendanceService) DailyRate(ctx context.Context) (attended int, active int, rate float64, err error) {
	today := s.Today()
	_, active, err = s.employees.Counts(ctx)
	if err != nil {
		return 0, 0, 0, err
	}
	attended, err = s.repo.CountAttendedEmployees(ctx, today, today.AddDate(0, 0, 1))
	if err != nil {
		return 0, 0, 0, err
	}
	return attended, active, Percentage(attended, active), nil
}

// MonthlyRates computes both monthly attendance formulas.
func (s *AttendanceService) MonthlyRates(ctx context.Context, year int, month time.Month) (types.MonthlyAttendanceRates, error) {
	rates := types.MonthlyAttendanceRates{
		Year:        year,
		Month:       month,
		WorkingDays: WorkingDays(year, month, s.weekend),
	}
	_, active, err := s.employees.Counts(ctx)
	if err != nil {
		return rates, err
	}
	from, to := monthRange(year, month)

	attended, err := s.repo.CountAttendedEmployees(ctx, from, to)
	if err != nil {
		return rates, err
	}
	records, err := s.repo.CountAttendanceRecords(ctx, from, to)
	if err != nil {
		return rates, err
	}

	rates.CoverageRate = Percentage(attended, active)
	rates.WorkingDayRate = Percentage(records, active*rates.WorkingDays)
	return rates, nil
}

// Overview gathers the attendance landing page.
func (s *AttendanceService) Overview(ctx context.Context) (types.AttendanceOverview, error) {
	today := s.Today()
	overview := types.AttendanceOverview{Today: today}

	attended, active, rate, err := s.DailyRate(ctx)
	if err != nil {
		return overview, err
	}
	overview.TodayAttendance = attended
	overview.ActiveEmployees = active
	overview.DailyRate = rate

	monthly, err := s.MonthlyRates(ctx, today.Year(), today.Month())
	if err != nil {
		return overview, err
	}
	overview.MonthlyRate = monthly.CoverageRate

	if overview.TodayRecords, err = s.repo.ListByDate(ctx, today); err != nil {
		return overview, err
	}
	if overview.AbsentToday, err = s.employees.ListActiveWithoutAttendance(ctx, today); err != nil {
		return overview, err
	}
	return overview, nil
}

// MarkPage returns the active employees and today's records.
func (s *AttendanceService) MarkPage(ctx context.Context) ([]types.Employee, []types.Attendance, error) {
	employees, err := s.employees.ListActive(ctx)
	if err != nil {
		return nil, nil, err
	}
	records, err := s.repo.ListByDate(ctx, s.Today())
	if err != nil {
		return nil, nil, err
	}
	return employees, records, nil
}

// Report aggregates attendance per employee for one month. A departmentID
// of zero covers every department.
func (s *AttendanceService) Report(ctx context.Context, year, month, departmentID int) ([]types.AttendanceReportRow, error) {
	v := &ValidationError{}
	if month < 1 || month > 12 {
		v.Add("month", "Invalid month")
	}
	if year < minReportYear || year > maxReportYear {
		v.Add("year", "Invalid year")
	}
	if departmentID < 0 {
		v.Add("department_id", "Invalid department")
	}
	if err := v.orNil(); err != nil {
		return nil, err
	}

	from, to := monthRange(year, time.Month(month))
	return s.repo.Report(ctx, from, to, departmentID)
}

// History returns an employee with the most recent attendance records.
func (s *AttendanceService) History(ctx context.Context, employeeID int) (types.Employee, []types.Attendance, error) {
	employee, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		return types.Employee{}, nil, err
	}
	records, err := s.repo.History(ctx, employeeID, historyLimit)
	if err != nil {
		return types.Employee{}, nil, err
	}
	return employee, records, nil
}

// Stats returns present and late counts for each of the last days days,
// oldest first. Days without records are reported as zero.
func (s *AttendanceService) Stats(ctx context.Context, days int) (types.AttendanceStats, error) {
	if days <= 0 {
		days = defaultStatsDays
	}
	if days > maxStatsDays {
		days = maxStatsDays
	}

	today := s.Today()
	from := today.AddDate(0, 0, -(days - 1))
	daily, err := s.repo.DailyStats(ctx, from, today.AddDate(0, 0, 1))
	if err != nil {
		return types.AttendanceStats{}, err
	}

	byDate := make(map[string]types.DailyAttendanceStat, len(daily))
	for _, stat := range daily {
		byDate[stat.Date.Format(dateLayout)] = stat
	}

	stats := types.AttendanceStats{
		Dates:   make([]string, 0, days),
		Present: make([]int, 0, days),
		Late:    make([]int, 0, days),
	}
	for day := from; !day.After(today); day = day.AddDate(0, 0, 1) {
		stat := byDate[day.Format(dateLayout)]
		stats.Dates = append(stats.Dates, day.Format(statsDateLayout))
		stats.Present = append(stats.Present, stat.Present)
		stats.Late = append(stats.Late, stat.Late)
	}
	return stats, nil
}
