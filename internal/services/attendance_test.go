package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hrdesk/apiserver/config"
	"github.com/hrdesk/apiserver/types"
)

type attendanceFixture struct {
	svc        *AttendanceService
	employees  *fakeEmployees
	attendance *fakeAttendance
	now        *time.Time
}

func newAttendanceFixture(t *testing.T, cfg config.AttendanceConfig) attendanceFixture {
	t.Helper()
	employees := newFakeEmployees(
		types.Employee{FirstName: "Alice", LastName: "Smith"},
		types.Employee{FirstName: "Bob", LastName: "Jones"},
		types.Employee{FirstName: "Carol", LastName: "White"},
		types.Employee{FirstName: "Dan", LastName: "Brown", Status: types.EmployeeStatusInactive},
	)
	attendance := newFakeAttendance(employees)
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	svc, err := NewAttendanceService(attendance, employees, cfg, nil, testLogger())
	if err != nil {
		t.Fatalf("new attendance service: %v", err)
	}
	now := time.Date(2024, time.May, 15, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return attendanceFixture{svc: svc, employees: employees, attendance: attendance, now: &now}
}

var adminIdentity = types.Identity{UserID: 1, Username: "admin", Role: types.RoleAdmin}

func TestAttendanceStateMachine(t *testing.T) {
	ctx := context.Background()
	f := newAttendanceFixture(t, config.AttendanceConfig{})

	record, err := f.svc.Mark(ctx, adminIdentity, 1, types.AttendanceActionCheckIn)
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if record.CheckIn == nil || !record.CheckIn.Equal(*f.now) || record.CheckOut != nil {
		t.Fatalf("unexpected record after check in: %+v", record)
	}
	if record.Status != types.AttendanceStatusPresent {
		t.Fatalf("expected present, got %q", record.Status)
	}

	if _, err := f.svc.Mark(ctx, adminIdentity, 1, types.AttendanceActionCheckIn); !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Fatalf("expected already checked in, got %v", err)
	}

	*f.now = f.now.Add(8 * time.Hour)
	record, err = f.svc.Mark(ctx, adminIdentity, 1, types.AttendanceActionCheckOut)
	if err != nil {
		t.Fatalf("check out: %v", err)
	}
	if !record.Completed() || !record.CheckOut.Equal(*f.now) {
		t.Fatalf("expected completed record, got %+v", record)
	}

	if _, err := f.svc.Mark(ctx, adminIdentity, 1, types.AttendanceActionCheckOut); !errors.Is(err, ErrNoOpenCheckIn) {
		t.Fatalf("expected no open check in, got %v", err)
	}
	if _, err := f.svc.Mark(ctx, adminIdentity, 1, types.AttendanceActionCheckIn); !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Fatalf("completed record must not reopen, got %v", err)
	}

	stored, _ := f.attendance.Get(ctx, 1, date(2024, time.May, 15))
	if !stored.Completed() {
		t.Fatalf("stored record should stay completed: %+v", stored)
	}
}

func TestCheckOutWithoutCheckIn(t *testing.T) {
	ctx := context.Background()
	f := newAttendanceFixture(t, config.AttendanceConfig{})

	if _, err := f.svc.Mark(ctx, adminIdentity, 2, types.AttendanceActionCheckOut); !errors.Is(err, ErrNoOpenCheckIn) {
		t.Fatalf("expected no open check in, got %v", err)
	}
	if _, err := f.attendance.Get(ctx, 2, date(2024, time.May, 15)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("no record should be created")
	}
}

func TestMarkAttendanceRules(t *testing.T) {
	ctx := context.Background()
	f := newAttendanceFixture(t, config.AttendanceConfig{})
	user := types.Identity{UserID: 5, Username: "bob", Role: types.RoleUser, EmployeeID: intPtr(2)}

	if _, err := f.svc.Mark(ctx, user, 1, types.AttendanceActionCheckIn); !errors.Is(err, ErrForbidden) {
		t.Fatalf("users may not mark others, got %v", err)
	}
	if _, err := f.svc.Mark(ctx, user, 2, types.AttendanceActionCheckIn); err != nil {
		t.Fatalf("users may mark themselves: %v", err)
	}
	unlinked := types.Identity{UserID: 6, Role: types.RoleUser}
	if _, err := f.svc.Mark(ctx, unlinked, 3, types.AttendanceActionCheckIn); !errors.Is(err, ErrForbidden) {
		t.Fatalf("unlinked users may not mark, got %v", err)
	}
	if _, err := f.svc.Mark(ctx, adminIdentity, 99, types.AttendanceActionCheckIn); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected missing employee, got %v", err)
	}
	if _, err := f.svc.Mark(ctx, adminIdentity, 1, "lunch"); err == nil {
		t.Fatalf("expected unknown action to fail")
	}
}

func TestLateAfterPolicy(t *testing.T) {
	ctx := context.Background()
	f := newAttendanceFixture(t, config.AttendanceConfig{LateAfter: "09:00"})

	record, err := f.svc.Mark(ctx, adminIdentity, 1, types.AttendanceActionCheckIn)
	if err != nil || record.Status != types.AttendanceStatusPresent {
		t.Fatalf("check in at 09:00 should be present, got %+v %v", record, err)
	}

	*f.now = f.now.Add(time.Second)
	record, err = f.svc.Mark(ctx, adminIdentity, 2, types.AttendanceActionCheckIn)
	if err != nil || record.Status != types.AttendanceStatusLate {
		t.Fatalf("check in after 09:00 should be late, got %+v %v", record, err)
	}

	if _, err := NewAttendanceService(nil, nil, config.AttendanceConfig{LateAfter: "9am"}, nil, testLogger()); err == nil {
		t.Fatalf("expected invalid late-after to be rejected")
	}
}

func TestAttendanceDateUsesLocation(t *testing.T) {
	ctx := context.Background()
	loc := time.FixedZone("UTC+3", 3*60*60)
	f := newAttendanceFixture(t, config.AttendanceConfig{Location: loc})
	*f.now = time.Date(2024, time.May, 15, 22, 30, 0, 0, time.UTC)

	record, err := f.svc.Mark(ctx, adminIdentity, 1, types.AttendanceActionCheckIn)
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if !record.Date.Equal(date(2024, time.May, 16)) {
		t.Fatalf("expected local calendar date, got %s", record.Date)
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		n, d int
		want float64
	}{
		{n: 1, d: 3, want: 33.3},
		{n: 2, d: 3, want: 66.7},
		{n: 3, d: 3, want: 100},
		{n: 5, d: 0, want: 0},
		{n: 0, d: 4, want: 0},
	}
	for _, tt := range tests {
		if got := Percentage(tt.n, tt.d); got != tt.want {
			t.Fatalf("Percentage(%d, %d) = %v, want %v", tt.n, tt.d, got, tt.want)
		}
	}
}

func TestWorkingDays(t *testing.T) {
	weekend := []time.Weekday{time.Saturday, time.Sunday}
	tests := []struct {
		name    string
		year    int
		month   time.Month
		weekend []time.Weekday
		want    int
	}{
		{name: "may 2024", year: 2024, month: time.May, weekend: weekend, want: 23},
		{name: "february leap", year: 2024, month: time.February, weekend: weekend, want: 21},
		{name: "friday saturday", year: 2024, month: time.May, weekend: []time.Weekday{time.Friday, time.Saturday}, want: 22},
		{name: "no weekend", year: 2024, month: time.May, want: 31},
		{name: "invalid month", year: 2024, month: 13, weekend: weekend, want: 22},
		{name: "all weekend", year: 2024, month: time.May, weekend: []time.Weekday{0, 1, 2, 3, 4, 5, 6}, want: 22},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WorkingDays(tt.year, tt.month, tt.weekend); got != tt.want {
				t.Fatalf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAttendanceRates(t *testing.T) {
	ctx := context.Background()
	f := newAttendanceFixture(t, config.AttendanceConfig{Weekend: []time.Weekday{time.Saturday, time.Sunday}})

	f.attendance.put(types.Attendance{EmployeeID: 1, Date: date(2024, time.May, 2), Status: types.AttendanceStatusPresent})
	f.attendance.put(types.Attendance{EmployeeID: 1, Date: date(2024, time.May, 3), Status: types.AttendanceStatusLate})
	f.attendance.put(types.Attendance{EmployeeID: 2, Date: date(2024, time.May, 3), Status: types.AttendanceStatusAbsent})
	f.attendance.put(types.Attendance{EmployeeID: 2, Date: date(2024, time.April, 30), Status: types.AttendanceStatusPresent})
	f.attendance.put(types.Attendance{EmployeeID: 3, Date: date(2024, time.May, 15), Status: types.AttendanceStatusPresent})

	rates, err := f.svc.MonthlyRates(ctx, 2024, time.May)
	if err != nil {
		t.Fatalf("monthly rates: %v", err)
	}
	// Employees 1 and 3 attended in May out of 3 active employees.
	if rates.CoverageRate != 66.7 {
		t.Fatalf("coverage rate = %v", rates.CoverageRate)
	}
	// 3 present/late records over 3 active employees x 23 working days.
	if rates.WorkingDays != 23 || rates.WorkingDayRate != 4.3 {
		t.Fatalf("working day rate = %v over %d days", rates.WorkingDayRate, rates.WorkingDays)
	}

	attended, active, rate, err := f.svc.DailyRate(ctx)
	if err != nil {
		t.Fatalf("daily rate: %v", err)
	}
	if attended != 1 || active != 3 || rate != 33.3 {
		t.Fatalf("daily rate = %d/%d %v", attended, active, rate)
	}
}

func TestAttendanceOverview(t *testing.T) {
	ctx := context.Background()
	f := newAttendanceFixture(t, config.AttendanceConfig{})

	if _, err := f.svc.Mark(ctx, adminIdentity, 1, types.AttendanceActionCheckIn); err != nil {
		t.Fatalf("check in: %v", err)
	}
	overview, err := f.svc.Overview(ctx)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if overview.TodayAttendance != 1 || overview.ActiveEmployees != 3 {
		t.Fatalf("unexpected counts %+v", overview)
	}
	if len(overview.TodayRecords) != 1 || len(overview.AbsentToday) != 2 {
		t.Fatalf("expected 1 record and 2 absent, got %d and %d", len(overview.TodayRecords), len(overview.AbsentToday))
	}
	for _, e := range overview.AbsentToday {
		if e.ID == 1 || e.ID == 4 {
			t.Fatalf("unexpected absent employee %d", e.ID)
		}
	}
}

func TestAttendanceReport(t *testing.T) {
	ctx := context.Background()
	f := newAttendanceFixture(t, config.AttendanceConfig{})

	f.attendance.put(types.Attendance{EmployeeID: 1, Date: date(2024, time.May, 2), Status: types.AttendanceStatusPresent})
	f.attendance.put(types.Attendance{EmployeeID: 1, Date: date(2024, time.May, 3), Status: types.AttendanceStatusLate})
	f.attendance.put(types.Attendance{EmployeeID: 1, Date: date(2024, time.May, 6), Status: types.AttendanceStatusAbsent})
	f.attendance.put(types.Attendance{EmployeeID: 1, Date: date(2024, time.June, 3), Status: types.AttendanceStatusPresent})

	rows, err := f.svc.Report(ctx, 2024, 5, 0)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	var alice types.AttendanceReportRow
	for _, row := range rows {
		if row.EmployeeID == 1 {
			alice = row
		}
	}
	if alice.DaysPresent != 2 || alice.DaysLate != 1 || alice.DaysAbsent != 1 {
		t.Fatalf("unexpected report row %+v", alice)
	}

	for _, bad := range [][2]int{{2024, 0}, {2024, 13}, {1999, 5}} {
		if _, err := f.svc.Report(ctx, bad[0], bad[1], 0); err == nil {
			t.Fatalf("expected %v to be rejected", bad)
		}
	}
}

func TestAttendanceStatsFillsGaps(t *testing.T) {
	ctx := context.Background()
	f := newAttendanceFixture(t, config.AttendanceConfig{})

	f.attendance.put(types.Attendance{EmployeeID: 1, Date: date(2024, time.May, 13), Status: types.AttendanceStatusPresent})
	f.attendance.put(types.Attendance{EmployeeID: 2, Date: date(2024, time.May, 13), Status: types.AttendanceStatusLate})
	f.attendance.put(types.Attendance{EmployeeID: 1, Date: date(2024, time.May, 15), Status: types.AttendanceStatusPresent})
	f.attendance.put(types.Attendance{EmployeeID: 1, Date: date(2024, time.May, 1), Status: types.AttendanceStatusPresent})

	stats, err := f.svc.Stats(ctx, 3)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	wantDates := []string{"05-13", "05-14", "05-15"}
	if len(stats.Dates) != len(wantDates) {
		t.Fatalf("unexpected dates %v", stats.Dates)
	}
	for i, d := range wantDates {
		if stats.Dates[i] != d {
			t.Fatalf("dates[%d] = %s, want %s", i, stats.Dates[i], d)
		}
	}
	if stats.Present[0] != 1 || stats.Late[0] != 1 || stats.Present[1] != 0 || stats.Present[2] != 1 {
		t.Fatalf("unexpected counts present=%v late=%v", stats.Present, stats.Late)
	}

	defaults, err := f.svc.Stats(ctx, 0)
	if err != nil || len(defaults.Dates) != 7 {
		t.Fatalf("expected 7 default days, got %d %v", len(defaults.Dates), err)
	}
	capped, err := f.svc.Stats(ctx, 1000)
	if err != nil || len(capped.Dates) != 90 {
		t.Fatalf("expected 90 capped days, got %d %v", len(capped.Dates), err)
	}
}

func TestAttendanceHistory(t *testing.T) {
	ctx := context.Background()
	f := newAttendanceFixture(t, config.AttendanceConfig{})
	for day := 1; day <= 31; day++ {
		f.attendance.put(types.Attendance{EmployeeID: 1, Date: date(2024, time.May, day), Status: types.AttendanceStatusPresent})
	}

	employee, records, err := f.svc.History(ctx, 1)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if employee.FirstName != "Alice" || len(records) != 30 {
		t.Fatalf("unexpected history %s %d", employee.FirstName, len(records))
	}
	if !records[0].Date.Equal(date(2024, time.May, 31)) {
		t.Fatalf("expected newest first, got %s", records[0].Date)
	}
	if _, _, err := f.svc.History(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
