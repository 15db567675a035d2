package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hrdesk/apiserver/internal/access"
	"github.com/hrdesk/apiserver/internal/services"
	"github.com/hrdesk/apiserver/internal/store"
	"github.com/hrdesk/apiserver/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(v int) *int {
	return &v
}

func testGuard() *Guard {
	return NewGuard(access.Default())
}

// withIdentity stands in for Authenticate in router tests.
func withIdentity(identity *types.Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if identity != nil {
				r = r.WithContext(services.WithIdentity(r.Context(), *identity))
			}
			next.ServeHTTP(w, r)
		})
	}
}

type fakeResolver struct {
	identities map[string]types.Identity
	calls      int
}

func (f *fakeResolver) Resolve(_ context.Context, sessionID string) (types.Identity, error) {
	f.calls++
	identity, ok := f.identities[sessionID]
	if !ok {
		return types.Identity{}, services.ErrSessionExpired
	}
	return identity, nil
}

type attendanceKey struct {
	employeeID int
	date       string
}

// fakeAttendanceStore keeps one record per employee and date.
type fakeAttendanceStore struct {
	mu        sync.Mutex
	nextID    int
	employees map[int]types.Employee
	records   map[attendanceKey]types.Attendance
}

func newFakeAttendanceStore(employees ...types.Employee) *fakeAttendanceStore {
	f := &fakeAttendanceStore{
		employees: make(map[int]types.Employee),
		records:   make(map[attendanceKey]types.Attendance),
	}
	for _, e := range employees {
		f.employees[e.ID] = e
	}
	return f
}

func (f *fakeAttendanceStore) CheckIn(_ context.Context, employeeID int, date, at time.Time, status string) (types.Attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.employees[employeeID]; !ok {
		return types.Attendance{}, store.ErrInvalidReference
	}
	key := attendanceKey{employeeID, date.Format("2006-01-02")}
	if _, ok := f.records[key]; ok {
		return types.Attendance{}, store.ErrConflict
	}
	f.nextID++
	checkIn := at
	record := types.Attendance{ID: f.nextID, EmployeeID: employeeID, Date: date, CheckIn: &checkIn, Status: status}
	f.records[key] = record
	return record, nil
}

func (f *fakeAttendanceStore) CheckOut(_ context.Context, employeeID int, date, at time.Time) (types.Attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := attendanceKey{employeeID, date.Format("2006-01-02")}
	record, ok := f.records[key]
	if !ok || record.CheckIn == nil || record.CheckOut != nil {
		return types.Attendance{}, store.ErrNotFound
	}
	checkOut := at
	record.CheckOut = &checkOut
	f.records[key] = record
	return record, nil
}

func (f *fakeAttendanceStore) Get(_ context.Context, employeeID int, date time.Time) (types.Attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[attendanceKey{employeeID, date.Format("2006-01-02")}]
	if !ok {
		return types.Attendance{}, store.ErrNotFound
	}
	return record, nil
}

func (f *fakeAttendanceStore) ListByDate(context.Context, time.Time) ([]types.Attendance, error) {
	return nil, nil
}

func (f *fakeAttendanceStore) History(context.Context, int, int) ([]types.Attendance, error) {
	return nil, nil
}

func (f *fakeAttendanceStore) CountAttendedEmployees(context.Context, time.Time, time.Time) (int, error) {
	return 0, nil
}

func (f *fakeAttendanceStore) CountAttendanceRecords(context.Context, time.Time, time.Time) (int, error) {
	return 0, nil
}

func (f *fakeAttendanceStore) Report(context.Context, time.Time, time.Time, int) ([]types.AttendanceReportRow, error) {
	return nil, nil
}

func (f *fakeAttendanceStore) DailyStats(context.Context, time.Time, time.Time) ([]types.DailyAttendanceStat, error) {
	return nil, nil
}

// Employee lookups used by the attendance service.

func (f *fakeAttendanceStore) GetByID(_ context.Context, id int) (types.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.employees[id]
	if !ok {
		return types.Employee{}, store.ErrNotFound
	}
	return e, nil
}

func (f *fakeAttendanceStore) Counts(context.Context) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	active := 0
	for _, e := range f.employees {
		if e.IsActive() {
			active++
		}
	}
	return len(f.employees), active, nil
}

func (f *fakeAttendanceStore) ListActive(context.Context) ([]types.Employee, error) {
	return nil, nil
}

func (f *fakeAttendanceStore) ListActiveWithoutAttendance(context.Context, time.Time) ([]types.Employee, error) {
	return nil, nil
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
