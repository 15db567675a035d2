package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/hrdesk/apiserver/internal/store"
	"github.com/hrdesk/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	bcryptCost = bcrypt.MinCost
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(v int) *int {
	return &v
}

type fakeUsers struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User
}

func newFakeUsers(users ...types.User) *fakeUsers {
	f := &fakeUsers{users: make(map[int]types.User)}
	for _, u := range users {
		f.nextID++
		if u.ID == 0 {
			u.ID = f.nextID
		}
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetByID(_ context.Context, id int) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUsers) List(_ context.Context) ([]types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var users []types.User
	for _, u := range f.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (f *fakeUsers) conflict(u types.User) error {
	for _, other := range f.users {
		if other.ID == u.ID {
			continue
		}
		if other.Username == u.Username {
			return &store.ConstraintError{Err: store.ErrConflict, Constraint: "users_username_key"}
		}
		if u.EmployeeID != nil && other.EmployeeID != nil && *u.EmployeeID == *other.EmployeeID {
			return &store.ConstraintError{Err: store.ErrConflict, Constraint: "users_employee_id_key"}
		}
	}
	return nil
}

func (f *fakeUsers) Create(_ context.Context, u types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.conflict(u); err != nil {
		return types.User{}, err
	}
	f.nextID++
	u.ID = f.nextID
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUsers) Update(_ context.Context, u types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.users[u.ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	if err := f.conflict(u); err != nil {
		return types.User{}, err
	}
	if u.PasswordHash == "" {
		u.PasswordHash = existing.PasswordHash
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id int, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = hash
	f.users[id] = u
	return nil
}

func (f *fakeUsers) SetActive(_ context.Context, id int, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.IsActive = active
	f.users[id] = u
	return nil
}

func (f *fakeUsers) TouchLastLogin(_ context.Context, id int, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.LastLogin = &at
	f.users[id] = u
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]types.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: make(map[string]types.Session)}
}

func (f *fakeSessions) Create(_ context.Context, s types.Session) (types.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeSessions) Get(_ context.Context, id string) (types.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return types.Session{}, store.ErrNotFound
	}
	return s, nil
}

func (f *fakeSessions) Extend(_ context.Context, id string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return store.ErrNotFound
	}
	s.ExpiresAt = expiresAt
	f.sessions[id] = s
	return nil
}

func (f *fakeSessions) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessions) DeleteByUser(_ context.Context, userID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, id)
		}
	}
	return nil
}

func (f *fakeSessions) DeleteOthers(_ context.Context, userID int, keepID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.sessions {
		if s.UserID == userID && id != keepID {
			delete(f.sessions, id)
		}
	}
	return nil
}

func (f *fakeSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(f.sessions, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeSessions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

type fakeEmployees struct {
	mu         sync.Mutex
	nextID     int
	employees  map[int]types.Employee
	attendance *fakeAttendance
	createErr  error
}

func newFakeEmployees(employees ...types.Employee) *fakeEmployees {
	f := &fakeEmployees{employees: make(map[int]types.Employee)}
	for _, e := range employees {
		f.nextID++
		if e.ID == 0 {
			e.ID = f.nextID
		}
		if e.Status == "" {
			e.Status = types.EmployeeStatusActive
		}
		if e.Code == "" {
			e.Code = store.FormatEmployeeCode(e.ID)
		}
		f.employees[e.ID] = e
	}
	return f
}

func (f *fakeEmployees) sorted(keep func(types.Employee) bool) []types.Employee {
	var out []types.Employee
	for _, e := range f.employees {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (f *fakeEmployees) GetByID(_ context.Context, id int) (types.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.employees[id]
	if !ok {
		return types.Employee{}, store.ErrNotFound
	}
	return e, nil
}

func (f *fakeEmployees) List(_ context.Context, filter types.EmployeeFilter) ([]types.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.sorted(func(e types.Employee) bool {
		if filter.DepartmentID > 0 && (e.DepartmentID == nil || *e.DepartmentID != filter.DepartmentID) {
			return false
		}
		return filter.Status == "" || e.Status == filter.Status
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeEmployees) ListActive(_ context.Context) ([]types.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(types.Employee.IsActive), nil
}

func (f *fakeEmployees) ListUnlinked(ctx context.Context) ([]types.Employee, error) {
	return f.ListActive(ctx)
}

func (f *fakeEmployees) ListActiveWithoutAttendance(_ context.Context, date time.Time) ([]types.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(func(e types.Employee) bool {
		if !e.IsActive() {
			return false
		}
		if f.attendance == nil {
			return true
		}
		_, err := f.attendance.Get(context.Background(), e.ID, date)
		return err != nil
	}), nil
}

func (f *fakeEmployees) Counts(_ context.Context) (int, int, error) {
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

func (f *fakeEmployees) Create(_ context.Context, e types.Employee) (types.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return types.Employee{}, f.createErr
	}
	f.nextID++
	e.ID = f.nextID
	e.Code = store.FormatEmployeeCode(e.ID)
	f.employees[e.ID] = e
	return e, nil
}

func (f *fakeEmployees) Update(_ context.Context, e types.Employee) (types.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.employees[e.ID]; !ok {
		return types.Employee{}, store.ErrNotFound
	}
	f.employees[e.ID] = e
	return e, nil
}

func (f *fakeEmployees) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.employees[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.employees, id)
	return nil
}

func (f *fakeEmployees) exists(id int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.employees[id]
	return ok
}

type fakeDepartments struct {
	mu          sync.Mutex
	nextID      int
	departments map[int]types.Department
	employees   *fakeEmployees
}

func newFakeDepartments(employees *fakeEmployees) *fakeDepartments {
	return &fakeDepartments{departments: make(map[int]types.Department), employees: employees}
}

func (f *fakeDepartments) withCount(d types.Department) types.Department {
	if f.employees == nil {
		return d
	}
	list, _ := f.employees.List(context.Background(), types.EmployeeFilter{DepartmentID: d.ID})
	d.EmployeeCount = len(list)
	return d
}

func (f *fakeDepartments) GetByID(_ context.Context, id int) (types.Department, error) {
	f.mu.Lock()
	d, ok := f.departments[id]
	f.mu.Unlock()
	if !ok {
		return types.Department{}, store.ErrNotFound
	}
	return f.withCount(d), nil
}

func (f *fakeDepartments) GetByName(_ context.Context, name string) (types.Department, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.departments {
		if d.Name == name {
			return d, nil
		}
	}
	return types.Department{}, store.ErrNotFound
}

func (f *fakeDepartments) List(_ context.Context) ([]types.Department, error) {
	f.mu.Lock()
	var out []types.Department
	for _, d := range f.departments {
		out = append(out, d)
	}
	f.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	for i := range out {
		out[i] = f.withCount(out[i])
	}
	return out, nil
}

func (f *fakeDepartments) Count(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.departments), nil
}

func (f *fakeDepartments) validate(d types.Department) error {
	for _, other := range f.departments {
		if other.ID != d.ID && other.Name == d.Name {
			return &store.ConstraintError{Err: store.ErrConflict, Constraint: "departments_name_key"}
		}
	}
	if d.ManagerID != nil && (f.employees == nil || !f.employees.exists(*d.ManagerID)) {
		return &store.ConstraintError{Err: store.ErrInvalidReference, Constraint: "fk_departments_manager"}
	}
	return nil
}

func (f *fakeDepartments) Create(_ context.Context, d types.Department) (types.Department, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.validate(d); err != nil {
		return types.Department{}, err
	}
	f.nextID++
	d.ID = f.nextID
	f.departments[d.ID] = d
	return d, nil
}

func (f *fakeDepartments) Update(_ context.Context, d types.Department) (types.Department, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.departments[d.ID]; !ok {
		return types.Department{}, store.ErrNotFound
	}
	if err := f.validate(d); err != nil {
		return types.Department{}, err
	}
	f.departments[d.ID] = d
	return d, nil
}

func (f *fakeDepartments) DeleteIfEmpty(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.departments[id]; !ok {
		return store.ErrNotFound
	}
	if f.employees != nil {
		list, _ := f.employees.List(context.Background(), types.EmployeeFilter{DepartmentID: id})
		if len(list) > 0 {
			return store.ErrInUse
		}
	}
	delete(f.departments, id)
	return nil
}

type attendanceKey struct {
	employeeID int
	date       string
}

// fakeAttendance keeps one record per (employee, date) like the unique
// constraint of the attendance table.
type fakeAttendance struct {
	mu        sync.Mutex
	nextID    int
	records   map[attendanceKey]types.Attendance
	employees *fakeEmployees
}

func newFakeAttendance(employees *fakeEmployees) *fakeAttendance {
	f := &fakeAttendance{records: make(map[attendanceKey]types.Attendance), employees: employees}
	if employees != nil {
		employees.attendance = f
	}
	return f
}

func keyOf(employeeID int, date time.Time) attendanceKey {
	return attendanceKey{employeeID: employeeID, date: date.Format(dateLayout)}
}

func (f *fakeAttendance) put(a types.Attendance) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	a.ID = f.nextID
	f.records[keyOf(a.EmployeeID, a.Date)] = a
}

func (f *fakeAttendance) CheckIn(_ context.Context, employeeID int, date, at time.Time, status string) (types.Attendance, error) {
	if f.employees != nil && !f.employees.exists(employeeID) {
		return types.Attendance{}, &store.ConstraintError{Err: store.ErrInvalidReference, Constraint: "attendance_employee_id_fkey"}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := keyOf(employeeID, date)
	if _, ok := f.records[key]; ok {
		return types.Attendance{}, store.ErrConflict
	}
	f.nextID++
	a := types.Attendance{ID: f.nextID, EmployeeID: employeeID, Date: date, CheckIn: &at, Status: status, CreatedAt: at}
	f.records[key] = a
	return a, nil
}

func (f *fakeAttendance) CheckOut(_ context.Context, employeeID int, date, at time.Time) (types.Attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := keyOf(employeeID, date)
	a, ok := f.records[key]
	if !ok || a.CheckOut != nil {
		return types.Attendance{}, store.ErrNotFound
	}
	a.CheckOut = &at
	a.UpdatedAt = &at
	f.records[key] = a
	return a, nil
}

func (f *fakeAttendance) Get(_ context.Context, employeeID int, date time.Time) (types.Attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.records[keyOf(employeeID, date)]
	if !ok {
		return types.Attendance{}, store.ErrNotFound
	}
	return a, nil
}

func (f *fakeAttendance) between(from, to time.Time) []types.Attendance {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Attendance
	for _, a := range f.records {
		if !a.Date.Before(from) && a.Date.Before(to) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeAttendance) ListByDate(_ context.Context, date time.Time) ([]types.Attendance, error) {
	return f.between(date, date.AddDate(0, 0, 1)), nil
}

func (f *fakeAttendance) History(_ context.Context, employeeID, limit int) ([]types.Attendance, error) {
	var out []types.Attendance
	for _, a := range f.between(time.Time{}, time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)) {
		if a.EmployeeID == employeeID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func attended(a types.Attendance) bool {
	return a.Status == types.AttendanceStatusPresent || a.Status == types.AttendanceStatusLate
}

func (f *fakeAttendance) CountAttendedEmployees(_ context.Context, from, to time.Time) (int, error) {
	seen := make(map[int]bool)
	for _, a := range f.between(from, to) {
		if attended(a) {
			seen[a.EmployeeID] = true
		}
	}
	return len(seen), nil
}

func (f *fakeAttendance) CountAttendanceRecords(_ context.Context, from, to time.Time) (int, error) {
	n := 0
	for _, a := range f.between(from, to) {
		if attended(a) {
			n++
		}
	}
	return n, nil
}

func (f *fakeAttendance) Report(_ context.Context, from, to time.Time, departmentID int) ([]types.AttendanceReportRow, error) {
	employees, _ := f.employees.List(context.Background(), types.EmployeeFilter{DepartmentID: departmentID})
	records := f.between(from, to)
	var rows []types.AttendanceReportRow
	for _, e := range employees {
		row := types.AttendanceReportRow{EmployeeID: e.ID, EmployeeCode: e.Code, EmployeeName: e.FullName()}
		for _, a := range records {
			if a.EmployeeID != e.ID {
				continue
			}
			switch a.Status {
			case types.AttendanceStatusPresent:
				row.DaysPresent++
			case types.AttendanceStatusLate:
				row.DaysPresent++
				row.DaysLate++
			case types.AttendanceStatusAbsent:
				row.DaysAbsent++
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (f *fakeAttendance) DailyStats(_ context.Context, from, to time.Time) ([]types.DailyAttendanceStat, error) {
	byDate := make(map[string]*types.DailyAttendanceStat)
	var order []string
	for _, a := range f.between(from, to) {
		key := a.Date.Format(dateLayout)
		stat, ok := byDate[key]
		if !ok {
			stat = &types.DailyAttendanceStat{Date: a.Date}
			byDate[key] = stat
			order = append(order, key)
		}
		switch a.Status {
		case types.AttendanceStatusPresent:
			stat.Present++
		case types.AttendanceStatusLate:
			stat.Late++
		}
	}
	sort.Strings(order)
	out := make([]types.DailyAttendanceStat, 0, len(order))
	for _, key := range order {
		out = append(out, *byDate[key])
	}
	return out, nil
}

type fakeFiles struct {
	mu        sync.Mutex
	nextID    int
	files     map[int]types.EmployeeFile
	photos    map[int]types.EmployeePhoto
	employees *fakeEmployees
	createErr error
}

func newFakeFiles(employees *fakeEmployees) *fakeFiles {
	return &fakeFiles{
		files:     make(map[int]types.EmployeeFile),
		photos:    make(map[int]types.EmployeePhoto),
		employees: employees,
	}
}

func (f *fakeFiles) CreateFile(_ context.Context, file types.EmployeeFile) (types.EmployeeFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return types.EmployeeFile{}, f.createErr
	}
	f.nextID++
	file.ID = f.nextID
	f.files[file.ID] = file
	return file, nil
}

func (f *fakeFiles) GetFile(_ context.Context, id int) (types.EmployeeFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[id]
	if !ok {
		return types.EmployeeFile{}, store.ErrNotFound
	}
	return file, nil
}

func (f *fakeFiles) ListFiles(_ context.Context, employeeID int) ([]types.EmployeeFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.EmployeeFile
	for _, file := range f.files {
		if file.EmployeeID == employeeID {
			out = append(out, file)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeFiles) DeleteFile(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.files, id)
	return nil
}

func (f *fakeFiles) AddPhoto(_ context.Context, p types.EmployeePhoto) (types.EmployeePhoto, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	f.photos[p.ID] = p
	if f.employees != nil {
		f.employees.mu.Lock()
		if e, ok := f.employees.employees[p.EmployeeID]; ok {
			e.ProfilePictureURL = p.URL
			f.employees.employees[p.EmployeeID] = e
		}
		f.employees.mu.Unlock()
	}
	return p, nil
}

func (f *fakeFiles) GetPhoto(_ context.Context, id int) (types.EmployeePhoto, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.photos[id]
	if !ok {
		return types.EmployeePhoto{}, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeFiles) ListPhotos(_ context.Context, employeeID int) ([]types.EmployeePhoto, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.EmployeePhoto
	for _, p := range f.photos {
		if p.EmployeeID == employeeID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeFiles) DeletePhoto(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.photos[id]
	if !ok {
		return store.ErrNotFound
	}
	delete(f.photos, id)
	if f.employees != nil {
		f.employees.mu.Lock()
		if e, ok := f.employees.employees[p.EmployeeID]; ok && e.ProfilePictureURL == p.URL {
			e.ProfilePictureURL = ""
			f.employees.employees[p.EmployeeID] = e
		}
		f.employees.mu.Unlock()
	}
	return nil
}

func (f *fakeFiles) ObjectKeys(_ context.Context, employeeID int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for _, file := range f.files {
		if file.EmployeeID == employeeID {
			keys = append(keys, file.URL)
		}
	}
	for _, p := range f.photos {
		if p.EmployeeID == employeeID {
			keys = append(keys, p.URL)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (f *fakeObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeObjects) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for key := range f.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

type fakePublisher struct {
	mu       sync.Mutex
	messages [][]byte
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, _ string, data []byte, _ map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.messages = append(f.messages, append([]byte(nil), data...))
	return "id", nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hashed, err := HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hashed
}

func upload(name, body string) Upload {
	return Upload{Filename: name, Size: int64(len(body)), Body: bytes.NewReader([]byte(body))}
}
