package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hrdesk/apiserver/internal/services"
	"github.com/hrdesk/apiserver/internal/storage"
	"github.com/hrdesk/apiserver/internal/store"
	"github.com/hrdesk/apiserver/types"
)

type fakeFileRepo struct {
	mu     sync.Mutex
	nextID int
	files  map[int]types.EmployeeFile
	photos map[int]types.EmployeePhoto
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{files: map[int]types.EmployeeFile{}, photos: map[int]types.EmployeePhoto{}}
}

func (f *fakeFileRepo) CreateFile(_ context.Context, file types.EmployeeFile) (types.EmployeeFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	file.ID = f.nextID
	f.files[file.ID] = file
	return file, nil
}

func (f *fakeFileRepo) GetFile(_ context.Context, id int) (types.EmployeeFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[id]
	if !ok {
		return types.EmployeeFile{}, store.ErrNotFound
	}
	return file, nil
}

func (f *fakeFileRepo) ListFiles(_ context.Context, employeeID int) ([]types.EmployeeFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.EmployeeFile
	for _, file := range f.files {
		if file.EmployeeID == employeeID {
			out = append(out, file)
		}
	}
	return out, nil
}

func (f *fakeFileRepo) DeleteFile(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.files, id)
	return nil
}

func (f *fakeFileRepo) AddPhoto(_ context.Context, p types.EmployeePhoto) (types.EmployeePhoto, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	f.photos[p.ID] = p
	return p, nil
}

func (f *fakeFileRepo) GetPhoto(_ context.Context, id int) (types.EmployeePhoto, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.photos[id]
	if !ok {
		return types.EmployeePhoto{}, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeFileRepo) ListPhotos(_ context.Context, employeeID int) ([]types.EmployeePhoto, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.EmployeePhoto
	for _, p := range f.photos {
		if p.EmployeeID == employeeID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeFileRepo) DeletePhoto(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.photos[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.photos, id)
	return nil
}

func (f *fakeFileRepo) ObjectKeys(context.Context, int) ([]string, error) {
	return nil, nil
}

// fakeEmployeeRepo knows a fixed set of employees.
type fakeEmployeeRepo struct {
	employees map[int]types.Employee
}

func (f *fakeEmployeeRepo) GetByID(_ context.Context, id int) (types.Employee, error) {
	e, ok := f.employees[id]
	if !ok {
		return types.Employee{}, store.ErrNotFound
	}
	return e, nil
}

func (f *fakeEmployeeRepo) List(context.Context, types.EmployeeFilter) ([]types.Employee, error) {
	return nil, nil
}

func (f *fakeEmployeeRepo) ListActive(context.Context) ([]types.Employee, error) {
	return nil, nil
}

func (f *fakeEmployeeRepo) ListUnlinked(context.Context) ([]types.Employee, error) {
	return nil, nil
}

func (f *fakeEmployeeRepo) ListActiveWithoutAttendance(context.Context, time.Time) ([]types.Employee, error) {
	return nil, nil
}

func (f *fakeEmployeeRepo) Counts(context.Context) (int, int, error) {
	return len(f.employees), len(f.employees), nil
}

func (f *fakeEmployeeRepo) Create(_ context.Context, e types.Employee) (types.Employee, error) {
	return e, nil
}

func (f *fakeEmployeeRepo) Update(_ context.Context, e types.Employee) (types.Employee, error) {
	return e, nil
}

func (f *fakeEmployeeRepo) Delete(context.Context, int) error {
	return nil
}

type fileFixture struct {
	router http.Handler
	repo   *fakeFileRepo
}

func newFileFixture(t *testing.T, identity *types.Identity) fileFixture {
	t.Helper()
	backend, err := storage.NewLocalBackend(t.TempDir())
	if err != nil {
		t.Fatalf("local backend: %v", err)
	}
	repo := newFakeFileRepo()
	files := services.NewFileService(repo, storage.NewStorage(backend), 1<<20, nil, testLogger())
	employees := services.NewEmployeeService(&fakeEmployeeRepo{employees: map[int]types.Employee{
		1: {ID: 1, Code: "EMP001", FirstName: "Alice"},
	}}, files, nil, testLogger())

	r := chi.NewRouter()
	r.Use(withIdentity(identity))
	FileRouter(r, NewFileHandler(files, employees, 1<<20), testGuard())
	return fileFixture{router: r, repo: repo}
}

func multipartRequest(t *testing.T, path, field, filename string, content []byte, extra map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range extra {
		_ = mw.WriteField(k, v)
	}
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write(content)
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

var admin = &types.Identity{UserID: 1, Username: "admin", Role: types.RoleAdmin}

func TestUploadPhotoAndServe(t *testing.T) {
	f := newFileFixture(t, admin)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, multipartRequest(t, "/upload_employee_photo/1", "photo", "My Face.PNG", []byte("png-bytes"), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp PhotoUploadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || !strings.HasPrefix(resp.PhotoURL, "photos/") || !strings.HasSuffix(resp.PhotoURL, ".png") {
		t.Fatalf("unexpected response %+v", resp)
	}

	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, uploadsPrefix+resp.PhotoURL, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 serving upload, got %d", rec.Code)
	}
	if got, _ := io.ReadAll(rec.Body); string(got) != "png-bytes" {
		t.Fatalf("unexpected body %q", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestUploadRejectsDisallowedType(t *testing.T) {
	f := newFileFixture(t, admin)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, multipartRequest(t, "/upload_employee_file/1", "file", "run.exe", []byte("MZ"), nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp ErrorResponse
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Success || resp.Message != "File type not allowed" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestUploadDocumentListAndDelete(t *testing.T) {
	f := newFileFixture(t, admin)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, multipartRequest(t, "/upload_employee_file/1", "file", "contract.pdf", []byte("%PDF"),
		map[string]string{"category": "contract", "description": "Signed"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/get_employee_files/1", nil))
	var listed EmployeeFilesResponse
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed.Files) != 1 || listed.Files[0].Category != "contract" || listed.Files[0].Type != "pdf" {
		t.Fatalf("unexpected listing %+v", listed)
	}
	if listed.Photos == nil {
		t.Fatalf("photos should be an empty list, not null")
	}

	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/delete_employee_file/"+strconv.Itoa(listed.Files[0].ID), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/delete_employee_file/"+strconv.Itoa(listed.Files[0].ID), nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestUploadForUnknownEmployee(t *testing.T) {
	f := newFileFixture(t, admin)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, multipartRequest(t, "/upload_employee_photo/9", "photo", "a.png", []byte("x"), nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestFileEndpointsRequirePermission(t *testing.T) {
	f := newFileFixture(t, &types.Identity{UserID: 2, Role: types.RoleUser})
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/delete_employee_photo/1", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestServeMissingUpload(t *testing.T) {
	f := newFileFixture(t, admin)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/photos/missing.png", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
