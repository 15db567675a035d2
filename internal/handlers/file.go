package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hrdesk/apiserver/internal/access"
	"github.com/hrdesk/apiserver/internal/logging"
	"github.com/hrdesk/apiserver/internal/services"
	"github.com/hrdesk/apiserver/internal/storage"
	"github.com/hrdesk/apiserver/types"
)

const (
	maxMultipartMemory = 32 << 20
	uploadsPrefix      = "/uploads/"
	formFieldPhoto     = "photo"
	formFieldFile      = "file"
)

// FileHandler serves employee photo and document endpoints.
type FileHandler struct {
	files     *services.FileService
	employees *services.EmployeeService
	maxBody   int64
}

// NewFileHandler constructs a FileHandler. maxUpload bounds a single file;
// request bodies are capped slightly above it to leave room for the
// multipart envelope.
func NewFileHandler(files *services.FileService, employees *services.EmployeeService, maxUpload int64) *FileHandler {
	return &FileHandler{
		files:     files,
		employees: employees,
		maxBody:   maxUpload + 1<<20,
	}
}

// FileRouter registers file routes on the given router.
func FileRouter(r chi.Router, handler *FileHandler, guard *Guard) {
	create := guard.Require(access.ResourceEmployeeFiles, access.ActionCreate)
	view := guard.Require(access.ResourceEmployeeFiles, access.ActionView)
	del := guard.Require(access.ResourceEmployeeFiles, access.ActionDelete)

	r.With(create).Post("/upload_employee_photo/{employeeID}", handler.UploadPhoto)
	r.With(create).Post("/upload_employee_file/{employeeID}", handler.UploadFile)
	r.With(view).Get("/get_employee_files/{employeeID}", handler.ListFiles)
	r.With(del).Delete("/delete_employee_file/{fileID}", handler.DeleteFile)
	r.With(del).Delete("/delete_employee_photo/{photoID}", handler.DeletePhoto)
	r.With(RequireLogin).Get("/uploads/*", handler.Serve)
}

// PhotoUploadResponse is returned after a photo upload.
type PhotoUploadResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	PhotoURL string `json:"photo_url"`
}

// FileUploadResponse is returned after a document upload.
type FileUploadResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	File    types.EmployeeFile `json:"file"`
}

// EmployeeFilesResponse lists the uploads of one employee.
type EmployeeFilesResponse struct {
	Success bool                  `json:"success"`
	Photos  []types.EmployeePhoto `json:"photos"`
	Files   []types.EmployeeFile  `json:"files"`
}

func (h *FileHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.employee(w, r)
	if !ok {
		return
	}
	up, closeUp, ok := h.readUpload(w, r, formFieldPhoto)
	if !ok {
		return
	}
	defer closeUp()

	photo, err := h.files.UploadPhoto(r.Context(), employeeID, *up)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PhotoUploadResponse{
		Success:  true,
		Message:  "Photo uploaded successfully",
		PhotoURL: photo.URL,
	})
}

func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.employee(w, r)
	if !ok {
		return
	}
	up, closeUp, ok := h.readUpload(w, r, formFieldFile)
	if !ok {
		return
	}
	defer closeUp()
	up.Category = r.FormValue("category")
	up.Description = r.FormValue("description")

	file, err := h.files.UploadDocument(r.Context(), employeeID, *up)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FileUploadResponse{
		Success: true,
		Message: "File uploaded successfully",
		File:    file,
	})
}

func (h *FileHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.employee(w, r)
	if !ok {
		return
	}
	photos, files, err := h.files.List(r.Context(), employeeID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if photos == nil {
		photos = []types.EmployeePhoto{}
	}
	if files == nil {
		files = []types.EmployeeFile{}
	}
	writeJSON(w, http.StatusOK, EmployeeFilesResponse{Success: true, Photos: photos, Files: files})
}

func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "fileID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid file id")
		return
	}
	if err := h.files.DeleteFile(r.Context(), id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "File deleted successfully"})
}

func (h *FileHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "photoID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid photo id")
		return
	}
	if err := h.files.DeletePhoto(r.Context(), id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Photo not found")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Photo deleted successfully"})
}

// Serve streams a stored upload to a logged-in user.
func (h *FileHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	body, err := h.files.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, storage.ErrInvalidKey) {
			http.NotFound(w, r)
			return
		}
		logging.Logger(r.Context(), nil).ErrorContext(r.Context(), "open upload failed", "key", key, "error", err)
		http.Error(w, genericErrorMessage, http.StatusInternalServerError)
		return
	}
	defer body.Close()

	contentType := mime.TypeByExtension(strings.ToLower(path.Ext(key)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if !strings.HasPrefix(contentType, "image/") {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": path.Base(key)}))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		logging.Logger(r.Context(), nil).WarnContext(r.Context(), "stream upload failed", "key", key, "error", err)
	}
}

// employee checks that the employee in the URL exists.
func (h *FileHandler) employee(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := parseID(r, "employeeID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid employee id")
		return 0, false
	}
	if _, err := h.employees.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Employee not found")
			return 0, false
		}
		writeServiceError(w, r, err)
		return 0, false
	}
	return id, true
}

func (h *FileHandler) readUpload(w http.ResponseWriter, r *http.Request, field string) (*services.Upload, func(), bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File is too large")
			return nil, nil, false
		}
		writeError(w, http.StatusBadRequest, "No file selected")
		return nil, nil, false
	}
	up, closeUp, err := formUpload(r, field)
	if err != nil {
		writeServiceError(w, r, err)
		return nil, nil, false
	}
	if up == nil {
		writeError(w, http.StatusBadRequest, "No file selected")
		return nil, nil, false
	}
	return up, closeUp, true
}

// formUpload opens the named multipart file. It returns nil when the field
// is absent or no file was chosen.
func formUpload(r *http.Request, field string) (*services.Upload, func(), error) {
	if r.MultipartForm == nil {
		return nil, func() {}, nil
	}
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 || strings.TrimSpace(headers[0].Filename) == "" {
		return nil, func() {}, nil
	}
	fh := headers[0]
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return &services.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	}, func() { _ = f.Close() }, nil
}

// parseRequestForm parses multipart and urlencoded bodies alike.
func parseRequestForm(r *http.Request, maxMemory int64) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(maxMemory)
	}
	return r.ParseForm()
}
