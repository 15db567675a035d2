package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/hrdesk/apiserver/types"
)

const (
	photoPrefix     = "photos"
	documentPrefix  = "documents"
	defaultCategory = "general"
	uploadTimestamp = "20060102_150405"
)

var imageExtensions = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true, "webp": true,
}

var documentExtensions = map[string]bool{
	"pdf": true, "doc": true, "docx": true, "txt": true, "xlsx": true, "xls": true,
}

// FileRepository defines persistence operations for employee attachments.
type FileRepository interface {
	CreateFile(ctx context.Context, f types.EmployeeFile) (types.EmployeeFile, error)
	GetFile(ctx context.Context, id int) (types.EmployeeFile, error)
	ListFiles(ctx context.Context, employeeID int) ([]types.EmployeeFile, error)
	DeleteFile(ctx context.Context, id int) error
	AddPhoto(ctx context.Context, p types.EmployeePhoto) (types.EmployeePhoto, error)
	GetPhoto(ctx context.Context, id int) (types.EmployeePhoto, error)
	ListPhotos(ctx context.Context, employeeID int) ([]types.EmployeePhoto, error)
	DeletePhoto(ctx context.Context, id int) error
	ObjectKeys(ctx context.Context, employeeID int) ([]string, error)
}

// ObjectStore is the subset of object storage used for uploads.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Upload is one submitted file.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
	Category    string
	Description string
}

// FileService stores employee photos and documents.
type FileService struct {
	repo     FileRepository
	objects  ObjectStore
	maxBytes int64
	now      func() time.Time
	audit    *Auditor
	logger   *slog.Logger
}

func NewFileService(repo FileRepository, objects ObjectStore, maxBytes int64, audit *Auditor, logger *slog.Logger) *FileService {
	return &FileService{
		repo:     repo,
		objects:  objects,
		maxBytes: maxBytes,
		now:      time.Now,
		audit:    audit,
		logger:   logger,
	}
}

// UploadPhoto stores an image and makes it the employee's profile picture.
func (s *FileService) UploadPhoto(ctx context.Context, employeeID int, up Upload) (types.EmployeePhoto, error) {
	name, ext, err := s.check(up, imageExtensions)
	if err != nil {
		return types.EmployeePhoto{}, err
	}
	key := s.objectKey(photoPrefix, employeeID, name)
	if err := s.put(ctx, key, ext, up); err != nil {
		return types.EmployeePhoto{}, err
	}

	photo, err := s.repo.AddPhoto(ctx, types.EmployeePhoto{
		EmployeeID: employeeID,
		URL:        key,
		Name:       name,
		Size:       up.Size,
		UploadedBy: actorRef(ctx),
	})
	if err != nil {
		s.deleteObjects(ctx, []string{key})
		return types.EmployeePhoto{}, err
	}

	s.audit.Record(ctx, EventPhotoUploaded, photo.ID, map[string]any{"employee_id": employeeID, "key": key})
	return photo, nil
}

// UploadDocument stores a document for an employee.
func (s *FileService) UploadDocument(ctx context.Context, employeeID int, up Upload) (types.EmployeeFile, error) {
	name, ext, err := s.check(up, documentExtensions)
	if err != nil {
		return types.EmployeeFile{}, err
	}
	key := s.objectKey(documentPrefix, employeeID, name)
	if err := s.put(ctx, key, ext, up); err != nil {
		return types.EmployeeFile{}, err
	}

	category := strings.TrimSpace(up.Category)
	if category == "" {
		category = defaultCategory
	}
	file, err := s.repo.CreateFile(ctx, types.EmployeeFile{
		EmployeeID:  employeeID,
		URL:         key,
		Name:        name,
		Type:        ext,
		Size:        up.Size,
		Category:    category,
		Description: strings.TrimSpace(up.Description),
		UploadedBy:  actorRef(ctx),
	})
	if err != nil {
		s.deleteObjects(ctx, []string{key})
		return types.EmployeeFile{}, err
	}

	s.audit.Record(ctx, EventFileUploaded, file.ID, map[string]any{"employee_id": employeeID, "key": key})
	return file, nil
}

// List returns the photos and documents of an employee, newest first.
func (s *FileService) List(ctx context.Context, employeeID int) ([]types.EmployeePhoto, []types.EmployeeFile, error) {
	photos, err := s.repo.ListPhotos(ctx, employeeID)
	if err != nil {
		return nil, nil, err
	}
	files, err := s.repo.ListFiles(ctx, employeeID)
	if err != nil {
		return nil, nil, err
	}
	return photos, files, nil
}

// DeleteFile removes a document row and then its stored object.
func (s *FileService) DeleteFile(ctx context.Context, id int) error {
	file, err := s.repo.GetFile(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteFile(ctx, id); err != nil {
		return err
	}
	s.deleteObjects(ctx, []string{file.URL})

	s.audit.Record(ctx, EventFileDeleted, id, map[string]any{"employee_id": file.EmployeeID})
	return nil
}

// DeletePhoto removes a photo row, clears the profile picture when it
// pointed at the photo, and removes the stored object.
func (s *FileService) DeletePhoto(ctx context.Context, id int) error {
	photo, err := s.repo.GetPhoto(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeletePhoto(ctx, id); err != nil {
		return err
	}
	s.deleteObjects(ctx, []string{photo.URL})

	s.audit.Record(ctx, EventPhotoDeleted, id, map[string]any{"employee_id": photo.EmployeeID})
	return nil
}

// Open streams a stored upload.
func (s *FileService) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.objects.Get(ctx, key)
}

func (s *FileService) precheck(attachments Attachments) error {
	if attachments.Photo != nil {
		if _, _, err := s.check(*attachments.Photo, imageExtensions); err != nil {
			return err
		}
	}
	for _, doc := range attachments.Documents {
		if _, _, err := s.check(doc, documentExtensions); err != nil {
			return err
		}
	}
	return nil
}

func (s *FileService) check(up Upload, allowed map[string]bool) (string, string, error) {
	if strings.TrimSpace(up.Filename) == "" || up.Body == nil {
		return "", "", ErrEmptyFile
	}
	ext := FileExtension(up.Filename)
	if !allowed[ext] {
		return "", "", ErrUnsupportedFileType
	}
	if s.maxBytes > 0 && up.Size > s.maxBytes {
		return "", "", ErrFileTooLarge
	}
	return SecureFilename(up.Filename), ext, nil
}

func (s *FileService) put(ctx context.Context, key, ext string, up Upload) error {
	contentType := up.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		if guessed := mime.TypeByExtension("." + ext); guessed != "" {
			contentType = guessed
		}
	}
	if err := s.objects.Put(ctx, key, up.Body, up.Size, contentType); err != nil {
		serviceLogger(ctx, s.logger, "files", "put", "key", key).ErrorContext(ctx, "store upload failed", "error", err)
		return fmt.Errorf("store upload: %w", err)
	}
	return nil
}

// objectKey builds "<prefix>/<employee>_<timestamp>_<name>". Two uploads of
// the same name for the same employee within one second share a key.
func (s *FileService) objectKey(prefix string, employeeID int, name string) string {
	return fmt.Sprintf("%s/%d_%s_%s", prefix, employeeID, s.now().Format(uploadTimestamp), name)
}

func (s *FileService) objectKeys(ctx context.Context, employeeID int) ([]string, error) {
	return s.repo.ObjectKeys(ctx, employeeID)
}

// deleteObjects removes stored objects. Failures are logged only.
func (s *FileService) deleteObjects(ctx context.Context, keys []string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.objects.Delete(ctx, key); err != nil {
			serviceLogger(ctx, s.logger, "files", "delete_object", "key", key).
				WarnContext(ctx, "delete stored object failed", "error", err)
		}
	}
}

// FileExtension returns the lower-case extension of name without the dot.
func FileExtension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(strings.TrimSpace(name)), "."))
}

// SecureFilename reduces an uploaded file name to ASCII letters, digits,
// dots, dashes and underscores. Path components are dropped. A name left
// empty becomes "file" with the original extension.
func SecureFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}

	ext := FileExtension(name)
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	var b strings.Builder
	for _, r := range stem {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('_')
		}
	}
	cleaned := strings.Trim(b.String(), "._")
	if cleaned == "" {
		cleaned = "file"
	}
	if ext == "" {
		return cleaned
	}
	return cleaned + "." + ext
}
