package handlers

import (
	"errors"
	"net/http"

	"github.com/hrdesk/apiserver/internal/logging"
	"github.com/hrdesk/apiserver/internal/services"
)

const genericErrorMessage = "Something went wrong. Please try again."

var errorMessages = []struct {
	err     error
	status  int
	message string
}{
	{services.ErrNotFound, http.StatusNotFound, "The requested record was not found"},
	{services.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid username or password"},
	{services.ErrAccountDisabled, http.StatusForbidden, "This account is disabled"},
	{services.ErrSessionExpired, http.StatusUnauthorized, "Your session has expired, please log in again"},
	{services.ErrForbidden, http.StatusForbidden, "You do not have permission to perform this action"},
	{services.ErrAlreadyCheckedIn, http.StatusConflict, "Attendance already recorded for today"},
	{services.ErrNoOpenCheckIn, http.StatusConflict, "No check-in recorded for today, or already checked out"},
	{services.ErrDepartmentNotEmpty, http.StatusConflict, "Cannot delete a department that has employees"},
	{services.ErrSelfDelete, http.StatusConflict, "You cannot delete your own account"},
	{services.ErrSelfDeactivate, http.StatusConflict, "You cannot deactivate your own account"},
	{services.ErrPrimaryAdmin, http.StatusConflict, "The primary admin account cannot be deleted"},
	{services.ErrEmployeeCodeTaken, http.StatusConflict, "Another employee was added at the same time. Please submit the form again"},
	{services.ErrPrimaryAdminLocked, http.StatusConflict, "The primary admin account must stay an active admin with the same username"},
	{services.ErrUnsupportedFileType, http.StatusBadRequest, "File type not allowed"},
	{services.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "File is too large"},
	{services.ErrEmptyFile, http.StatusBadRequest, "No file selected"},
	{services.ErrDuplicate, http.StatusConflict, "A record with the same details already exists"},
}

// userError translates a service error into a status and a message that is
// safe to show. Unexpected errors are logged and replaced with a generic
// message.
func userError(r *http.Request, err error) (int, string) {
	if vErr, ok := services.AsValidation(err); ok {
		return http.StatusBadRequest, vErr.First()
	}
	for _, m := range errorMessages {
		if errors.Is(err, m.err) {
			return m.status, m.message
		}
	}
	logging.Logger(r.Context(), nil).ErrorContext(r.Context(), "request failed",
		"kind", services.ErrorKind(err),
		"error", err,
	)
	return http.StatusInternalServerError, genericErrorMessage
}

// writeServiceError replies to a JSON caller.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := userError(r, err)
	writeError(w, status, message)
}

// redirectServiceError redirects a page caller to path with a notice.
func redirectServiceError(w http.ResponseWriter, r *http.Request, path string, err error) {
	_, message := userError(r, err)
	redirectError(w, r, path, message)
}
