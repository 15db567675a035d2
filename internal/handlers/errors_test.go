package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hrdesk/apiserver/internal/services"
)

func TestUserErrorMapsKnownErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	tests := []struct {
		err    error
		status int
	}{
		{services.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", services.ErrDepartmentNotEmpty), http.StatusConflict},
		{services.ErrAlreadyCheckedIn, http.StatusConflict},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
		{services.ErrForbidden, http.StatusForbidden},
		{services.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{services.ErrEmployeeCodeTaken, http.StatusConflict},
		{services.ErrPrimaryAdminLocked, http.StatusConflict},
	}
	for _, tc := range tests {
		status, message := userError(req, tc.err)
		if status != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, status)
		}
		if message == "" || message == genericErrorMessage {
			t.Fatalf("%v: expected a specific message, got %q", tc.err, message)
		}
	}
}

func TestUserErrorHidesUnexpectedErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	status, message := userError(req, errors.New("pq: connection refused on 10.0.0.5"))
	if status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", status)
	}
	if message != genericErrorMessage || strings.Contains(message, "10.0.0.5") {
		t.Fatalf("internal detail leaked: %q", message)
	}
}

func TestUserErrorUsesFirstFieldError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	v := &services.ValidationError{}
	v.Add("name", "Department name is required")
	status, message := userError(req, v)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if message != "Department name is required" {
		t.Fatalf("unexpected message %q", message)
	}
}
