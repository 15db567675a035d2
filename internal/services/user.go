package services

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/hrdesk/apiserver/internal/store"
	"github.com/hrdesk/apiserver/types"
)

const maxUsernameLength = 50

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	List(ctx context.Context) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
	SetActive(ctx context.Context, id int, active bool) error
	TouchLastLogin(ctx context.Context, id int, at time.Time) error
	Delete(ctx context.Context, id int) error
}

// UserInput is the submitted add/edit user form.
type UserInput struct {
	Username        string
	Email           string
	Role            string
	EmployeeID      *int
	IsActive        bool
	ChangePassword  bool
	Password        string
	ConfirmPassword string
}

// UserService encapsulates user administration use-cases.
type UserService struct {
	repo         UserRepository
	sessions     SessionRepository
	primaryAdmin string
	audit        *Auditor
	logger       *slog.Logger
}

func NewUserService(repo UserRepository, sessions SessionRepository, primaryAdmin string, audit *Auditor, logger *slog.Logger) *UserService {
	if strings.TrimSpace(primaryAdmin) == "" {
		primaryAdmin = "admin"
	}
	return &UserService{
		repo:         repo,
		sessions:     sessions,
		primaryAdmin: primaryAdmin,
		audit:        audit,
		logger:       logger,
	}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

// Create adds an account. A password and matching confirmation are required.
func (s *UserService) Create(ctx context.Context, in UserInput) (types.User, error) {
	v := validateUserInput(&in)
	validateNewPassword(v, in.Password, in.ConfirmPassword)
	if err := v.orNil(); err != nil {
		return types.User{}, err
	}

	hashed, err := HashPassword(in.Password)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{
		Username:     in.Username,
		Email:        in.Email,
		Role:         in.Role,
		EmployeeID:   in.EmployeeID,
		IsActive:     in.IsActive,
		PasswordHash: hashed,
	})
	if err != nil {
		return types.User{}, s.mapWriteError(ctx, "create", err)
	}

	s.audit.Record(ctx, EventUserCreated, user.ID, map[string]any{"username": user.Username, "role": user.Role})
	return user, nil
}

// Update edits an account. The caller cannot deactivate itself.
func (s *UserService) Update(ctx context.Context, actor types.Identity, id int, in UserInput) (types.User, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	if id == actor.UserID && !in.IsActive {
		return types.User{}, ErrSelfDeactivate
	}

	v := validateUserInput(&in)
	if in.ChangePassword {
		validateNewPassword(v, in.Password, in.ConfirmPassword)
	}
	if err := v.orNil(); err != nil {
		return types.User{}, err
	}
	if s.isPrimaryAdmin(existing) &&
		(in.Username != existing.Username || in.Role != types.RoleAdmin || !in.IsActive) {
		return types.User{}, ErrPrimaryAdminLocked
	}

	existing.Username = in.Username
	existing.Email = in.Email
	existing.Role = in.Role
	existing.EmployeeID = in.EmployeeID
	existing.IsActive = in.IsActive
	existing.PasswordHash = ""
	if in.ChangePassword {
		hashed, err := HashPassword(in.Password)
		if err != nil {
			return types.User{}, err
		}
		existing.PasswordHash = hashed
	}

	user, err := s.repo.Update(ctx, existing)
	if err != nil {
		return types.User{}, s.mapWriteError(ctx, "update", err)
	}
	if !user.IsActive {
		s.revokeSessions(ctx, user.ID)
	}

	s.audit.Record(ctx, EventUserUpdated, user.ID, map[string]any{
		"username":         user.Username,
		"role":             user.Role,
		"is_active":        user.IsActive,
		"password_changed": in.ChangePassword,
	})
	return user, nil
}

// Delete removes an account. Self deletion and deletion of the primary admin
// are refused.
func (s *UserService) Delete(ctx context.Context, actor types.Identity, id int) error {
	if id == actor.UserID {
		return ErrSelfDelete
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if s.isPrimaryAdmin(user) {
		return ErrPrimaryAdmin
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.audit.Record(ctx, EventUserDeleted, id, map[string]any{"username": user.Username})
	return nil
}

// ToggleActive flips the active flag of another account.
func (s *UserService) ToggleActive(ctx context.Context, actor types.Identity, id int) (types.User, error) {
	if id == actor.UserID {
		return types.User{}, ErrSelfDeactivate
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	if user.IsActive && s.isPrimaryAdmin(user) {
		return types.User{}, ErrPrimaryAdminLocked
	}
	user.IsActive = !user.IsActive
	if err := s.repo.SetActive(ctx, id, user.IsActive); err != nil {
		return types.User{}, err
	}
	if !user.IsActive {
		s.revokeSessions(ctx, id)
	}

	s.audit.Record(ctx, EventUserToggled, id, map[string]any{"is_active": user.IsActive})
	return user, nil
}

// ChangePassword replaces the caller's password after verifying the current
// one. The caller's other sessions are signed out.
func (s *UserService) ChangePassword(ctx context.Context, actor types.Identity, current, password, confirm string) error {
	user, err := s.repo.GetByID(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if !VerifyPassword(user.PasswordHash, current) {
		return fieldError("current_password", "Current password is incorrect")
	}
	v := &ValidationError{}
	validateNewPassword(v, password, confirm)
	if err := v.orNil(); err != nil {
		return err
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hashed); err != nil {
		return err
	}
	if s.sessions != nil {
		if err := s.sessions.DeleteOthers(ctx, user.ID, actor.SessionID); err != nil {
			serviceLogger(ctx, s.logger, "users", "change_password").
				WarnContext(ctx, "revoke other sessions failed", "user_id", user.ID, "error", err)
		}
	}
	return nil
}

func (s *UserService) isPrimaryAdmin(user types.User) bool {
	return user.Username == s.primaryAdmin
}

// EnsurePrimaryAdmin creates the primary admin account when it is missing.
// It reports whether an account was created.
func (s *UserService) EnsurePrimaryAdmin(ctx context.Context, password string) (bool, error) {
	_, err := s.repo.GetByUsername(ctx, s.primaryAdmin)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	_, err = s.Create(ctx, UserInput{
		Username:        s.primaryAdmin,
		Role:            types.RoleAdmin,
		IsActive:        true,
		Password:        password,
		ConfirmPassword: password,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *UserService) revokeSessions(ctx context.Context, userID int) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.DeleteByUser(ctx, userID); err != nil {
		serviceLogger(ctx, s.logger, "users", "revoke_sessions").
			WarnContext(ctx, "revoke sessions failed", "user_id", userID, "error", err)
	}
}

func (s *UserService) mapWriteError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, store.ErrConflict):
		switch constraint := store.ConstraintName(err); {
		case strings.Contains(constraint, "employee_id"):
			return fieldError("employee_id", "Employee is already linked to another user")
		default:
			return fieldError("username", "Username already exists")
		}
	case errors.Is(err, store.ErrInvalidReference):
		return fieldError("employee_id", "Employee not found")
	case errors.Is(err, ErrNotFound):
		return err
	}
	serviceLogger(ctx, s.logger, "users", op).ErrorContext(ctx, "write user failed", "error", err)
	return err
}

func validateUserInput(in *UserInput) *ValidationError {
	v := &ValidationError{}
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))

	switch {
	case in.Username == "":
		v.Add("username", "Username is required")
	case len(in.Username) > maxUsernameLength:
		v.Add("username", "Username is too long")
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			v.Add("email", "Invalid email address")
		}
	}
	if in.Role != types.RoleAdmin && in.Role != types.RoleUser {
		v.Add("role", "Role must be admin or user")
	}
	if in.EmployeeID != nil && *in.EmployeeID <= 0 {
		in.EmployeeID = nil
	}
	return v
}
