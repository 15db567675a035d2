package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hrdesk/apiserver/config"
	"github.com/hrdesk/apiserver/types"
)

const (
	defaultSessionTTL  = 30 * time.Minute
	defaultRememberTTL = 30 * 24 * time.Hour
)

// SessionRepository defines persistence operations for login sessions.
type SessionRepository interface {
	Create(ctx context.Context, session types.Session) (types.Session, error)
	Get(ctx context.Context, id string) (types.Session, error)
	Extend(ctx context.Context, id string, expiresAt time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID int) error
	DeleteOthers(ctx context.Context, userID int, keepID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// AuthService establishes and resolves sessions.
type AuthService struct {
	users       UserRepository
	sessions    SessionRepository
	ttl         time.Duration
	rememberTTL time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

func NewAuthService(users UserRepository, sessions SessionRepository, cfg config.SessionConfig, logger *slog.Logger) *AuthService {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	rememberTTL := cfg.RememberTTL
	if rememberTTL <= 0 {
		rememberTTL = defaultRememberTTL
	}
	return &AuthService{
		users:       users,
		sessions:    sessions,
		ttl:         ttl,
		rememberTTL: rememberTTL,
		now:         time.Now,
		logger:      logger,
	}
}

// RememberTTL is the lifetime of a remembered session.
func (s *AuthService) RememberTTL() time.Duration {
	return s.rememberTTL
}

// Login verifies the credentials and opens a session. The password hash is
// compared unconditionally; there is no alternate credential path.
func (s *AuthService) Login(ctx context.Context, username, password string, remember bool) (types.Session, types.Identity, error) {
	logger := serviceLogger(ctx, s.logger, "auth", "login")
	username = strings.TrimSpace(username)

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.ErrorContext(ctx, "load user failed", "error", err)
			return types.Session{}, types.Identity{}, err
		}
		VerifyPassword("", password)
		return types.Session{}, types.Identity{}, ErrInvalidCredentials
	}

	if username == "" || !VerifyPassword(user.PasswordHash, password) {
		return types.Session{}, types.Identity{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return types.Session{}, types.Identity{}, ErrAccountDisabled
	}

	now := s.now()
	ttl := s.ttl
	if remember {
		ttl = s.rememberTTL
	}
	session, err := s.sessions.Create(ctx, types.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Remember:  remember,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	})
	if err != nil {
		logger.ErrorContext(ctx, "create session failed", "error", err)
		return types.Session{}, types.Identity{}, err
	}

	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		logger.WarnContext(ctx, "update last login failed", "user_id", user.ID, "error", err)
	}

	logger.InfoContext(ctx, "login succeeded", "user_id", user.ID)
	return session, identityOf(session.ID, user), nil
}

// Resolve returns the identity behind a session id. Non-remembered sessions
// slide forward on every call.
func (s *AuthService) Resolve(ctx context.Context, sessionID string) (types.Identity, error) {
	if strings.TrimSpace(sessionID) == "" {
		return types.Identity{}, ErrSessionExpired
	}
	logger := serviceLogger(ctx, s.logger, "auth", "resolve")

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return types.Identity{}, ErrSessionExpired
		}
		return types.Identity{}, err
	}

	now := s.now()
	if !now.Before(session.ExpiresAt) {
		s.drop(ctx, logger, sessionID)
		return types.Identity{}, ErrSessionExpired
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.drop(ctx, logger, sessionID)
			return types.Identity{}, ErrSessionExpired
		}
		return types.Identity{}, err
	}
	if !user.IsActive {
		s.drop(ctx, logger, sessionID)
		return types.Identity{}, ErrAccountDisabled
	}

	if !session.Remember {
		if err := s.sessions.Extend(ctx, sessionID, now.Add(s.ttl)); err != nil {
			logger.WarnContext(ctx, "extend session failed", "error", err)
		}
	}

	return identityOf(session.ID, user), nil
}

// Logout invalidates the session immediately.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	err := s.sessions.Delete(ctx, sessionID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// PurgeExpired removes expired sessions.
func (s *AuthService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx, s.now())
}

func (s *AuthService) drop(ctx context.Context, logger *slog.Logger, sessionID string) {
	if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, ErrNotFound) {
		logger.WarnContext(ctx, "delete session failed", "error", err)
	}
}

func identityOf(sessionID string, user types.User) types.Identity {
	return types.Identity{
		SessionID:  sessionID,
		UserID:     user.ID,
		Username:   user.Username,
		Role:       user.Role,
		EmployeeID: user.EmployeeID,
	}
}
