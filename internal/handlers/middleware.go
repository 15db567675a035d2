package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/hrdesk/apiserver/internal/access"
	"github.com/hrdesk/apiserver/internal/logging"
	"github.com/hrdesk/apiserver/internal/services"
	"github.com/hrdesk/apiserver/types"
)

const (
	loginPath        = "/login"
	loginRequiredMsg = "Please log in to access this page"
	deniedMsg        = "You do not have permission to access this page"
)

// SessionResolver turns a session id into an identity.
type SessionResolver interface {
	Resolve(ctx context.Context, sessionID string) (types.Identity, error)
}

// Authenticate attaches the identity of a valid session to the request
// context. Requests without a valid session pass through anonymously and a
// stale cookie is cleared.
func Authenticate(resolver SessionResolver, cookies *SessionCookies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, err := cookies.Read(r)
			if err != nil {
				if !errors.Is(err, http.ErrNoCookie) {
					cookies.Clear(w)
				}
				next.ServeHTTP(w, r)
				return
			}

			identity, err := resolver.Resolve(r.Context(), sessionID)
			if err != nil {
				cookies.Clear(w)
				next.ServeHTTP(w, r)
				return
			}

			ctx := services.WithIdentity(r.Context(), identity)
			if logger := logging.FromContext(ctx); logger != nil {
				ctx = logging.ContextWithLogger(ctx, logger.With("user_id", identity.UserID))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireLogin rejects anonymous requests.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := identityFromRequest(r); !ok {
			if wantsJSON(r) {
				writeError(w, http.StatusUnauthorized, loginRequiredMsg)
				return
			}
			redirectError(w, r, loginPath, loginRequiredMsg)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Guard checks the permission table before a handler runs.
type Guard struct {
	policy *access.Policy
}

func NewGuard(policy *access.Policy) *Guard {
	return &Guard{policy: policy}
}

// Can reports whether identity may perform action on resource.
func (g *Guard) Can(identity types.Identity, resource, action string) bool {
	return g.policy.Allowed(identity.Role, resource, action)
}

// Require returns middleware that admits only identities granted action on
// resource. It must run after RequireLogin.
func (g *Guard) Require(resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := identityFromRequest(r)
			if !ok {
				RequireLogin(next).ServeHTTP(w, r)
				return
			}
			if !g.Can(identity, resource, action) {
				logging.Logger(r.Context(), nil).WarnContext(r.Context(), "permission denied",
					"role", identity.Role,
					"resource", resource,
					"action", action,
				)
				if wantsJSON(r) {
					writeError(w, http.StatusForbidden, deniedMsg)
					return
				}
				redirectError(w, r, "/", deniedMsg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger attaches a request scoped logger and logs one line per request.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			logger := base.With(
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
			)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(logging.ContextWithLogger(r.Context(), logger)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.InfoContext(r.Context(), "request completed",
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}
