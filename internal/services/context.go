package services

import (
	"context"
	"log/slog"

	"github.com/hrdesk/apiserver/internal/logging"
	"github.com/hrdesk/apiserver/types"
)

type identityKey struct{}

// WithIdentity attaches the authenticated identity to ctx.
func WithIdentity(ctx context.Context, identity types.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the identity attached by WithIdentity.
func IdentityFromContext(ctx context.Context) (types.Identity, bool) {
	if ctx == nil {
		return types.Identity{}, false
	}
	identity, ok := ctx.Value(identityKey{}).(types.Identity)
	return identity, ok
}

func actorID(ctx context.Context) int {
	identity, _ := IdentityFromContext(ctx)
	return identity.UserID
}

func actorRef(ctx context.Context) *int {
	identity, ok := IdentityFromContext(ctx)
	if !ok || identity.UserID == 0 {
		return nil
	}
	id := identity.UserID
	return &id
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.Logger(ctx, base)

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}
