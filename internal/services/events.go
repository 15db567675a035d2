package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Audit event types.
const (
	EventEmployeeCreated   = "employee.created"
	EventEmployeeUpdated   = "employee.updated"
	EventEmployeeDeleted   = "employee.deleted"
	EventDepartmentCreated = "department.created"
	EventDepartmentUpdated = "department.updated"
	EventDepartmentDeleted = "department.deleted"
	EventCheckIn           = "attendance.check_in"
	EventCheckOut          = "attendance.check_out"
	EventUserCreated       = "user.created"
	EventUserUpdated       = "user.updated"
	EventUserDeleted       = "user.deleted"
	EventUserToggled       = "user.status_changed"
	EventFileUploaded      = "file.uploaded"
	EventFileDeleted       = "file.deleted"
	EventPhotoUploaded     = "photo.uploaded"
	EventPhotoDeleted      = "photo.deleted"
)

const defaultPublishTimeout = 3 * time.Second

// Publisher is the subset of the message queue used for audit events.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// Event is the JSON payload published after a committed change.
type Event struct {
	Type     string         `json:"type"`
	ActorID  int            `json:"actor_id"`
	EntityID int            `json:"entity_id"`
	At       time.Time      `json:"at"`
	Details  map[string]any `json:"details,omitempty"`
}

// Auditor publishes audit events. Publishing failures are logged and never
// returned. A nil Auditor discards events.
type Auditor struct {
	publisher Publisher
	channel   string
	logger    *slog.Logger
	timeout   time.Duration
	now       func() time.Time
}

func NewAuditor(publisher Publisher, channel string, logger *slog.Logger) *Auditor {
	return &Auditor{
		publisher: publisher,
		channel:   channel,
		logger:    logger,
		timeout:   defaultPublishTimeout,
		now:       time.Now,
	}
}

// Record publishes one event with the actor taken from ctx.
func (a *Auditor) Record(ctx context.Context, eventType string, entityID int, details map[string]any) {
	if a == nil || a.publisher == nil {
		return
	}
	event := Event{
		Type:     eventType,
		ActorID:  actorID(ctx),
		EntityID: entityID,
		At:       a.now().UTC(),
		Details:  details,
	}
	logger := serviceLogger(ctx, a.logger, "audit", "publish", "event", eventType, "entity_id", entityID)

	data, err := json.Marshal(event)
	if err != nil {
		logger.ErrorContext(ctx, "encode event failed", "error", err)
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()
	if _, err := a.publisher.Publish(pubCtx, a.channel, data, map[string]string{"type": eventType}); err != nil {
		logger.WarnContext(ctx, "publish event failed", "error", err)
	}
}
