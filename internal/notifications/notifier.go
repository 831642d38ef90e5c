package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

const (
	maxTitleLen   = 100
	maxMessageLen = 500
)

// Payload is the user-facing content of an in-app notification.
type Payload struct {
	Title   string
	Message string
	Data    map[string]any
	Link    string
}

// Notifier delivers in-app notifications. Callers invoke it after their
// transaction commits; delivery failures never propagate back.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, payload Payload)
}

type creator interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Dispatcher persists notifications and logs (then drops) failures.
type Dispatcher struct {
	repo  creator
	logg  *logger.Logger
	clock func() time.Time
}

// NewDispatcher builds the persistent Notifier.
func NewDispatcher(repo creator, logg *logger.Logger) (*Dispatcher, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Dispatcher{repo: repo, logg: logg, clock: func() time.Time { return time.Now().UTC() }}, nil
}

func (d *Dispatcher) Notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationType, payload Payload) {
	logCtx := d.logg.WithFields(ctx, map[string]any{
		"notification_type": string(kind),
		"recipient_id":      userID.String(),
	})
	if userID == uuid.Nil || !kind.IsValid() {
		d.logg.Warn(logCtx, "notification.dropped")
		return
	}

	var data json.RawMessage
	if len(payload.Data) > 0 {
		raw, err := json.Marshal(payload.Data)
		if err != nil {
			d.logg.Error(logCtx, "notification.encode_failed", err)
			return
		}
		data = raw
	}
	var link *string
	if trimmed := strings.TrimSpace(payload.Link); trimmed != "" {
		link = &trimmed
	}

	notification := &models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      kind,
		Title:     truncate(strings.TrimSpace(payload.Title), maxTitleLen),
		Message:   truncate(strings.TrimSpace(payload.Message), maxMessageLen),
		Data:      data,
		Link:      link,
		CreatedAt: d.clock(),
	}
	if err := d.repo.Create(ctx, notification); err != nil {
		d.logg.Error(logCtx, "notification.persist_failed", err)
		return
	}
	d.logg.Debug(logCtx, "notification.sent")
}

func truncate(value string, limit int) string {
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return string(runes[:limit])
}
