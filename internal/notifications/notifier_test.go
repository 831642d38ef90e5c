package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

type fakeRepository struct {
	createFn func(ctx context.Context, n *models.Notification) error
}

func (f *fakeRepository) Create(ctx context.Context, n *models.Notification) error {
	return f.createFn(ctx, n)
}

func newTestDispatcher(t *testing.T, repo creator) (*Dispatcher, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	d, err := NewDispatcher(repo, logger.New(logger.Options{ServiceName: "test", Output: buf}))
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	return d, buf
}

func TestDispatcherPersistsNotification(t *testing.T) {
	var stored *models.Notification
	repo := &fakeRepository{createFn: func(ctx context.Context, n *models.Notification) error {
		stored = n
		return nil
	}}
	d, _ := newTestDispatcher(t, repo)
	userID := uuid.New()

	d.Notify(context.Background(), userID, enums.NotificationBargainCountered, Payload{
		Title:   "Counter offer",
		Message: strings.Repeat("m", 600),
		Data:    map[string]any{"counter_offer": "850"},
		Link:    "/bargains/1",
	})

	if stored == nil {
		t.Fatal("expected notification to be stored")
	}
	if stored.UserID != userID || stored.Type != enums.NotificationBargainCountered {
		t.Fatalf("unexpected notification %+v", stored)
	}
	if len(stored.Message) != maxMessageLen {
		t.Fatalf("expected message truncated to %d, got %d", maxMessageLen, len(stored.Message))
	}
	var data map[string]any
	if err := json.Unmarshal(stored.Data, &data); err != nil || data["counter_offer"] != "850" {
		t.Fatalf("unexpected data %s (%v)", stored.Data, err)
	}
	if stored.Link == nil || *stored.Link != "/bargains/1" {
		t.Fatalf("unexpected link %v", stored.Link)
	}
}

func TestDispatcherSwallowsFailures(t *testing.T) {
	repo := &fakeRepository{createFn: func(ctx context.Context, n *models.Notification) error {
		return errors.New("db down")
	}}
	d, buf := newTestDispatcher(t, repo)

	d.Notify(context.Background(), uuid.New(), enums.NotificationOrderPlaced, Payload{Title: "x", Message: "y"})

	if !strings.Contains(buf.String(), "notification.persist_failed") {
		t.Fatalf("expected failure to be logged; log=%s", buf.String())
	}
}

func TestDispatcherDropsInvalidType(t *testing.T) {
	called := false
	repo := &fakeRepository{createFn: func(ctx context.Context, n *models.Notification) error {
		called = true
		return nil
	}}
	d, _ := newTestDispatcher(t, repo)

	d.Notify(context.Background(), uuid.New(), enums.NotificationType("mystery"), Payload{})
	if called {
		t.Fatal("expected invalid notification type to be dropped")
	}
}
