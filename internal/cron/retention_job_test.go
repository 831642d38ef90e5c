package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bazaar-backend/internal/notifications"
	"github.com/angelmondragon/bazaar-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
)

func newRetentionJob(t *testing.T, params RetentionJobParams, now time.Time) *retentionJob {
	t.Helper()
	params.Logger = testLogger()
	job, err := NewRetentionJob(params)
	require.NoError(t, err)
	rj := job.(*retentionJob)
	rj.now = func() time.Time { return now }
	return rj
}

func TestRetentionJobComputesCutoff(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	var got []time.Time
	purge := func(_ context.Context, cutoff time.Time) (int64, error) {
		got = append(got, cutoff)
		return 42, nil
	}

	job := newRetentionJob(t, RetentionJobParams{Name: "demo-retention", Purge: purge}, now)
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "demo-retention", job.Name())

	job = newRetentionJob(t, RetentionJobParams{Name: "short", Purge: purge, Retention: time.Hour}, now)
	require.NoError(t, job.Run(context.Background()))

	require.Len(t, got, 2)
	assert.True(t, got[0].Equal(now.Add(-DefaultRetention)))
	assert.True(t, got[1].Equal(now.Add(-time.Hour)))
}

func TestRetentionJobPropagatesError(t *testing.T) {
	job := newRetentionJob(t, RetentionJobParams{
		Name:  "broken",
		Purge: func(context.Context, time.Time) (int64, error) { return 0, errors.New("db down") },
	}, time.Now())
	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestNewRetentionJobValidates(t *testing.T) {
	purge := func(context.Context, time.Time) (int64, error) { return 0, nil }
	cases := map[string]RetentionJobParams{
		"name":   {Logger: testLogger(), Purge: purge},
		"logger": {Name: "x", Purge: purge},
		"purge":  {Name: "x", Logger: testLogger()},
	}
	for name, params := range cases {
		_, err := NewRetentionJob(params)
		assert.Error(t, err, name)
	}
}

func TestOutboxRetentionKeepsUnpublishedRows(t *testing.T) {
	db := dbtest.Open(t)
	now := time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)
	old := now.Add(-40 * 24 * time.Hour)
	recent := now.Add(-time.Hour)

	rows := []models.OutboxEvent{
		{ID: uuid.New(), EventType: enums.EventOrderPlaced, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: []byte(`{}`), CreatedAt: old, PublishedAt: &old},
		{ID: uuid.New(), EventType: enums.EventOrderPaid, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: []byte(`{}`), CreatedAt: recent, PublishedAt: &recent},
		{ID: uuid.New(), EventType: enums.EventOrderCancelled, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: []byte(`{}`), CreatedAt: old},
	}
	require.NoError(t, db.Create(&rows).Error)

	job := newRetentionJob(t, RetentionJobParams{Name: "outbox-retention", Purge: outbox.NewRepository(db).DeletePublishedBefore}, now)
	require.NoError(t, job.Run(context.Background()))

	var remaining []uuid.UUID
	require.NoError(t, db.Model(&models.OutboxEvent{}).Pluck("id", &remaining).Error)
	assert.ElementsMatch(t, []uuid.UUID{rows[1].ID, rows[2].ID}, remaining, "unpublished and recent rows survive")
}

func TestNotificationRetentionDropsOldRows(t *testing.T) {
	db := dbtest.Open(t)
	repo := notifications.NewRepository(db)
	now := time.Now().UTC()
	userID := uuid.New()
	for _, at := range []time.Time{now.Add(-31 * 24 * time.Hour), now.Add(-time.Minute)} {
		require.NoError(t, repo.Create(context.Background(), &models.Notification{
			UserID:    userID,
			Type:      enums.NotificationPaymentSettled,
			Title:     "Payout",
			Message:   "Your payout was sent",
			CreatedAt: at,
		}))
	}

	job := newRetentionJob(t, RetentionJobParams{Name: "notification-retention", Purge: repo.DeleteOlderThan}, now)
	require.NoError(t, job.Run(context.Background()))

	var left int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&left).Error)
	assert.Equal(t, int64(1), left)
}
