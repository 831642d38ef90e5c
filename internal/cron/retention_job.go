package cron

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

const DefaultRetention = 30 * 24 * time.Hour

// PurgeFunc deletes rows older than cutoff and returns how many went.
type PurgeFunc func(ctx context.Context, cutoff time.Time) (int64, error)

// RetentionJobParams configures a job that prunes one table by age.
type RetentionJobParams struct {
	Name      string
	Logger    *logger.Logger
	Purge     PurgeFunc
	Retention time.Duration
}

// NewRetentionJob builds a job that calls Purge with now minus Retention on
// every run. Retention defaults to DefaultRetention.
func NewRetentionJob(params RetentionJobParams) (Job, error) {
	switch {
	case strings.TrimSpace(params.Name) == "":
		return nil, fmt.Errorf("job name required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.Purge == nil:
		return nil, fmt.Errorf("%s: purge func required", params.Name)
	}
	retention := params.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &retentionJob{
		name:      params.Name,
		logg:      params.Logger,
		purge:     params.Purge,
		retention: retention,
		now:       utcNow,
	}, nil
}

type retentionJob struct {
	name      string
	logg      *logger.Logger
	purge     PurgeFunc
	retention time.Duration
	now       func() time.Time
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.retention)
	deleted, err := j.purge(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), j.name+" complete")
	return nil
}
