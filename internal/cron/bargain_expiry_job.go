package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

type bargainExpirer interface {
	ExpireStale(ctx context.Context) (int64, error)
}

// BargainExpiryJobParams configures the bargain expiry sweep.
type BargainExpiryJobParams struct {
	Logger   *logger.Logger
	Bargains bargainExpirer
}

// NewBargainExpiryJob builds the job that closes pending and countered
// bargains whose expiry has passed.
func NewBargainExpiryJob(params BargainExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Bargains == nil {
		return nil, fmt.Errorf("bargain service required")
	}
	return &bargainExpiryJob{logg: params.Logger, bargains: params.Bargains}, nil
}

type bargainExpiryJob struct {
	logg     *logger.Logger
	bargains bargainExpirer
}

func (j *bargainExpiryJob) Name() string { return "bargain-expiry" }

func (j *bargainExpiryJob) Run(ctx context.Context) error {
	expired, err := j.bargains.ExpireStale(ctx)
	if err != nil {
		return fmt.Errorf("expire bargains: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "expired", expired), "bargain expiry complete")
	return nil
}
