package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/bazaar-backend/internal/settlement"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

type settler interface {
	SettleDue(ctx context.Context) (settlement.SweepResult, error)
}

// SettlementJobParams configures the payout sweep.
type SettlementJobParams struct {
	Logger     *logger.Logger
	Settlement settler
}

// NewSettlementJob builds the job that releases held payouts past the hold window.
func NewSettlementJob(params SettlementJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Settlement == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	return &settlementJob{logg: params.Logger, settlement: params.Settlement}, nil
}

type settlementJob struct {
	logg       *logger.Logger
	settlement settler
}

func (j *settlementJob) Name() string { return "settlement" }

// Run fails when the due batch cannot be read or when money moved without
// the ledger recording it. Other per-transaction failures are retried on the
// next pass.
func (j *settlementJob) Run(ctx context.Context) error {
	res, err := j.settlement.SettleDue(ctx)
	if err != nil {
		return fmt.Errorf("settle due transactions: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"scanned":     res.Scanned,
		"transferred": res.Transferred,
		"retrying":    res.Retrying,
		"failed":      res.Failed,
		"unrecorded":  res.Unrecorded,
	}), "settlement sweep complete")
	if res.Unrecorded > 0 {
		return fmt.Errorf("%d transfers completed but were not recorded", res.Unrecorded)
	}
	return nil
}
