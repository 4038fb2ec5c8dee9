package cron

import (
	"context"
	"fmt"

	"github.com/emarket-np/storefront/pkg/logger"
	"github.com/emarket-np/storefront/pkg/metrics"
)

// staleSweeper cancels pending orders older than the TTL and reports how many
// it transitioned.
type staleSweeper interface {
	SweepStale(ctx context.Context) (int, error)
}

// StaleOrdersJobParams configures the sweep job.
type StaleOrdersJobParams struct {
	Logger  *logger.Logger
	Sweeper staleSweeper
	Metrics *metrics.SweepJobMetrics
}

// NewStaleOrdersJob builds the job that cancels abandoned pending orders in
// the background so shoppers never see them resurface.
func NewStaleOrdersJob(params StaleOrdersJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("sweeper required")
	}
	return &staleOrdersJob{
		logg:    params.Logger,
		sweeper: params.Sweeper,
		metrics: params.Metrics,
	}, nil
}

type staleOrdersJob struct {
	logg    *logger.Logger
	sweeper staleSweeper
	metrics *metrics.SweepJobMetrics
}

func (j *staleOrdersJob) Name() string { return "stale-orders" }

func (j *staleOrdersJob) Run(ctx context.Context) error {
	canceled, err := j.sweeper.SweepStale(ctx)
	if err != nil {
		return fmt.Errorf("sweep stale orders: %w", err)
	}
	j.metrics.AddCanceled(canceled)
	logCtx := j.logg.WithField(ctx, "canceled", canceled)
	j.logg.Info(logCtx, "stale order sweep complete")
	return nil
}
