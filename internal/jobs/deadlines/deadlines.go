package deadlines

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const defaultBatchSize = 100

type sweeper interface {
	SweepDeadlines(ctx context.Context, limit int) (int, error)
}

// Job escalates disputes whose phase deadline has passed. It is meant
// to run on a fixed interval for the lifetime of the process.
type Job struct {
	disputes  sweeper
	interval  time.Duration
	batchSize int
	logger    *zap.Logger
}

func New(disputes sweeper, interval time.Duration, logger *zap.Logger) *Job {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		disputes:  disputes,
		interval:  interval,
		batchSize: defaultBatchSize,
		logger:    logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.disputes == nil {
		return nil
	}

	escalated, err := j.disputes.SweepDeadlines(ctx, j.batchSize)
	if err != nil {
		return fmt.Errorf("sweep dispute deadlines: %w", err)
	}
	if escalated > 0 {
		j.logger.Info("dispute deadline sweep completed", zap.Int("escalated", escalated))
	}
	return nil
}

// Start runs the sweep on a ticker until the context is cancelled.
func (j *Job) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("dispute deadline sweep failed", zap.Error(err))
			}
		}
	}
}
