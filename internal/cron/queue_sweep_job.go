package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/marco-pos/internal/checkout"
	"github.com/angelmondragon/marco-pos/internal/offlinequeue"
	"github.com/angelmondragon/marco-pos/pkg/logger"
)

type queueSyncer interface {
	Status() checkout.Status
	Sync(ctx context.Context) (offlinequeue.DrainResult, error)
}

type QueueSweepJobParams struct {
	Logger *logger.Logger
	Syncer queueSyncer
}

// NewQueueSweepJob retries the offline queue while the terminal is online. A drain
// halted by a transient failure is otherwise only retried on the next went-online
// event, which never comes if connectivity stays up.
func NewQueueSweepJob(params QueueSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Syncer == nil {
		return nil, fmt.Errorf("syncer required")
	}
	return &queueSweepJob{logg: params.Logger, syncer: params.Syncer}, nil
}

type queueSweepJob struct {
	logg   *logger.Logger
	syncer queueSyncer
}

func (j *queueSweepJob) Name() string { return "offline_queue_sweep" }

func (j *queueSweepJob) Run(ctx context.Context) error {
	status := j.syncer.Status()
	if !status.Online || status.Pending == 0 || status.Syncing {
		return nil
	}

	result, err := j.syncer.Sync(ctx)
	if err != nil {
		return fmt.Errorf("offline queue sweep: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"delivered":     result.Delivered,
		"dead_lettered": result.DeadLettered,
		"remaining":     result.Remaining,
		"skipped":       result.Skipped,
	})
	if result.Halted && result.LastError != nil {
		return fmt.Errorf("offline queue sweep halted: %w", result.LastError)
	}
	j.logg.Info(logCtx, "offline queue sweep complete")
	return nil
}
