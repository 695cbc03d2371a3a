package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/marco-pos/internal/offlinequeue"
	"github.com/angelmondragon/marco-pos/pkg/logger"
)

type deadLetterSource interface {
	DeadLetters() []offlinequeue.DeadLetter
}

type DeadLetterAlertJobParams struct {
	Logger *logger.Logger
	Source deadLetterSource
}

// NewDeadLetterAlertJob warns on every cycle while sales sit in the dead-letter list,
// so an owner notices them in the terminal logs.
func NewDeadLetterAlertJob(params DeadLetterAlertJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Source == nil {
		return nil, fmt.Errorf("dead letter source required")
	}
	return &deadLetterAlertJob{logg: params.Logger, source: params.Source}, nil
}

type deadLetterAlertJob struct {
	logg   *logger.Logger
	source deadLetterSource
}

func (j *deadLetterAlertJob) Name() string { return "dead_letter_alert" }

func (j *deadLetterAlertJob) Run(ctx context.Context) error {
	dead := j.source.DeadLetters()
	if len(dead) == 0 {
		return nil
	}

	reasons := map[string]int{}
	oldest := dead[0].FailedAt
	for _, dl := range dead {
		reasons[string(dl.Reason)]++
		if dl.FailedAt.Before(oldest) {
			oldest = dl.FailedAt
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"dead_letters":  len(dead),
		"reasons":       reasons,
		"oldest_failed": oldest.Format(time.RFC3339),
	})
	j.logg.Warn(logCtx, "sales are waiting in the dead-letter list")
	return nil
}
