package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/shipment-console/pkg/logger"
)

const (
	outboxRetentionDays = 30
	dlqRetentionDays    = 90
	outboxMinAttempts   = 10
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

// PurgeRecorder counts deleted rows per table.
type PurgeRecorder interface {
	AddPurged(table string, rows int64)
}

type dlqRetentionRepo interface {
	DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// OutboxRetentionJobParams configure the shipment event retention job.
type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxRetentionRepo
	// DLQ is optional; dead letters are kept forever without it.
	DLQ              dlqRetentionRepo
	RetentionDays    int
	DLQRetentionDays int
	// MinAttempts matches the publisher's terminal attempt count.
	MinAttempts int
	Purged      PurgeRecorder
}

// NewOutboxRetentionJob prunes delivered shipment events and old dead letters.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	retention := params.RetentionDays
	if retention <= 0 {
		retention = outboxRetentionDays
	}
	dlqRetention := params.DLQRetentionDays
	if dlqRetention <= 0 {
		dlqRetention = dlqRetentionDays
	}
	minAttempts := params.MinAttempts
	if minAttempts <= 0 {
		minAttempts = outboxMinAttempts
	}
	return &outboxRetentionJob{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		dlq:          params.DLQ,
		retention:    retention,
		dlqRetention: dlqRetention,
		minAttempts:  minAttempts,
		purged:       params.Purged,
		now:          time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg         *logger.Logger
	db           txRunner
	repo         outboxRetentionRepo
	dlq          dlqRetentionRepo
	retention    int
	dlqRetention int
	minAttempts  int
	purged       PurgeRecorder
	now          func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

// Run deletes the outbox rows and the dead letters in separate transactions so one
// failing side does not hold back the other.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.AddDate(0, 0, -j.retention)
	dlqCutoff := now.AddDate(0, 0, -j.dlqRetention)

	var eventsDeleted, lettersDeleted int64
	errEvents := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeletePublishedBefore(ctx, tx, cutoff, j.minAttempts)
		eventsDeleted = rows
		return err
	})
	if errEvents != nil {
		errEvents = fmt.Errorf("outbox retention: %w", errEvents)
	}

	var errLetters error
	if j.dlq != nil {
		errLetters = j.db.WithTx(ctx, func(tx *gorm.DB) error {
			rows, err := j.dlq.DeleteFailedBefore(ctx, tx, dlqCutoff)
			lettersDeleted = rows
			return err
		})
		if errLetters != nil {
			errLetters = fmt.Errorf("dlq retention: %w", errLetters)
		}
	}

	if j.purged != nil {
		j.purged.AddPurged("outbox_events", eventsDeleted)
		j.purged.AddPurged("outbox_dlq", lettersDeleted)
	}
	if err := multierr.Combine(errEvents, errLetters); err != nil {
		return err
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"dlq_cutoff":     dlqCutoff,
		"min_attempts":   j.minAttempts,
		"events_deleted": eventsDeleted,
		"dlq_deleted":    lettersDeleted,
	})
	j.logg.Info(logCtx, "outbox retention cleanup complete")
	return nil
}
