package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/farmmarket-backend/pkg/logger"
	"github.com/angelmondragon/farmmarket-backend/pkg/metrics"
)

const (
	OutboxRetentionJobName = "outbox-retention"

	defaultOutboxRetentionDays = 30
	defaultDLQRetentionDays    = 90
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type publishedPurger interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type deadLetterPurger interface {
	DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger  *logger.Logger
	DB      txRunner
	Outbox  publishedPurger
	DLQ     deadLetterPurger
	Metrics *metrics.CronJobMetrics
	// RetentionDays keeps published rows this long. DLQRetentionDays does the
	// same for dead letters; a nil DLQ purger disables that half.
	RetentionDays    int
	DLQRetentionDays int
	Now              func() time.Time
}

type outboxRetentionJob struct {
	logg       *logger.Logger
	db         txRunner
	outbox     publishedPurger
	dlq        deadLetterPurger
	metrics    *metrics.CronJobMetrics
	retention  time.Duration
	dlqKeepFor time.Duration
	now        func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &outboxRetentionJob{
		logg:       params.Logger,
		db:         params.DB,
		outbox:     params.Outbox,
		dlq:        params.DLQ,
		metrics:    params.Metrics,
		retention:  days(params.RetentionDays, defaultOutboxRetentionDays),
		dlqKeepFor: days(params.DLQRetentionDays, defaultDLQRetentionDays),
		now:        now,
	}, nil
}

func days(value, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * 24 * time.Hour
}

func (j *outboxRetentionJob) Name() string { return OutboxRetentionJobName }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	publishedCutoff := now.Add(-j.retention)
	dlqCutoff := now.Add(-j.dlqKeepFor)

	var published, deadLetters int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		published, err = j.outbox.DeletePublishedBefore(ctx, tx, publishedCutoff)
		if err != nil {
			return fmt.Errorf("delete published events: %w", err)
		}
		if j.dlq == nil {
			return nil
		}
		deadLetters, err = j.dlq.DeleteFailedBefore(ctx, tx, dlqCutoff)
		if err != nil {
			return fmt.Errorf("delete dead letters: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}

	j.metrics.AddRowsDeleted("outbox_events", published)
	j.metrics.AddRowsDeleted("outbox_dlq", deadLetters)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"published_cutoff":  publishedCutoff,
		"dlq_cutoff":        dlqCutoff,
		"published_deleted": published,
		"dlq_deleted":       deadLetters,
	})
	j.logg.Info(logCtx, "cron.outbox_retention.complete")
	return nil
}
