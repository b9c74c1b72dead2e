package cron

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/farmmarket-backend/pkg/db/dbtest"
	"github.com/angelmondragon/farmmarket-backend/pkg/db/models"
	"github.com/angelmondragon/farmmarket-backend/pkg/enums"
	"github.com/angelmondragon/farmmarket-backend/pkg/logger"
	"github.com/angelmondragon/farmmarket-backend/pkg/outbox"
)

var retentionNow = time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

type fakePurger struct {
	cutoff time.Time
	called int
	rows   int64
	err    error
}

func (f *fakePurger) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
	f.called++
	f.cutoff = cutoff
	return f.rows, f.err
}

func (f *fakePurger) DeleteFailedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
	f.called++
	f.cutoff = cutoff
	return f.rows, f.err
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func TestOutboxRetentionJobUsesDefaultCutoffs(t *testing.T) {
	published := &fakePurger{rows: 7}
	dlq := &fakePurger{}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger: logger.Nop(),
		DB:     passthroughTx{},
		Outbox: published,
		DLQ:    dlq,
		Now:    func() time.Time { return retentionNow },
	})
	require.NoError(t, err)
	require.Equal(t, OutboxRetentionJobName, job.Name())

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, retentionNow.Add(-30*24*time.Hour), published.cutoff)
	require.Equal(t, retentionNow.Add(-90*24*time.Hour), dlq.cutoff)
	require.Equal(t, 1, published.called)
	require.Equal(t, 1, dlq.called)
}

func TestOutboxRetentionJobSkipsDLQWhenUnset(t *testing.T) {
	published := &fakePurger{}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:        logger.Nop(),
		DB:            passthroughTx{},
		Outbox:        published,
		RetentionDays: 7,
		Now:           func() time.Time { return retentionNow },
	})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, retentionNow.Add(-7*24*time.Hour), published.cutoff)
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger: logger.Nop(),
		DB:     passthroughTx{},
		Outbox: &fakePurger{err: errors.New("boom")},
	})
	require.NoError(t, err)
	require.Error(t, job.Run(context.Background()))
}

func TestOutboxRetentionJobRequiresDependencies(t *testing.T) {
	_, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: logger.Nop(), DB: passthroughTx{}})
	require.Error(t, err)
	_, err = NewOutboxRetentionJob(OutboxRetentionJobParams{DB: passthroughTx{}, Outbox: &fakePurger{}})
	require.Error(t, err)
}

func TestOutboxRetentionJobAgainstDatabase(t *testing.T) {
	client := dbtest.Open(t, t.Name())
	repo := outbox.NewRepository(client.DB())
	dlqRepo := outbox.NewDLQRepository(client.DB())

	old := retentionNow.Add(-45 * 24 * time.Hour)
	fresh := retentionNow.Add(-24 * time.Hour)
	for _, publishedAt := range []*time.Time{&old, &fresh, nil} {
		require.NoError(t, repo.Insert(client.DB(), models.OutboxEvent{
			EventType:     enums.EventOrderPacked,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			PublishedAt:   publishedAt,
		}))
	}

	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger: logger.Nop(),
		DB:     client,
		Outbox: repo,
		DLQ:    dlqRepo,
		Now:    func() time.Time { return retentionNow },
	})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))

	var remaining int64
	require.NoError(t, client.DB().Model(&models.OutboxEvent{}).Count(&remaining).Error)
	require.Equal(t, int64(2), remaining)
}
