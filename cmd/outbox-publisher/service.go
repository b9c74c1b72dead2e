package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"github.com/angelmondragon/farmmarket-backend/pkg/config"
	"github.com/angelmondragon/farmmarket-backend/pkg/db/models"
	"github.com/angelmondragon/farmmarket-backend/pkg/enums"
	"github.com/angelmondragon/farmmarket-backend/pkg/logger"
	"github.com/angelmondragon/farmmarket-backend/pkg/metrics"
	"github.com/angelmondragon/farmmarket-backend/pkg/outbox"
	"github.com/angelmondragon/farmmarket-backend/pkg/outbox/registry"
	"github.com/angelmondragon/farmmarket-backend/pkg/pubsub"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultMaxAttempts    = 10
	defaultPublishTimeout = 15 * time.Second
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

// eventPublisher is satisfied by *pubsub.Client.
type eventPublisher interface {
	Ping(context.Context) error
	Publish(ctx context.Context, topic string, msg *gcppubsub.Message) (string, error)
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type ServiceParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            dbClient
	Publisher     eventPublisher
	Repository    outboxRepository
	Registry      eventResolver
	DLQRepository dlqRepository
	Metrics       *metrics.OutboxMetrics
	Now           func() time.Time
}

// Service drains outbox_events to Pub/Sub. Each batch runs in one
// transaction so the rows it locked are released together.
type Service struct {
	logg      *logger.Logger
	db        dbClient
	publisher eventPublisher
	repo      outboxRepository
	registry  eventResolver
	dlq       dlqRepository
	metrics   *metrics.OutboxMetrics
	now       func() time.Time

	batchSize      int
	maxAttempts    int
	pollInterval   time.Duration
	publishTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Publisher == nil:
		return nil, errors.New("publisher is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.DLQRepository == nil:
		return nil, errors.New("dlq repository is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	cfg := params.Config.Outbox
	return &Service{
		logg:           params.Logger,
		db:             params.DB,
		publisher:      params.Publisher,
		repo:           params.Repository,
		registry:       params.Registry,
		dlq:            params.DLQRepository,
		metrics:        params.Metrics,
		now:            now,
		batchSize:      positiveOr(cfg.BatchSize, defaultBatchSize),
		maxAttempts:    positiveOr(cfg.MaxAttempts, defaultMaxAttempts),
		pollInterval:   time.Duration(positiveOr(cfg.PollIntervalMS, defaultPollMs)) * time.Millisecond,
		publishTimeout: defaultPublishTimeout,
	}, nil
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

// Run polls until ctx is canceled. A full batch is followed immediately by
// the next one, an empty poll waits one interval, and consecutive failures
// back off exponentially up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	if err := s.publisher.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub not ready: %w", err)
	}

	var (
		delay    time.Duration
		failures int
	)
	for {
		if err := wait(ctx, delay); err != nil {
			s.logg.Info(ctx, "outbox.publisher.stopped")
			return err
		}
		processed, err := s.processBatch(ctx)
		switch {
		case err != nil:
			failures++
			s.logg.Error(s.logg.WithField(ctx, "consecutive_failures", failures), "outbox.publisher.batch_failed", err)
			delay = withJitter(backoffFor(failures, s.pollInterval))
		case processed:
			failures, delay = 0, 0
		default:
			failures, delay = 0, withJitter(s.pollInterval)
		}
	}
}

// processBatch reports whether any row was claimed.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	started := s.now()
	var claimed int
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch batch: %w", err)
		}
		claimed = len(events)
		for _, event := range events {
			if err := s.settle(tx, s.deliver(ctx, event)); err != nil {
				return err
			}
		}
		return nil
	})
	if claimed > 0 {
		s.metrics.ObserveBatch(s.now().Sub(started))
	}
	return claimed > 0, err
}

type outcome int

const (
	outcomePublished outcome = iota
	outcomeRetry
	outcomeDeadLetter
)

// delivery is the result of one publish attempt, not yet written back.
type delivery struct {
	ctx    context.Context
	event  models.OutboxEvent
	result outcome
	reason enums.OutboxDLQErrorReason
	err    error
}

func (s *Service) deliver(ctx context.Context, event models.OutboxEvent) delivery {
	ctx = s.logg.WithFields(ctx, eventFields(event))
	d := delivery{ctx: ctx, event: event}

	resolved, err := s.registry.Resolve(event)
	if err != nil {
		d.result, d.reason, d.err = outcomeDeadLetter, enums.OutboxDLQReasonNonRetryable, err
		return d
	}
	topic := resolved.Descriptor.Topic
	d.ctx = s.logg.WithFields(ctx, map[string]any{"topic": topic, "event_id": resolved.Envelope.EventID})

	pubCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()
	messageID, err := s.publisher.Publish(pubCtx, topic, buildMessage(event, resolved.Envelope))
	switch {
	case err == nil:
		d.result = outcomePublished
		d.ctx = s.logg.WithField(d.ctx, "message_id", messageID)
	case permanent(err):
		d.result, d.reason, d.err = outcomeDeadLetter, enums.OutboxDLQReasonNonRetryable, err
	case event.AttemptCount+1 >= s.maxAttempts:
		d.result, d.reason = outcomeDeadLetter, enums.OutboxDLQReasonMaxAttempts
		d.err = fmt.Errorf("gave up after %d attempts: %w", event.AttemptCount+1, err)
	default:
		d.result, d.err = outcomeRetry, err
	}
	return d
}

// permanent reports publish errors that no retry can fix.
func permanent(err error) bool {
	var nonRetryable registry.NonRetryableError
	if errors.As(err, &nonRetryable) || errors.Is(err, pubsub.ErrTopicNotConfigured) {
		return true
	}
	switch status.Code(err) {
	case codes.InvalidArgument, codes.NotFound, codes.PermissionDenied:
		return true
	}
	return false
}

// settle writes the outcome back inside the batch transaction. Only
// bookkeeping failures are returned.
func (s *Service) settle(tx *gorm.DB, d delivery) error {
	event := d.event
	eventType := string(event.EventType)
	switch d.result {
	case outcomePublished:
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark %s published: %w", event.ID, err)
		}
		s.metrics.IncPublished(eventType, metrics.OutboxResultPublished)
		s.logg.Info(d.ctx, "outbox.event.published")
	case outcomeRetry:
		if err := s.repo.MarkFailedTx(tx, event.ID, d.err); err != nil {
			return fmt.Errorf("mark %s failed: %w", event.ID, err)
		}
		s.metrics.IncPublished(eventType, metrics.OutboxResultRetry)
		s.logg.Warn(s.logg.WithField(d.ctx, "error", d.err.Error()), "outbox.event.retry")
	default:
		msg := d.err.Error()
		entry := models.OutboxDLQ{
			EventID:       event.ID,
			EventType:     event.EventType,
			AggregateType: event.AggregateType,
			AggregateID:   event.AggregateID,
			Payload:       event.Payload,
			ErrorReason:   d.reason,
			ErrorMessage:  &msg,
			AttemptCount:  event.AttemptCount,
			FailedAt:      s.now().UTC(),
		}
		if err := s.dlq.InsertTx(tx, entry); err != nil {
			return fmt.Errorf("dead-letter %s: %w", event.ID, err)
		}
		if err := s.repo.MarkTerminalTx(tx, event.ID, d.err, s.maxAttempts); err != nil {
			return fmt.Errorf("mark %s terminal: %w", event.ID, err)
		}
		s.metrics.IncPublished(eventType, metrics.OutboxResultDLQ)
		s.logg.Warn(s.logg.WithFields(d.ctx, map[string]any{"error": msg, "error_reason": d.reason}), "outbox.event.dead_lettered")
	}
	return nil
}

// buildMessage carries the stored envelope as the body and the routing
// fields as attributes so subscribers can filter without decoding. Events of
// one aggregate share an ordering key.
func buildMessage(event models.OutboxEvent, envelope outbox.PayloadEnvelope) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data:        event.Payload,
		OrderingKey: event.AggregateID.String(),
		Attributes: map[string]string{
			"event_id":       envelope.EventID,
			"event_type":     string(event.EventType),
			"event_version":  strconv.Itoa(envelope.Version),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		},
	}
}

func eventFields(event models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// backoffFor doubles base once per consecutive failure, capped at maxBackoff.
func backoffFor(failures int, base time.Duration) time.Duration {
	d := base
	for i := 0; i < failures && d < maxBackoff; i++ {
		d *= 2
	}
	return min(d, maxBackoff)
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}
