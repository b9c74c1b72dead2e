package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/farmmarket-backend/pkg/db/dbtest"
	"github.com/angelmondragon/farmmarket-backend/pkg/db/models"
	"github.com/angelmondragon/farmmarket-backend/pkg/enums"
	"github.com/angelmondragon/farmmarket-backend/pkg/logger"
	"github.com/angelmondragon/farmmarket-backend/pkg/outbox"
	"github.com/angelmondragon/farmmarket-backend/pkg/outbox/payloads"
)

func TestEmitWritesEnvelope(t *testing.T) {
	client := dbtest.Open(t, t.Name())
	repo := outbox.NewRepository(client.DB())
	svc := outbox.NewService(repo, logger.Nop())

	orderID := uuid.New()
	actor := uuid.New()
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPacked,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &outbox.ActorRef{UserID: actor, Role: string(enums.UserRoleFarmer)},
			Data:          payloads.OrderPackedEvent{OrderID: orderID, PackedBy: actor},
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	var rows []models.OutboxEvent
	if err := client.DB().Find(&rows).Error; err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(rows[0].Payload, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Version != outbox.CurrentVersion || envelope.EventID == "" {
		t.Fatalf("unexpected envelope %+v", envelope)
	}
	if envelope.Actor == nil || envelope.Actor.UserID != actor {
		t.Fatalf("expected actor to be recorded, got %+v", envelope.Actor)
	}
	if rows[0].AggregateID != orderID {
		t.Fatalf("unexpected aggregate id %s", rows[0].AggregateID)
	}
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	client := dbtest.Open(t, t.Name())
	svc := outbox.NewService(outbox.NewRepository(client.DB()), nil)

	boom := errors.New("boom")
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:     enums.EventUserDeleted,
			AggregateType: enums.AggregateUser,
			AggregateID:   uuid.New(),
			Data:          payloads.UserDeletedEvent{UserID: uuid.New()},
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var count int64
	client.DB().Model(&models.OutboxEvent{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no rows after rollback, got %d", count)
	}
}

func TestEmitRejectsUnknownEventType(t *testing.T) {
	client := dbtest.Open(t, t.Name())
	svc := outbox.NewService(outbox.NewRepository(client.DB()), nil)

	err := svc.Emit(context.Background(), client.DB(), outbox.DomainEvent{
		EventType:     "mystery",
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
	})
	if err == nil {
		t.Fatal("expected unknown event type to fail")
	}
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	client := dbtest.Open(t, t.Name())
	repo := outbox.NewRepository(client.DB())
	svc := outbox.NewService(repo, nil)
	tx := client.DB()

	for i := 0; i < 3; i++ {
		if err := svc.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Data:          payloads.OrderCreatedEvent{OrderID: uuid.New()},
		}); err != nil {
			t.Fatalf("emit: %v", err)
		}
	}

	rows, err := repo.FetchUnpublishedForPublish(tx, 10, 3)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	if err := repo.MarkPublishedTx(tx, rows[0].ID); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	if err := repo.MarkFailedTx(tx, rows[1].ID, errors.New("pubsub unavailable")); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if err := repo.MarkTerminalTx(tx, rows[2].ID, errors.New("bad payload"), 3); err != nil {
		t.Fatalf("mark terminal: %v", err)
	}

	remaining, err := repo.FetchUnpublishedForPublish(tx, 10, 3)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != rows[1].ID {
		t.Fatalf("expected only the retryable row, got %+v", remaining)
	}
	if remaining[0].AttemptCount != 1 || remaining[0].LastError == nil {
		t.Fatalf("expected attempt recorded, got %+v", remaining[0])
	}

	pending, err := repo.CountPending()
	if err != nil {
		t.Fatalf("count pending: %v", err)
	}
	if pending != 2 {
		t.Fatalf("expected 2 pending rows, got %d", pending)
	}
}

func TestDLQRepositoryTruncatesMessage(t *testing.T) {
	client := dbtest.Open(t, t.Name())
	dlq := outbox.NewDLQRepository(client.DB())

	long := make([]byte, 2048)
	for i := range long {
		long[i] = 'x'
	}
	msg := string(long)
	entry := models.OutboxDLQ{
		EventID:       uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonNonRetryable,
		ErrorMessage:  &msg,
	}
	if err := dlq.InsertTx(client.DB(), entry); err != nil {
		t.Fatalf("insert dlq: %v", err)
	}

	rows, err := dlq.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("list dlq: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one dlq row, got %d", len(rows))
	}
	if rows[0].ErrorMessage == nil || len(*rows[0].ErrorMessage) != 1024 {
		t.Fatalf("expected truncated message")
	}
}

func TestRetentionDeletesOnlyOldPublishedRows(t *testing.T) {
	client := dbtest.Open(t, t.Name())
	repo := outbox.NewRepository(client.DB())
	dlq := outbox.NewDLQRepository(client.DB())
	tx := client.DB()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	old := now.Add(-40 * 24 * time.Hour)
	recent := now.Add(-time.Hour)

	rows := []models.OutboxEvent{
		{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`), PublishedAt: &old},
		{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`), PublishedAt: &recent},
		{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: json.RawMessage(`{}`), CreatedAt: old},
	}
	for _, row := range rows {
		if err := repo.Insert(tx, row); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	for _, failedAt := range []time.Time{old, recent} {
		entry := models.OutboxDLQ{
			EventID:       uuid.New(),
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
			FailedAt:      failedAt,
		}
		if err := dlq.InsertTx(tx, entry); err != nil {
			t.Fatalf("insert dlq: %v", err)
		}
	}

	cutoff := now.Add(-30 * 24 * time.Hour)
	deleted, err := repo.DeletePublishedBefore(context.Background(), tx, cutoff)
	if err != nil {
		t.Fatalf("delete published: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected one published row deleted, got %d", deleted)
	}
	var remaining int64
	if err := tx.Model(&models.OutboxEvent{}).Count(&remaining).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if remaining != 2 {
		t.Fatalf("expected 2 rows left, got %d", remaining)
	}

	purged, err := dlq.DeleteFailedBefore(context.Background(), tx, cutoff)
	if err != nil {
		t.Fatalf("delete dlq: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected one dlq row purged, got %d", purged)
	}
}

func TestRetentionRequiresTransaction(t *testing.T) {
	repo := outbox.NewRepository(nil)
	if _, err := repo.DeletePublishedBefore(context.Background(), nil, time.Now()); err == nil {
		t.Fatal("expected error without transaction")
	}
}
