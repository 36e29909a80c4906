package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brickyield/brickyield-backend/pkg/db/models"
	"github.com/brickyield/brickyield-backend/pkg/enums"
	"github.com/brickyield/brickyield-backend/pkg/outbox/payloads"
	"github.com/brickyield/brickyield-backend/pkg/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:outbox_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.OutboxEvent{}, &models.OutboxDLQ{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func TestEmitStoresEnvelope(t *testing.T) {
	conn := newTestDB(t)
	svc := NewService(NewRepository(conn), nil)

	aggregateID := uuid.New()
	holder := types.Address("0xaaaa000000000000000000000000000000000001")

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventClaimed,
			AggregateType: enums.AggregateRound,
			AggregateID:   aggregateID,
			Actor:         &ActorRef{Caller: holder, Role: "holder"},
			Data: payloads.ClaimedEvent{
				PropertyExternalID: 42,
				Sequence:           1,
				Holder:             holder,
				AmountUnits:        600,
			},
			Version: 1,
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	var row models.OutboxEvent
	if err := conn.First(&row).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	if row.EventType != enums.EventClaimed || row.AggregateID != aggregateID {
		t.Fatalf("unexpected row %+v", row)
	}
	if row.PublishedAt != nil {
		t.Fatalf("new event must be unpublished")
	}

	var envelope PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Version != 1 || envelope.EventID == "" {
		t.Fatalf("unexpected envelope %+v", envelope)
	}
	if envelope.Actor == nil || envelope.Actor.Caller != holder {
		t.Fatalf("actor not preserved: %+v", envelope.Actor)
	}

	var payload payloads.ClaimedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.AmountUnits != 600 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestEmitRequiresTransaction(t *testing.T) {
	conn := newTestDB(t)
	svc := NewService(NewRepository(conn), nil)

	err := svc.Emit(context.Background(), nil, DomainEvent{
		EventType:     enums.EventDeposited,
		AggregateType: enums.AggregateRound,
		AggregateID:   uuid.New(),
	})
	if err == nil {
		t.Fatalf("expected error without transaction")
	}
}

func TestEmitIfNotExistsSkipsDuplicate(t *testing.T) {
	conn := newTestDB(t)
	svc := NewService(NewRepository(conn), nil)

	aggregateID := uuid.New()
	event := DomainEvent{
		EventType:     enums.EventRoundFinalized,
		AggregateType: enums.AggregateRound,
		AggregateID:   aggregateID,
		Data:          payloads.RoundFinalizedEvent{PropertyExternalID: 42, Sequence: 1},
		Version:       1,
	}

	for i := 0; i < 2; i++ {
		err := conn.Transaction(func(tx *gorm.DB) error {
			return svc.EmitIfNotExists(context.Background(), tx, event)
		})
		if err != nil {
			t.Fatalf("emit %d: %v", i, err)
		}
	}

	var count int64
	if err := conn.Model(&models.OutboxEvent{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 event, got %d", count)
	}
}

func TestFetchUnpublishedForPublishSkipsExhaustedRows(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)

	fresh := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventDeposited,
		AggregateType: enums.AggregateRound,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
	}
	exhausted := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventDeposited,
		AggregateType: enums.AggregateRound,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		AttemptCount:  10,
	}
	if err := conn.Create(&fresh).Error; err != nil {
		t.Fatalf("seed fresh: %v", err)
	}
	if err := conn.Create(&exhausted).Error; err != nil {
		t.Fatalf("seed exhausted: %v", err)
	}

	err := conn.Transaction(func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 10)
		if err != nil {
			return err
		}
		if len(rows) != 1 || rows[0].ID != fresh.ID {
			t.Fatalf("unexpected batch %+v", rows)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
}

func TestMarkFailedTxIncrementsAttempts(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)

	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventClaimed,
		AggregateType: enums.AggregateRound,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
	}
	if err := conn.Create(&event).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := conn.Transaction(func(tx *gorm.DB) error {
		return repo.MarkFailedTx(tx, event.ID, errors.New("publish timeout"))
	})
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	var row models.OutboxEvent
	if err := conn.First(&row, "id = ?", event.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if row.AttemptCount != 1 {
		t.Fatalf("expected attempt_count 1, got %d", row.AttemptCount)
	}
	if row.LastError == nil || *row.LastError != "publish timeout" {
		t.Fatalf("last_error not recorded: %+v", row.LastError)
	}
	if row.PublishedAt != nil {
		t.Fatalf("failed row must stay unpublished")
	}
}

func TestDLQInsertTruncatesLongErrors(t *testing.T) {
	conn := newTestDB(t)
	repo := NewDLQRepository(conn)

	long := make([]byte, maxDLQErrorLen+100)
	for i := range long {
		long[i] = 'x'
	}
	msg := string(long)

	entry := models.OutboxDLQ{
		EventID:       uuid.New(),
		EventType:     enums.EventClaimed,
		AggregateType: enums.AggregateRound,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.DLQReasonMaxAttempts,
		ErrorMessage:  &msg,
		AttemptCount:  10,
	}
	err := conn.Transaction(func(tx *gorm.DB) error {
		return repo.InsertTx(tx, entry)
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	stored, err := repo.FindByEventID(context.Background(), entry.EventID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored == nil {
		t.Fatalf("dlq row not found")
	}
	if stored.ErrorMessage == nil || len(*stored.ErrorMessage) != maxDLQErrorLen {
		t.Fatalf("error message not truncated")
	}
}
