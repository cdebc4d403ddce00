package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/shipment-console/pkg/db/models"
	"github.com/angelmondragon/shipment-console/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.OutboxEvent{}, &models.OutboxDLQ{}))
	return conn
}

func TestEmitWritesEnvelope(t *testing.T) {
	conn := newTestDB(t)
	svc := NewService(NewRepository(conn), nil)
	aggregate := uuid.New()

	err := svc.Emit(context.Background(), conn, DomainEvent{
		EventType:     enums.EventShipmentConfirmed,
		AggregateType: enums.AggregatePurchaseOrder,
		AggregateID:   aggregate,
		Actor:         &ActorRef{UserID: "u-1", VendorID: "V1", Role: "vendor"},
		Data:          map[string]any{"order_seq": 7},
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, aggregate, rows[0].AggregateID)
	assert.NotEqual(t, uuid.Nil, rows[0].ID)

	envelope, err := DecodeEnvelope(rows[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, EnvelopeVersion, envelope.Version)
	assert.Equal(t, rows[0].ID.String(), envelope.EventID)
	assert.Equal(t, "V1", envelope.Actor.VendorID)
	var data map[string]int
	require.NoError(t, envelope.DecodeData(&data))
	assert.Equal(t, 7, data["order_seq"])

	require.Error(t, svc.Emit(context.Background(), nil, DomainEvent{}))
}

func TestEmitRejectsUnknownEvents(t *testing.T) {
	conn := newTestDB(t)
	svc := NewService(NewRepository(conn), nil)

	cases := map[string]DomainEvent{
		"event type":   {EventType: "shipment_lost", AggregateType: enums.AggregatePurchaseOrder, AggregateID: uuid.New()},
		"aggregate":    {EventType: enums.EventShipmentConfirmed, AggregateType: "store", AggregateID: uuid.New()},
		"aggregate id": {EventType: enums.EventShipmentConfirmed, AggregateType: enums.AggregatePurchaseOrder},
	}
	for name, event := range cases {
		assert.Error(t, svc.Emit(context.Background(), conn, event), name)
	}
	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDecodeEnvelopeGuards(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`{"version":2,"eventId":"e","data":{}}`))
	assert.ErrorContains(t, err, "newer")

	env, err := DecodeEnvelope([]byte(`{"version":1,"eventId":"e","data":null}`))
	require.NoError(t, err)
	assert.ErrorIs(t, env.DecodeData(&map[string]any{}), ErrEmptyData)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Emit(context.Background(), conn, DomainEvent{
			EventType:     enums.EventShipmentCancelled,
			AggregateType: enums.AggregatePurchaseOrder,
			AggregateID:   uuid.New(),
			Data:          map[string]int{"i": i},
		}))
	}

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.NoError(t, repo.MarkPublishedTx(conn, rows[0].ID))
	require.NoError(t, repo.MarkFailedTx(conn, rows[1].ID, errors.New("unavailable")))
	require.NoError(t, repo.MarkTerminalTx(conn, rows[2].ID, errors.New("bad payload"), 3))

	remaining, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, rows[1].ID, remaining[0].ID)
	assert.Equal(t, 1, remaining[0].AttemptCount)
	require.NotNil(t, remaining[0].LastError)
	assert.Equal(t, "unavailable", *remaining[0].LastError)
}

func TestDLQRepositoryTruncatesAndLists(t *testing.T) {
	conn := newTestDB(t)
	dlq := NewDLQRepository(conn)
	long := strings.Repeat("x", maxDeadLetterMessage+10)

	require.NoError(t, dlq.InsertTx(conn, models.OutboxDLQ{
		EventID:       uuid.New(),
		EventType:     enums.EventShipmentConfirmed,
		AggregateType: enums.AggregatePurchaseOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &long,
	}))

	rows, err := dlq.List(context.Background(), 0, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].ErrorMessage)
	assert.Len(t, *rows[0].ErrorMessage, maxDeadLetterMessage)

	rows, err = dlq.List(context.Background(), 10, enums.OutboxDLQReasonUnresolvable)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRepositoryDeletePublishedBefore(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc := NewService(repo, nil)
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Emit(context.Background(), conn, DomainEvent{
			EventType:     enums.EventShipmentConfirmed,
			AggregateType: enums.AggregatePurchaseOrder,
			AggregateID:   uuid.New(),
			Data:          map[string]int{"i": i},
		}))
	}
	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.NoError(t, repo.MarkPublishedTx(conn, rows[0].ID))
	require.NoError(t, repo.MarkTerminalTx(conn, rows[2].ID, errors.New("bad payload"), 5))

	deleted, err := repo.DeletePublishedBefore(context.Background(), conn, time.Now().Add(-48*time.Hour).UTC(), 5)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	deleted, err = repo.DeletePublishedBefore(context.Background(), conn, time.Now().Add(48*time.Hour).UTC(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var left []models.OutboxEvent
	require.NoError(t, conn.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, rows[1].ID, left[0].ID)
}

func TestDLQRepositoryDeleteFailedBefore(t *testing.T) {
	conn := newTestDB(t)
	dlq := NewDLQRepository(conn)
	require.NoError(t, dlq.InsertTx(conn, models.OutboxDLQ{
		EventID:       uuid.New(),
		EventType:     enums.EventShipmentCancelled,
		AggregateType: enums.AggregatePurchaseOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
	}))

	deleted, err := dlq.DeleteFailedBefore(context.Background(), conn, time.Now().Add(-48*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, deleted)

	deleted, err = dlq.DeleteFailedBefore(context.Background(), conn, time.Now().Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = dlq.DeleteFailedBefore(context.Background(), nil, time.Now())
	require.Error(t, err)
}

func TestDeadLetterCopiesRowAndClipsOnRuneBoundary(t *testing.T) {
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventShipmentCancelled,
		AggregateType: enums.AggregatePurchaseOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1}`),
		AttemptCount:  4,
	}
	cause := errors.New(strings.Repeat("a", maxDeadLetterMessage-1) + "出荷")
	at := time.Date(2025, 1, 5, 9, 0, 0, 0, time.FixedZone("JST", 9*3600))

	entry := DeadLetter(event, enums.OutboxDLQReasonNonRetryable, cause, at)
	assert.Equal(t, event.ID, entry.EventID)
	assert.Equal(t, 4, entry.AttemptCount)
	assert.Equal(t, time.UTC, entry.FailedAt.Location())
	require.NotNil(t, entry.ErrorMessage)
	assert.Len(t, *entry.ErrorMessage, maxDeadLetterMessage-1)
	assert.True(t, utf8.ValidString(*entry.ErrorMessage))

	assert.Nil(t, DeadLetter(event, enums.OutboxDLQReasonMaxAttempts, nil, at).ErrorMessage)
}
