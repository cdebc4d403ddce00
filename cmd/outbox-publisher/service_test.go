package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shipment-console/pkg/config"
	"github.com/angelmondragon/shipment-console/pkg/db/models"
	"github.com/angelmondragon/shipment-console/pkg/enums"
	"github.com/angelmondragon/shipment-console/pkg/logger"
	"github.com/angelmondragon/shipment-console/pkg/outbox"
	"github.com/angelmondragon/shipment-console/pkg/outbox/payloads"
	"github.com/angelmondragon/shipment-console/pkg/outbox/registry"
)

func TestServiceProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{
		events: []models.OutboxEvent{
			{
				ID:            uuid.New(),
				EventType:     enums.EventShipmentConfirmed,
				AggregateType: enums.AggregatePurchaseOrder,
				AggregateID:   uuid.New(),
				Payload:       mustEnvelopePayload(t, "event-one"),
			},
			{
				ID:            uuid.New(),
				EventType:     enums.EventShipmentConfirmed,
				AggregateType: enums.AggregatePurchaseOrder,
				AggregateID:   uuid.New(),
				Payload:       mustEnvelopePayload(t, "event-two"),
			},
		},
	}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("transient")},
			fakePublishResult{},
		},
	}
	resolved := &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			Topic:         "shipments-topic",
			AggregateType: enums.AggregatePurchaseOrder,
		},
		Envelope: outbox.PayloadEnvelope{
			EventID:    uuid.NewString(),
			OccurredAt: time.Now(),
		},
		Payload: &payloads.ShipmentConfirmedEvent{VendorID: "V1", Reference: "20250105-20250102-7"},
	}
	eventRegistry := &fakeRegistry{resolved: resolved}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, pub, eventRegistry, dlqRepo, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(repo.failed); got != 1 {
		t.Fatalf("unexpected number of failed rows: %d", got)
	}
	if got := len(repo.published); got != 1 {
		t.Fatalf("unexpected number of published rows: %d", got)
	}
	if repo.failed[0] != repo.events[0].ID {
		t.Fatalf("failed row recorded wrong ID")
	}
	if repo.published[0] != repo.events[1].ID {
		t.Fatalf("published row recorded wrong ID")
	}
}

type fakeRecorder struct {
	outcomes []string
}

func (f *fakeRecorder) RecordPublish(outcome string) {
	f.outcomes = append(f.outcomes, outcome)
}

func TestServiceRecordsDispatchOutcomes(t *testing.T) {
	repo := &fakeRepo{
		events: []models.OutboxEvent{
			{ID: uuid.New(), EventType: enums.EventShipmentConfirmed, AggregateType: enums.AggregatePurchaseOrder, AggregateID: uuid.New(), Payload: mustEnvelopePayload(t, "a")},
			{ID: uuid.New(), EventType: enums.EventShipmentConfirmed, AggregateType: enums.AggregatePurchaseOrder, AggregateID: uuid.New(), Payload: mustEnvelopePayload(t, "b")},
		},
	}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{},
			fakePublishResult{err: errors.New("transient")},
		},
	}
	resolved := &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{Topic: "shipments-topic", AggregateType: enums.AggregatePurchaseOrder},
		Envelope:   outbox.PayloadEnvelope{EventID: uuid.NewString(), OccurredAt: time.Now()},
		Payload:    &payloads.ShipmentConfirmedEvent{VendorID: "V1", Reference: "20250105-20250102-7"},
	}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: resolved}, &fakeDLQRepo{}, nil)
	recorder := &fakeRecorder{}
	service.metrics = recorder

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	want := []string{string(outcomePublished), string(outcomeRetry)}
	if len(recorder.outcomes) != len(want) || recorder.outcomes[0] != want[0] || recorder.outcomes[1] != want[1] {
		t.Fatalf("unexpected outcomes %v, want %v", recorder.outcomes, want)
	}
}

func TestPublishResolvedSetsOrderingKeyAndAttributes(t *testing.T) {
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventShipmentCancelled,
		AggregateType: enums.AggregatePurchaseOrder,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelopePayload(t, "cancelled"),
	}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{}}}
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	resolved := &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			Topic:         "shipments-topic",
			AggregateType: enums.AggregatePurchaseOrder,
		},
		Envelope: outbox.PayloadEnvelope{EventID: event.ID.String(), OccurredAt: time.Now()},
		Payload:  &payloads.ShipmentCancelledEvent{VendorID: "V2", Reference: "20250105-20250102-7"},
	}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: resolved}, &fakeDLQRepo{}, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed || len(repo.published) != 1 {
		t.Fatalf("expected one published row, got %d", len(repo.published))
	}
	if len(pub.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(pub.messages))
	}
	msg := pub.messages[0]
	if msg.OrderingKey != event.AggregateID.String() {
		t.Fatalf("unexpected ordering key %q", msg.OrderingKey)
	}
	if msg.Attributes["vendor_id"] != "V2" || msg.Attributes["reference"] != "20250105-20250102-7" {
		t.Fatalf("payload attributes missing: %v", msg.Attributes)
	}
	if _, ok := msg.Attributes["outbound_date"]; ok {
		t.Fatalf("empty attributes should be skipped: %v", msg.Attributes)
	}
	if msg.Attributes["event_type"] != string(enums.EventShipmentCancelled) {
		t.Fatalf("unexpected event_type attribute %q", msg.Attributes["event_type"])
	}
}

func TestServiceSkipsPublishForDeliveredEvents(t *testing.T) {
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventShipmentConfirmed,
		AggregateType: enums.AggregatePurchaseOrder,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelopePayload(t, "delivered"),
	}
	fresh := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventShipmentConfirmed,
		AggregateType: enums.AggregatePurchaseOrder,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelopePayload(t, "fresh"),
	}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{}}}
	repo := &fakeRepo{events: []models.OutboxEvent{event, fresh}}
	resolved := &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{Topic: "shipments-topic"},
		Envelope:   outbox.PayloadEnvelope{OccurredAt: time.Now()},
		Payload:    &payloads.ShipmentConfirmedEvent{},
	}
	ledger := &fakeLedger{delivered: map[uuid.UUID]bool{event.ID: true}}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: resolved}, &fakeDLQRepo{}, nil)
	service.ledger = ledger

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("expected only the fresh event to be sent, got %d", len(pub.messages))
	}
	if len(repo.published) != 2 {
		t.Fatalf("expected both rows marked published, got %d", len(repo.published))
	}
	if !ledger.delivered[fresh.ID] {
		t.Fatalf("fresh event should be recorded in the ledger")
	}
}

func TestServiceProcessBatchWritesDLQOnNonRetryable(t *testing.T) {
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventShipmentConfirmed,
		AggregateType: enums.AggregatePurchaseOrder,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelopePayload(t, "nonretryable"),
	}
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	registry := &fakeRegistry{err: registry.NewNonRetryableError(errors.New("invalid payload"))}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, &fakePublisher{}, registry, dlqRepo, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(dlqRepo.entries); got != 1 {
		t.Fatalf("expected dlq entry, got %d", got)
	}
	entry := dlqRepo.entries[0]
	if entry.EventID != event.ID {
		t.Fatalf("dlq event_id mismatch: %s", entry.EventID)
	}
	if entry.Payload == nil || !bytes.Equal(entry.Payload, event.Payload) {
		t.Fatalf("dlq payload mismatch")
	}
	if entry.ErrorReason != enums.OutboxDLQReasonUnresolvable {
		t.Fatalf("unexpected error reason: %s", entry.ErrorReason)
	}
}

func TestServiceProcessBatchWritesDLQOnMaxAttempts(t *testing.T) {
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventShipmentConfirmed,
		AggregateType: enums.AggregatePurchaseOrder,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelopePayload(t, "max-attempts"),
		AttemptCount:  1,
	}
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("transient")},
		},
	}
	resolved := &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			Topic:         "shipments-topic",
			AggregateType: enums.AggregatePurchaseOrder,
		},
		Envelope: outbox.PayloadEnvelope{
			EventID:    event.ID.String(),
			OccurredAt: time.Now(),
		},
		Payload: &payloads.ShipmentConfirmedEvent{VendorID: "V1", Reference: "20250105-20250102-7"},
	}
	registry := &fakeRegistry{resolved: resolved}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, pub, registry, dlqRepo, &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(dlqRepo.entries); got != 1 {
		t.Fatalf("expected dlq entry, got %d", got)
	}
	entry := dlqRepo.entries[0]
	if entry.EventID != event.ID {
		t.Fatalf("dlq event_id mismatch: %s", entry.EventID)
	}
	if entry.ErrorReason != enums.OutboxDLQReasonMaxAttempts {
		t.Fatalf("unexpected error reason: %s", entry.ErrorReason)
	}
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, registry registryResolver, dlq dlqRepository, outboxCfgOverride *config.OutboxConfig) *Service {
	outboxCfg := config.OutboxConfig{
		BatchSize:      2,
		PollIntervalMS: 100,
		MaxAttempts:    5,
	}
	if outboxCfgOverride != nil {
		outboxCfg = *outboxCfgOverride
	}
	cfg := &config.Config{
		Outbox: outboxCfg,
	}
	logg := logger.New(logger.Options{
		ServiceName: "outbox-publisher-test",
		Output:      io.Discard,
	})
	service, err := NewService(ServiceParams{
		Config:           cfg,
		Logger:           logg,
		DB:               &fakeDB{},
		PubSub:           &fakePubSubClient{},
		Repository:       repo,
		Registry:         registry,
		PublisherFactory: func(_ string) publisher { return pub },
		DLQRepository:    dlq,
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func mustEnvelopePayload(tb testing.TB, eventID string) json.RawMessage {
	tb.Helper()
	env := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return payload
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
}

func (f *fakeRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error {
	return nil
}

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type fakePubSubClient struct{}

func (f *fakePubSubClient) Ping(context.Context) error {
	return nil
}

func (f *fakePubSubClient) Publisher(name string) *gcppubsub.Publisher {
	return nil
}

type fakePublisher struct {
	results  []publishResult
	messages []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	if len(f.results) == 0 {
		return nil
	}
	result := f.results[0]
	f.results = f.results[1:]
	return result
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "", f.err
}

type fakeRegistry struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.resolved == nil {
		return nil, f.err
	}
	resolved := *f.resolved
	resolved.Descriptor.AggregateType = event.AggregateType
	resolved.Envelope.EventID = event.ID.String()
	resolved.Envelope.OccurredAt = time.Now()
	return &resolved, f.err
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQRepo) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeLedger struct {
	delivered map[uuid.UUID]bool
}

func (f *fakeLedger) Delivered(_ context.Context, id uuid.UUID) (bool, error) {
	return f.delivered[id], nil
}

func (f *fakeLedger) MarkDelivered(_ context.Context, id uuid.UUID) (bool, error) {
	already := f.delivered[id]
	f.delivered[id] = true
	return !already, nil
}
