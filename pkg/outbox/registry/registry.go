package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/angelmondragon/shipment-console/pkg/config"
	"github.com/angelmondragon/shipment-console/pkg/db/models"
	"github.com/angelmondragon/shipment-console/pkg/enums"
	"github.com/angelmondragon/shipment-console/pkg/outbox"
	"github.com/angelmondragon/shipment-console/pkg/outbox/payloads"
)

// EventDescriptor binds an event type to its aggregate, topic and payload shape.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is an outbox row decoded and ready to publish.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks a row that can never be published as stored.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

// IsNonRetryable reports whether err carries a NonRetryableError.
func IsNonRetryable(err error) bool {
	var target NonRetryableError
	return errors.As(err, &target)
}

// EventRegistry maps shipment event types to their descriptors.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

func shipmentDescriptors(topic string) []EventDescriptor {
	return []EventDescriptor{
		{
			EventType:      enums.EventShipmentConfirmed,
			AggregateType:  enums.AggregatePurchaseOrder,
			Topic:          topic,
			PayloadFactory: func() any { return &payloads.ShipmentConfirmedEvent{} },
		},
		{
			EventType:      enums.EventShipmentCancelled,
			AggregateType:  enums.AggregatePurchaseOrder,
			Topic:          topic,
			PayloadFactory: func() any { return &payloads.ShipmentCancelledEvent{} },
		},
	}
}

// NewEventRegistry routes every shipment event to the configured topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.ShipmentsTopic == "" {
		return nil, fmt.Errorf("shipments topic is required")
	}
	reg := &EventRegistry{entries: map[enums.OutboxEventType]EventDescriptor{}}
	for _, desc := range shipmentDescriptors(cfg.ShipmentsTopic) {
		reg.entries[desc.EventType] = desc
	}
	return reg, nil
}

// Topics lists the distinct topics in sorted order.
func (r *EventRegistry) Topics() []string {
	seen := map[string]bool{}
	topics := make([]string, 0, 1)
	for _, desc := range r.entries {
		if !seen[desc.Topic] {
			seen[desc.Topic] = true
			topics = append(topics, desc.Topic)
		}
	}
	sort.Strings(topics)
	return topics
}

// Resolve checks the row against its descriptor and decodes the typed payload.
// Every failure is non-retryable: the stored row will not change.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	case desc.AggregateType != event.AggregateType:
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	case event.AggregateID == uuid.Nil:
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	payload := desc.PayloadFactory()
	if err := envelope.DecodeData(payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s: %w", event.EventType, err))
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
