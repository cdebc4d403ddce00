package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/shipment-console/internal/warehouse/types"
	"github.com/angelmondragon/shipment-console/pkg/enums"
	"github.com/angelmondragon/shipment-console/pkg/logger"
	"github.com/angelmondragon/shipment-console/pkg/outbox/payloads"
)

var ErrUnsupportedEventType = errors.New("unsupported shipment event type")

// Writer delivers BigQuery rows produced by the handlers.
type Writer interface {
	InsertFact(ctx context.Context, row types.ShipmentFactRow) error
	InsertLots(ctx context.Context, rows []types.ShipmentLotRow) error
}

// Handler receives an envelope plus its decoded payload.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope, payload any) error
}

type handlerEntry struct {
	factory func() any
	handler Handler
}

// Router dispatches envelopes to the handler registered for their event type.
type Router struct {
	handlers map[enums.OutboxEventType]handlerEntry
	logg     *logger.Logger
}

// NewRouter wires the default handlers and allows overrides for specific events.
func NewRouter(writer Writer, logg *logger.Logger, overrides map[enums.OutboxEventType]Handler) (*Router, error) {
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	entries := map[enums.OutboxEventType]handlerEntry{
		enums.EventShipmentConfirmed: {
			factory: func() any { return &payloads.ShipmentConfirmedEvent{} },
			handler: newShipmentConfirmedHandler(writer, logg),
		},
		enums.EventShipmentCancelled: {
			factory: func() any { return &payloads.ShipmentCancelledEvent{} },
			handler: newShipmentCancelledHandler(writer, logg),
		},
	}

	for event, custom := range overrides {
		entry, ok := entries[event]
		if !ok || custom == nil {
			continue
		}
		entry.handler = custom
		entries[event] = entry
	}

	return &Router{handlers: entries, logg: logg}, nil
}

// Handle decodes the payload and hands it to the registered handler.
func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	entry, ok := r.handlers[envelope.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	if len(envelope.Payload) == 0 {
		return fmt.Errorf("empty payload for %s", envelope.EventType)
	}
	payload := entry.factory()
	if err := json.Unmarshal(envelope.Payload, payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", envelope.EventType, err)
	}
	return entry.handler.Handle(ctx, envelope, payload)
}
