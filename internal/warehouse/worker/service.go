package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/shipment-console/internal/warehouse/router"
	"github.com/angelmondragon/shipment-console/internal/warehouse/types"
	"github.com/angelmondragon/shipment-console/pkg/enums"
	"github.com/angelmondragon/shipment-console/pkg/logger"
	"github.com/angelmondragon/shipment-console/pkg/outbox"
)

// ConsumerName keys the delivery ledger for this worker.
const ConsumerName = "warehouse"

// Handler processes one decoded envelope.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope) error
}

// HandlerFunc adapts functions to the Handler interface.
type HandlerFunc func(ctx context.Context, envelope types.Envelope) error

// Handle calls the underlying function.
func (fn HandlerFunc) Handle(ctx context.Context, envelope types.Envelope) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, envelope)
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

type deliveryLedger interface {
	MarkDelivered(ctx context.Context, eventID uuid.UUID) (bool, error)
	Forget(ctx context.Context, eventID uuid.UUID) error
}

// Service consumes shipment events from Pub/Sub and lands each one in the
// warehouse at most once per ledger TTL.
type Service struct {
	subscription receiver
	handler      Handler
	ledger       deliveryLedger
	logg         *logger.Logger
}

// NewService creates the warehouse worker.
func NewService(subscription receiver, handler Handler, ledger deliveryLedger, logg *logger.Logger) (*Service, error) {
	if subscription == nil {
		return nil, errors.New("warehouse subscription is required")
	}
	if handler == nil {
		return nil, errors.New("warehouse handler is required")
	}
	if ledger == nil {
		return nil, errors.New("delivery ledger is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		subscription: subscription,
		handler:      handler,
		ledger:       ledger,
		logg:         logg,
	}, nil
}

type processResult struct {
	nack bool
}

// Run consumes messages until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	return s.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if s.process(innerCtx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	fields := map[string]any{"message_id": msg.ID}
	logCtx := s.logg.WithFields(ctx, fields)

	envelope, err := buildEnvelope(msg)
	if err != nil {
		fields["error"] = err.Error()
		s.logg.Warn(s.logg.WithFields(ctx, fields), "invalid shipment envelope")
		return processResult{}
	}
	fields["event_id"] = envelope.EventID
	fields["event_type"] = envelope.EventType
	fields["aggregate_id"] = envelope.AggregateID
	fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	logCtx = s.logg.WithFields(ctx, fields)

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		s.logg.Warn(logCtx, "invalid event id")
		return processResult{}
	}

	marked, err := s.ledger.MarkDelivered(logCtx, eventID)
	if err != nil {
		s.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if !marked {
		s.logg.Info(logCtx, "event already processed")
		return processResult{}
	}

	if err := s.handler.Handle(logCtx, *envelope); err != nil {
		if errors.Is(err, router.ErrUnsupportedEventType) {
			s.logg.Warn(logCtx, "unsupported shipment event skipped")
			return processResult{}
		}
		s.logg.Error(logCtx, "handler error", err)
		if forgetErr := s.ledger.Forget(logCtx, eventID); forgetErr != nil {
			s.logg.Error(logCtx, "failed to release idempotency mark", forgetErr)
		}
		return processResult{nack: true}
	}

	s.logg.Info(logCtx, "shipment event warehoused")
	return processResult{}
}

func buildEnvelope(msg *gcppubsub.Message) (*types.Envelope, error) {
	var stored outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &stored); err != nil {
		return nil, fmt.Errorf("decode payload envelope: %w", err)
	}

	eventType, err := enums.ParseOutboxEventType(attribute(msg, "event_type"))
	if err != nil {
		return nil, fmt.Errorf("event_type: %w", err)
	}
	aggregateType, err := enums.ParseOutboxAggregateType(attribute(msg, "aggregate_type"))
	if err != nil {
		return nil, fmt.Errorf("aggregate_type: %w", err)
	}
	aggregateID := attribute(msg, "aggregate_id")
	if aggregateID == "" {
		return nil, errors.New("aggregate_id missing")
	}

	occurredAt := stored.OccurredAt
	if occurredAt.IsZero() {
		if created := attribute(msg, "created_at"); created != "" {
			if parsed, err := time.Parse(time.RFC3339Nano, created); err == nil {
				occurredAt = parsed
			}
		}
	}

	eventID := strings.TrimSpace(stored.EventID)
	if eventID == "" {
		eventID = attribute(msg, "event_id")
	}
	if eventID == "" {
		return nil, errors.New("event_id missing")
	}

	envelope := &types.Envelope{
		EventID:       eventID,
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		OccurredAt:    occurredAt.UTC(),
		Payload:       stored.Data,
	}
	if stored.Actor != nil {
		envelope.ActorUserID = stored.Actor.UserID
	}
	return envelope, nil
}

func attribute(msg *gcppubsub.Message, key string) string {
	return strings.TrimSpace(msg.Attributes[key])
}
