package router

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/shipment-console/internal/warehouse/types"
	"github.com/angelmondragon/shipment-console/internal/warehouse/writer"
	"github.com/angelmondragon/shipment-console/pkg/logger"
	"github.com/angelmondragon/shipment-console/pkg/outbox/payloads"
)

type shipmentCancelledHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newShipmentCancelledHandler(w Writer, logg *logger.Logger) Handler {
	return &shipmentCancelledHandler{writer: w, logg: logg}
}

func (h *shipmentCancelledHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.ShipmentCancelledEvent)
	if !ok {
		return fmt.Errorf("invalid payload for shipment_cancelled")
	}
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type": envelope.EventType,
		"reference":  event.Reference,
		"vendor_id":  event.VendorID,
	})

	raw, err := writer.EncodeJSON(envelope.Payload)
	if err != nil {
		h.logg.Error(logCtx, "failed to encode cancel payload", err)
		return err
	}
	// A cancel row carries the withdrawn line count and no quantity; lots stay on the confirm row.
	row := types.ShipmentFactRow{
		EventID:      envelope.EventID,
		EventType:    string(envelope.EventType),
		OccurredAt:   occurredAt(envelope, event.CancelledAt),
		OrderDate:    event.OrderDate,
		OrderSeq:     int64(event.OrderSeq),
		VendorID:     event.VendorID,
		StoreID:      event.StoreID,
		Reference:    event.Reference,
		OutboundDate: event.OutboundDate,
		LineCount:    int64(len(event.LineNos)),
		ActorUserID:  stringPtr(envelope.ActorUserID),
		Payload:      raw,
	}
	if err := h.writer.InsertFact(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert shipment fact", err)
		return err
	}

	h.logg.Info(logCtx, "shipment_cancelled fact inserted")
	return nil
}

func occurredAt(envelope types.Envelope, fallback time.Time) time.Time {
	if !envelope.OccurredAt.IsZero() {
		return envelope.OccurredAt.UTC()
	}
	return fallback.UTC()
}
