package router

import (
	"context"
	"fmt"

	"github.com/angelmondragon/shipment-console/internal/warehouse/types"
	"github.com/angelmondragon/shipment-console/internal/warehouse/writer"
	"github.com/angelmondragon/shipment-console/pkg/logger"
	"github.com/angelmondragon/shipment-console/pkg/outbox/payloads"
)

type shipmentConfirmedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newShipmentConfirmedHandler(w Writer, logg *logger.Logger) Handler {
	return &shipmentConfirmedHandler{writer: w, logg: logg}
}

func (h *shipmentConfirmedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.ShipmentConfirmedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for shipment_confirmed")
	}
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type": envelope.EventType,
		"reference":  event.Reference,
		"vendor_id":  event.VendorID,
	})

	fact, err := buildConfirmedFact(envelope, event)
	if err != nil {
		h.logg.Error(logCtx, "failed to build shipment fact", err)
		return err
	}
	if err := h.writer.InsertFact(logCtx, fact); err != nil {
		h.logg.Error(logCtx, "failed to insert shipment fact", err)
		return err
	}
	if err := h.writer.InsertLots(logCtx, buildLotRows(envelope, event)); err != nil {
		h.logg.Error(logCtx, "failed to insert shipment lots", err)
		return err
	}

	h.logg.Info(logCtx, "shipment_confirmed facts inserted")
	return nil
}

func buildConfirmedFact(envelope types.Envelope, event *payloads.ShipmentConfirmedEvent) (types.ShipmentFactRow, error) {
	raw, err := writer.EncodeJSON(envelope.Payload)
	if err != nil {
		return types.ShipmentFactRow{}, err
	}
	var total int64
	for _, line := range event.Lines {
		total += int64(line.Quantity)
	}
	return types.ShipmentFactRow{
		EventID:          envelope.EventID,
		EventType:        string(envelope.EventType),
		OccurredAt:       occurredAt(envelope, event.ConfirmedAt),
		OrderDate:        event.OrderDate,
		OrderSeq:         int64(event.OrderSeq),
		VendorID:         event.VendorID,
		StoreID:          event.StoreID,
		Reference:        event.Reference,
		OutboundDate:     event.OutboundDate,
		EstimatedArrival: stringPtr(event.EstimatedArrival),
		ShipMethod:       stringPtr(event.ShipMethod),
		LogisticsCompany: stringPtr(event.LogisticsCompany),
		TransportNo:      stringPtr(event.TransportNo),
		LineCount:        int64(len(event.Lines)),
		TotalQuantity:    int64Ptr(total),
		ActorUserID:      stringPtr(envelope.ActorUserID),
		Payload:          raw,
	}, nil
}

func buildLotRows(envelope types.Envelope, event *payloads.ShipmentConfirmedEvent) []types.ShipmentLotRow {
	at := occurredAt(envelope, event.ConfirmedAt)
	rows := []types.ShipmentLotRow{}
	for _, line := range event.Lines {
		for _, lot := range line.Lots {
			rows = append(rows, types.ShipmentLotRow{
				EventID:    envelope.EventID,
				OccurredAt: at,
				Reference:  event.Reference,
				VendorID:   event.VendorID,
				LineNo:     int64(line.LineNo),
				ExpiryDate: lot.ExpiryDate,
				Quantity:   int64(lot.Quantity),
				LotNumber:  stringPtr(lot.LotNumber),
			})
		}
	}
	return rows
}
