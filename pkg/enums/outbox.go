package enums

// OutboxAggregateType is the aggregate_type column of outbox_events. Every
// shipment event is keyed by its purchase order.
type OutboxAggregateType string

const (
	AggregatePurchaseOrder OutboxAggregateType = "purchase_order"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregatePurchaseOrder,
}

func (a OutboxAggregateType) IsValid() bool {
	return member(validAggregateTypes, a)
}

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse(validAggregateTypes, "aggregate type", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventShipmentConfirmed OutboxEventType = "shipment_confirmed"
	EventShipmentCancelled OutboxEventType = "shipment_cancelled"
)

var validOutboxEventTypes = []OutboxEventType{
	EventShipmentConfirmed,
	EventShipmentCancelled,
}

func (e OutboxEventType) IsValid() bool {
	return member(validOutboxEventTypes, e)
}

// ParseOutboxEventType is exact; event types are written by code, never typed.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse(validOutboxEventTypes, "event type", value)
}
