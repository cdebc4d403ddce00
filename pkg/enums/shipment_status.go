package enums

// ShipmentStatus filters order summaries by whether the server recorded an outbound date.
type ShipmentStatus string

const (
	ShipmentStatusAll     ShipmentStatus = ""
	ShipmentStatusPending ShipmentStatus = "pending"
	ShipmentStatusShipped ShipmentStatus = "shipped"
)

var validShipmentStatuses = []ShipmentStatus{
	ShipmentStatusAll,
	ShipmentStatusPending,
	ShipmentStatusShipped,
}

// IsValid reports whether the value is a known ShipmentStatus.
func (s ShipmentStatus) IsValid() bool {
	return member(validShipmentStatuses, s)
}

// ParseShipmentStatus converts raw input into a ShipmentStatus.
func ParseShipmentStatus(value string) (ShipmentStatus, error) {
	return parse(validShipmentStatuses, "shipment status", value)
}
