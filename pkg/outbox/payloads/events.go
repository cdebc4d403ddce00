package payloads

import "time"

// ShipmentLot is one expiry lot carried by a confirmed line.
type ShipmentLot struct {
	ExpiryDate string `json:"expiry_date"`
	Quantity   int    `json:"quantity"`
	LotNumber  string `json:"lot_number,omitempty"`
}

// ShipmentLine is the per-line snapshot inside a shipment event.
type ShipmentLine struct {
	LineNo   int           `json:"line_no"`
	Quantity int           `json:"quantity"`
	Lots     []ShipmentLot `json:"lots,omitempty"`
}

// ShipmentConfirmedEvent is emitted once per confirmed vendor partition.
type ShipmentConfirmedEvent struct {
	OrderDate        string         `json:"order_date"`
	OrderSeq         int            `json:"order_seq"`
	VendorID         string         `json:"vendor_id"`
	StoreID          string         `json:"store_id"`
	Reference        string         `json:"reference"`
	OutboundDate     string         `json:"outbound_date"`
	EstimatedArrival string         `json:"estimated_arrival"`
	ShipMethod       string         `json:"ship_method"`
	LogisticsCompany string         `json:"logistics_company"`
	TransportNo      string         `json:"transport_no,omitempty"`
	Lines            []ShipmentLine `json:"lines"`
	ConfirmedAt      time.Time      `json:"confirmed_at"`
}

// ShipmentCancelledEvent is emitted when a shipped batch is withdrawn.
type ShipmentCancelledEvent struct {
	OrderDate    string    `json:"order_date"`
	OrderSeq     int       `json:"order_seq"`
	VendorID     string    `json:"vendor_id"`
	StoreID      string    `json:"store_id"`
	Reference    string    `json:"reference"`
	OutboundDate string    `json:"outbound_date"`
	LineNos      []int     `json:"line_nos"`
	CancelledAt  time.Time `json:"cancelled_at"`
}

// Attributes are copied onto the Pub/Sub message so subscriptions can filter by vendor.
func (e ShipmentConfirmedEvent) Attributes() map[string]string {
	return map[string]string{
		"vendor_id":     e.VendorID,
		"store_id":      e.StoreID,
		"reference":     e.Reference,
		"outbound_date": e.OutboundDate,
	}
}

func (e ShipmentCancelledEvent) Attributes() map[string]string {
	return map[string]string{
		"vendor_id":     e.VendorID,
		"store_id":      e.StoreID,
		"reference":     e.Reference,
		"outbound_date": e.OutboundDate,
	}
}
