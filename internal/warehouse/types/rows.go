package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// ShipmentFactRow mirrors the shipment_facts BigQuery schema. One row per
// confirmed vendor partition or cancelled batch.
type ShipmentFactRow struct {
	EventID          string             `bigquery:"event_id"`
	EventType        string             `bigquery:"event_type"`
	OccurredAt       time.Time          `bigquery:"occurred_at"`
	OrderDate        string             `bigquery:"order_date"`
	OrderSeq         int64              `bigquery:"order_seq"`
	VendorID         string             `bigquery:"vendor_id"`
	StoreID          string             `bigquery:"store_id"`
	Reference        string             `bigquery:"reference"`
	OutboundDate     string             `bigquery:"outbound_date"`
	EstimatedArrival *string            `bigquery:"estimated_arrival"`
	ShipMethod       *string            `bigquery:"ship_method"`
	LogisticsCompany *string            `bigquery:"logistics_company"`
	TransportNo      *string            `bigquery:"transport_no"`
	LineCount        int64              `bigquery:"line_count"`
	TotalQuantity    *int64             `bigquery:"total_quantity"`
	ActorUserID      *string            `bigquery:"actor_user_id"`
	Payload          cbigquery.NullJSON `bigquery:"payload"`
}

// ShipmentLotRow mirrors the shipment_lot_facts schema: one row per expiry lot
// carried by a confirmed line.
type ShipmentLotRow struct {
	EventID    string    `bigquery:"event_id"`
	OccurredAt time.Time `bigquery:"occurred_at"`
	Reference  string    `bigquery:"reference"`
	VendorID   string    `bigquery:"vendor_id"`
	LineNo     int64     `bigquery:"line_no"`
	ExpiryDate string    `bigquery:"expiry_date"`
	Quantity   int64     `bigquery:"quantity"`
	LotNumber  *string   `bigquery:"lot_number"`
}
