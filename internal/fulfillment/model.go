package fulfillment

import (
	"github.com/shopspring/decimal"
)

// SummaryKey identifies a purchase order header.
type SummaryKey struct {
	OrderDate string `json:"order_date"`
	OrderSeq  int    `json:"order_seq"`
}

// OrderSummary is one purchase-order header returned by a search.
type OrderSummary struct {
	OrderDate        string          `json:"order_date"`
	OrderSeq         int             `json:"order_seq"`
	StoreID          string          `json:"store_id"`
	StoreName        string          `json:"store_name"`
	AgentID          string          `json:"agent_id,omitempty"`
	VendorID         string          `json:"vendor_id"`
	VendorName       string          `json:"vendor_name"`
	TotalOrderQty    int             `json:"total_order_qty"`
	TotalOutboundQty int             `json:"total_outbound_qty"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	OutboundDate     string          `json:"outbound_date,omitempty"`
	EstimatedArrival string          `json:"estimated_arrival,omitempty"`
}

// Key returns the summary identity.
func (s OrderSummary) Key() SummaryKey {
	return SummaryKey{OrderDate: s.OrderDate, OrderSeq: s.OrderSeq}
}

// ExpiryDetail is an expiry-dated sub-quantity of a line.
type ExpiryDetail struct {
	ID         *int64 `json:"id,omitempty"`
	ExpiryDate string `json:"expiry_date"`
	Quantity   int    `json:"quantity"`
	LotNumber  string `json:"lot_number,omitempty"`
}

// ShipmentFields are shared across every line of one confirmation batch.
type ShipmentFields struct {
	OutboundDate     string `json:"outbound_date"`
	EstimatedArrival string `json:"estimated_arrival"`
	ShipMethod       string `json:"ship_method"`
	LogisticsCompany string `json:"logistics_company"`
	TransportNo      string `json:"transport_no,omitempty"`
	Memo             string `json:"memo,omitempty"`
}

// Complete reports whether the fields required for a confirmation are present.
func (f ShipmentFields) Complete() bool {
	return IsWellFormedDate(f.OutboundDate) &&
		IsWellFormedDate(f.EstimatedArrival) &&
		f.ShipMethod != "" &&
		f.LogisticsCompany != ""
}

// OrderLine is one detail line of a purchase order.
type OrderLine struct {
	LineNo           int             `json:"line_no"`
	GoodsCode        string          `json:"goods_code"`
	GoodsName        string          `json:"goods_name"`
	VendorID         string          `json:"vendor_id"`
	OrderQty         int             `json:"order_qty"`
	OutboundQty      int             `json:"outbound_qty"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Amount           decimal.Decimal `json:"amount"`
	ReceivingDate    string          `json:"receiving_date,omitempty"`
	Expiries         []ExpiryDetail  `json:"expiries"`
	DeletedExpiryIDs []int64         `json:"deleted_expiry_ids,omitempty"`
	ShipmentFields
}

// Clone returns a deep copy so snapshots never share slices with edits.
func (l OrderLine) Clone() OrderLine {
	out := l
	if l.Expiries != nil {
		out.Expiries = make([]ExpiryDetail, len(l.Expiries))
		for i, e := range l.Expiries {
			if e.ID != nil {
				id := *e.ID
				e.ID = &id
			}
			out.Expiries[i] = e
		}
	}
	if l.DeletedExpiryIDs != nil {
		out.DeletedExpiryIDs = append([]int64(nil), l.DeletedExpiryIDs...)
	}
	return out
}

func cloneLines(lines []OrderLine) []OrderLine {
	if lines == nil {
		return nil
	}
	out := make([]OrderLine, len(lines))
	for i, line := range lines {
		out[i] = line.Clone()
	}
	return out
}

func cloneSummaries(summaries []OrderSummary) []OrderSummary {
	if summaries == nil {
		return nil
	}
	return append([]OrderSummary(nil), summaries...)
}

// RawLine is one row of the order detail payload. Rows repeat per expiry entry.
type RawLine struct {
	OrderDate        string          `json:"order_date"`
	OrderSeq         int             `json:"order_seq"`
	LineNo           int             `json:"line_no"`
	GoodsCode        string          `json:"goods_code"`
	GoodsName        string          `json:"goods_name"`
	VendorID         string          `json:"vendor_id"`
	OrderQty         int             `json:"order_qty"`
	OutboundQty      int             `json:"outbound_qty"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Amount           decimal.Decimal `json:"amount"`
	OutboundDate     string          `json:"outbound_date"`
	ReceivingDate    string          `json:"receiving_date"`
	EstimatedArrival string          `json:"estimated_arrival"`
	ShipMethod       string          `json:"ship_method"`
	LogisticsCompany string          `json:"logistics_company"`
	TransportNo      string          `json:"transport_no"`
	Memo             string          `json:"memo"`
	ExpiryID         *int64          `json:"expiry_id"`
	ExpiryDate       string          `json:"expiry_date"`
	ExpiryQty        int             `json:"expiry_qty"`
	LotNumber        string          `json:"lot_number"`
}

// SearchQuery carries the summary search filters.
type SearchQuery struct {
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
	VendorID string `json:"vendor_id"`
	StoreID  string `json:"store_id,omitempty"`
	AgentID  string `json:"agent_id,omitempty"`
	// Status narrows to "pending", "shipped" or "" for all.
	Status string `json:"status,omitempty"`
	Query  string `json:"query,omitempty"`
}

// ConfirmLine is the per-line payload of a confirmation request.
type ConfirmLine struct {
	LineNo           int            `json:"line_no"`
	VendorID         string         `json:"vendor_id"`
	Quantity         int            `json:"quantity"`
	Expiries         []ExpiryDetail `json:"expiries"`
	DeletedExpiryIDs []int64        `json:"deleted_expiry_ids"`
}

// ConfirmRequest is sent once per vendor partition.
type ConfirmRequest struct {
	OrderDate string `json:"order_date"`
	OrderSeq  int    `json:"order_seq"`
	VendorID  string `json:"vendor_id"`
	UserID    string `json:"user_id"`
	ShipmentFields
	Lines []ConfirmLine `json:"lines"`
}

// CancelLine identifies one line of a cancellation.
type CancelLine struct {
	LineNo   int    `json:"line_no"`
	VendorID string `json:"vendor_id"`
}

// CancelRequest is sent once per summary.
type CancelRequest struct {
	OrderDate string       `json:"order_date"`
	OrderSeq  int          `json:"order_seq"`
	VendorID  string       `json:"vendor_id"`
	UserID    string       `json:"user_id"`
	Lines     []CancelLine `json:"lines"`
}

// Result is the collaborator's answer to a confirm or cancel request.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Actor is the read-only operator context handed to every operation.
type Actor struct {
	UserID   string
	VendorID string
	Role     string
}
