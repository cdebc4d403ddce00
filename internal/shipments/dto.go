package shipments

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxSearchResults = 500

var purchaseOrderNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:shipment-console:purchase-order"))

// OrderKey identifies a purchase order. OrderDate is YYYY-MM-DD.
type OrderKey struct {
	OrderDate string
	OrderSeq  int
}

func (k OrderKey) String() string {
	return fmt.Sprintf("%s/%d", k.OrderDate, k.OrderSeq)
}

// AggregateID is the stable outbox aggregate id of the order.
func (k OrderKey) AggregateID() uuid.UUID {
	return uuid.NewSHA1(purchaseOrderNamespace, []byte(k.String()))
}

// SearchFilters narrows the summary search. Dates are YYYY-MM-DD.
type SearchFilters struct {
	DateFrom string
	DateTo   string
	VendorID string
	StoreID  string
	AgentID  string
	Status   string
	Query    string
	Limit    int
}

func (f SearchFilters) likePattern() string {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return ""
	}
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(q) + "%"
}

// SummaryRow is one aggregated purchase-order header.
type SummaryRow struct {
	OrderDate        string          `gorm:"column:order_date"`
	OrderSeq         int             `gorm:"column:order_seq"`
	StoreID          string          `gorm:"column:store_id"`
	StoreName        string          `gorm:"column:store_name"`
	AgentID          *string         `gorm:"column:agent_id"`
	VendorID         string          `gorm:"column:vendor_id"`
	VendorName       string          `gorm:"column:vendor_name"`
	TotalOrderQty    int             `gorm:"column:total_order_qty"`
	TotalOutboundQty int             `gorm:"column:total_outbound_qty"`
	TotalAmount      decimal.Decimal `gorm:"column:total_amount"`
	OutboundDate     *string         `gorm:"column:outbound_date"`
	EstimatedArrival *string         `gorm:"column:estimated_arrival"`
}

// DetailRow is one line joined with at most one of its expiry lots.
type DetailRow struct {
	OrderDate        string          `gorm:"column:order_date"`
	OrderSeq         int             `gorm:"column:order_seq"`
	LineNo           int             `gorm:"column:line_no"`
	GoodsCode        string          `gorm:"column:goods_code"`
	GoodsName        string          `gorm:"column:goods_name"`
	VendorID         string          `gorm:"column:vendor_id"`
	OrderQty         int             `gorm:"column:order_qty"`
	OutboundQty      int             `gorm:"column:outbound_qty"`
	UnitPrice        decimal.Decimal `gorm:"column:unit_price"`
	Amount           decimal.Decimal `gorm:"column:amount"`
	OutboundDate     *string         `gorm:"column:outbound_date"`
	EstimatedArrival *string         `gorm:"column:estimated_arrival"`
	ReceivingDate    *string         `gorm:"column:receiving_date"`
	ShipMethod       string          `gorm:"column:ship_method"`
	LogisticsCompany string          `gorm:"column:logistics_company"`
	TransportNo      string          `gorm:"column:transport_no"`
	Memo             string          `gorm:"column:memo"`
	ExpiryID         *int64          `gorm:"column:expiry_id"`
	ExpiryDate       *string         `gorm:"column:expiry_date"`
	ExpiryQty        *int            `gorm:"column:expiry_qty"`
	LotNumber        *string         `gorm:"column:lot_number"`
}

// ShipmentUpdate is written onto a line when its shipment is confirmed.
type ShipmentUpdate struct {
	Quantity         int
	OutboundDate     string
	EstimatedArrival string
	ShipMethod       string
	LogisticsCompany string
	TransportNo      string
	Memo             string
	ShippedBy        string
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
