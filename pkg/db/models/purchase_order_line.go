package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseOrderLine is one goods line of a purchase order together with the
// shipment fields recorded when the vendor confirms it.
type PurchaseOrderLine struct {
	OrderDate        string          `gorm:"column:order_date;type:varchar(10);primaryKey"`
	OrderSeq         int             `gorm:"column:order_seq;primaryKey;autoIncrement:false"`
	LineNo           int             `gorm:"column:line_no;primaryKey;autoIncrement:false"`
	GoodsCode        string          `gorm:"column:goods_code;not null"`
	GoodsName        string          `gorm:"column:goods_name;not null"`
	VendorID         string          `gorm:"column:vendor_id;not null;default:''"`
	OrderQty         int             `gorm:"column:order_qty;not null"`
	OutboundQty      int             `gorm:"column:outbound_qty;not null;default:0"`
	UnitPrice        decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Amount           decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	OutboundDate     *string         `gorm:"column:outbound_date;type:varchar(10)"`
	EstimatedArrival *string         `gorm:"column:estimated_arrival;type:varchar(10)"`
	ReceivingDate    *string         `gorm:"column:receiving_date;type:varchar(10)"`
	ShipMethod       string          `gorm:"column:ship_method;not null;default:''"`
	LogisticsCompany string          `gorm:"column:logistics_company;not null;default:''"`
	TransportNo      string          `gorm:"column:transport_no;not null;default:''"`
	Memo             string          `gorm:"column:memo;not null;default:''"`
	ShippedBy        *string         `gorm:"column:shipped_by"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Shipped reports whether an outbound date has been recorded.
func (l PurchaseOrderLine) Shipped() bool {
	return l.OutboundDate != nil && *l.OutboundDate != ""
}

// Received reports whether the store has booked the goods in.
func (l PurchaseOrderLine) Received() bool {
	return l.ReceivingDate != nil && *l.ReceivingDate != ""
}
