package models

import (
	"time"
)

// PurchaseOrder is the header of an inbound purchase order. Dates are stored
// as YYYY-MM-DD text so they compare lexically.
type PurchaseOrder struct {
	OrderDate  string    `gorm:"column:order_date;type:varchar(10);primaryKey"`
	OrderSeq   int       `gorm:"column:order_seq;primaryKey;autoIncrement:false"`
	StoreID    string    `gorm:"column:store_id;not null"`
	StoreName  string    `gorm:"column:store_name;not null"`
	AgentID    *string   `gorm:"column:agent_id"`
	VendorID   string    `gorm:"column:vendor_id;not null;index:idx_purchase_orders_vendor_date,priority:1"`
	VendorName string    `gorm:"column:vendor_name;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Lines []PurchaseOrderLine `gorm:"foreignKey:OrderDate,OrderSeq;references:OrderDate,OrderSeq"`
}
