package models

import "time"

// LineExpiry is an expiry-dated lot of a purchase order line.
type LineExpiry struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	OrderDate  string    `gorm:"column:order_date;type:varchar(10);not null;index:idx_line_expiries_line,priority:1"`
	OrderSeq   int       `gorm:"column:order_seq;not null;index:idx_line_expiries_line,priority:2"`
	LineNo     int       `gorm:"column:line_no;not null;index:idx_line_expiries_line,priority:3"`
	ExpiryDate string    `gorm:"column:expiry_date;type:varchar(10);not null"`
	Quantity   int       `gorm:"column:quantity;not null"`
	LotNumber  string    `gorm:"column:lot_number;not null;default:''"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
